// Package oled drives the deck's SSD1306 status display. The display sits
// on the mux's idle channel, so pushing a frame needs no channel switch as
// long as the bus arbiter is parked.
package oled

import (
	"fmt"
	"time"

	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x3c

	Width  = 128
	Height = 64

	FrameSize = Width * Height / 8

	// Control bytes: next byte(s) are a command / are pixel data.
	regCommand = 0x00
	regData    = 0x40
)

type Interface interface {
	PushFrame(buf []byte) error
	Clear() error
	Close() error
}

type OLED struct {
	dev *i2c.Device
}

func New(deviceFile string) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, DefaultAddr)
	if err != nil {
		return nil, err
	}
	o := &OLED{dev: dev}
	if err := o.configure(); err != nil {
		_ = dev.Close()
		return nil, err
	}
	return o, nil
}

func (o *OLED) configure() error {
	// Standard SSD1306 bring-up for a 128x64 panel, horizontal addressing.
	init := []byte{
		0xae,       // display off
		0xd5, 0x80, // clock divide
		0xa8, 0x3f, // multiplex ratio 64
		0xd3, 0x00, // display offset
		0x40,       // start line 0
		0x8d, 0x14, // charge pump on
		0x20, 0x00, // horizontal addressing mode
		0xa1,       // segment remap
		0xc8,       // COM scan direction
		0xda, 0x12, // COM pins
		0x81, 0xcf, // contrast
		0xd9, 0xf1, // pre-charge
		0xdb, 0x40, // VCOM detect
		0xa4, // resume from RAM
		0xa6, // normal (not inverted)
		0xaf, // display on
	}
	if err := o.dev.WriteReg(regCommand, init); err != nil {
		return err
	}
	time.Sleep(time.Millisecond)
	return o.Clear()
}

// PushFrame writes one full frame. The buffer is in SSD1306 page order:
// byte n holds pixels x=n%128, y=(n/128)*8..+7, LSB topmost.
func (o *OLED) PushFrame(buf []byte) error {
	if len(buf) != FrameSize {
		return fmt.Errorf("bad frame size %d, want %d", len(buf), FrameSize)
	}
	if err := o.dev.WriteReg(regCommand, []byte{
		0x21, 0, Width - 1, // column range
		0x22, 0, Height/8 - 1, // page range
	}); err != nil {
		return err
	}
	// Chunked writes keep individual I2C transactions small.
	for off := 0; off < len(buf); off += 64 {
		if err := o.dev.WriteReg(regData, buf[off:off+64]); err != nil {
			return err
		}
	}
	return nil
}

func (o *OLED) Clear() error {
	return o.PushFrame(make([]byte, FrameSize))
}

func (o *OLED) Close() error {
	// Best effort blank and power down.
	_ = o.Clear()
	_ = o.dev.WriteReg(regCommand, []byte{0xae})
	return o.dev.Close()
}

func Dummy() Interface {
	return &dummyOLED{}
}

type dummyOLED struct {
}

func (*dummyOLED) PushFrame(buf []byte) error {
	return nil
}

func (*dummyOLED) Clear() error {
	return nil
}

func (*dummyOLED) Close() error {
	return nil
}
