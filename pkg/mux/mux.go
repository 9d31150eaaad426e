package mux

import (
	"fmt"

	"golang.org/x/exp/io/i2c"
)

const (
	DefaultAddr = 0x70

	// Channel assignments on the deck's TCA9548A.
	ChannelOLED  = 0
	ChannelServo = 1

	NumChannels = 8
)

type Interface interface {
	Probe() error
	SelectSinglePort(num int) error
	SelectMultiplePorts(mask byte) error
	DisableAllPorts() error
	Close() error
}

type Mux struct {
	dev *i2c.Device
}

func New(deviceFile string) (Interface, error) {
	dev, err := i2c.Open(&i2c.Devfs{Dev: deviceFile}, DefaultAddr)
	if err != nil {
		return nil, err
	}
	return &Mux{
		dev: dev,
	}, nil
}

// Probe reads the mux's control register to check the device answers at all.
func (p *Mux) Probe() error {
	var buf [1]byte
	return p.dev.Read(buf[:])
}

func (p *Mux) SelectSinglePort(num int) error {
	if num < 0 || num >= NumChannels {
		return fmt.Errorf("mux channel out of range: %d", num)
	}
	data := []byte{1 << uint(num)}
	return p.dev.Write(data)
}

func (p *Mux) SelectMultiplePorts(mask byte) error {
	data := []byte{mask}
	return p.dev.Write(data)
}

func (p *Mux) DisableAllPorts() error {
	data := []byte{0}
	return p.dev.Write(data)
}

func (p *Mux) Close() error {
	return p.dev.Close()
}

func Dummy() Interface {
	return &dummyMux{}
}

type dummyMux struct {
}

func (p *dummyMux) Probe() error {
	return nil
}

func (p *dummyMux) SelectSinglePort(num int) error {
	fmt.Printf("Dummy Mux setting channel=%d\n", num)
	return nil
}

func (p *dummyMux) SelectMultiplePorts(mask byte) error {
	return nil
}

func (p *dummyMux) DisableAllPorts() error {
	fmt.Printf("Dummy Mux disabling all channels\n")
	return nil
}

func (p *dummyMux) Close() error {
	return nil
}
