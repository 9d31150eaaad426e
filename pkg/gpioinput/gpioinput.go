// Package gpioinput reads the rotary encoder's three lines. The lines are
// wired active-low with pull-ups, so Levels reports true when a line is
// asserted (encoder contact closed / button held).
package gpioinput

import (
	"fmt"

	"periph.io/x/periph/conn/gpio"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/host"
)

const (
	DefaultCLKPin = "GPIO17"
	DefaultDTPin  = "GPIO27"
	DefaultSWPin  = "GPIO22"
)

type Interface interface {
	// Levels returns the current logical level of the rotation-A (CLK),
	// rotation-B (DT) and button (SW) lines.
	Levels() (clk, dt, sw bool)
	Close() error
}

type Pins struct {
	clk gpio.PinIO
	dt  gpio.PinIO
	sw  gpio.PinIO
}

func New(clkPin, dtPin, swPin string) (Interface, error) {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		return nil, err
	}

	p := &Pins{}
	for _, in := range []struct {
		name string
		dst  *gpio.PinIO
	}{
		{clkPin, &p.clk},
		{dtPin, &p.dt},
		{swPin, &p.sw},
	} {
		pin := gpioreg.ByName(in.name)
		if pin == nil {
			return nil, fmt.Errorf("no such GPIO pin: %s", in.name)
		}
		if err := pin.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("failed to configure %s: %v", in.name, err)
		}
		*in.dst = pin
	}
	return p, nil
}

func (p *Pins) Levels() (bool, bool, bool) {
	// Pull-ups invert: a closed contact reads electrically low.
	return p.clk.Read() == gpio.Low,
		p.dt.Read() == gpio.Low,
		p.sw.Read() == gpio.Low
}

func (p *Pins) Close() error {
	return nil
}

func Dummy() Interface {
	return &dummyPins{}
}

type dummyPins struct {
}

func (d *dummyPins) Levels() (bool, bool, bool) {
	return false, false, false
}

func (d *dummyPins) Close() error {
	return nil
}
