// Package controlloop ties the deck together: it drains classified encoder
// events into the position model, writes the servo through the bus arbiter
// and paces the OLED animation, all on one fixed-rate loop.
package controlloop

import (
	"context"
	"fmt"
	"time"

	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/busarbiter"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/encoder"
	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/servo"
)

type EventSource interface {
	Drain() []encoder.Event
}

type DisplayDevice interface {
	PushFrame(buf []byte) error
	Clear() error
}

type ActuatorDevice interface {
	SetAngle(port int, degrees float64) error
}

type FrameSource interface {
	Advance(dt float64)
	RenderFrame() []byte
}

type StateSaver interface {
	SaveState(angle float64, mode servo.Mode) error
}

// Loop is the single writer on the bus arbiter. Display or Actuator may be
// nil when that device failed to initialize; the rest keeps running.
type Loop struct {
	Arbiter *busarbiter.Arbiter
	Model   *servo.PositionModel
	Events  EventSource
	Saver   StateSaver

	Display DisplayDevice
	Frames  FrameSource

	Actuator        ActuatorDevice
	ActuatorChannel int
	ServoPort       int

	FPS int
}

// Run ticks until the context is cancelled. Each tick drains the event
// queue in arrival order, then renders one frame on the idle channel. If a
// tick overruns its budget the next one simply starts late; there is no
// catch-up.
func (l *Loop) Run(ctx context.Context) {
	fps := l.FPS
	if fps <= 0 {
		fps = 20
	}
	budget := time.Second / time.Duration(fps)

	fmt.Printf("Control loop running at %d fps\n", fps)
	for ctx.Err() == nil {
		start := time.Now()

		l.tick()

		elapsed := time.Since(start)
		if elapsed < budget {
			time.Sleep(budget - elapsed)
		}
	}
	l.shutdown()
}

func (l *Loop) tick() {
	for _, event := range l.Events.Drain() {
		l.handleEvent(event)
	}
	l.renderFrame()
}

func (l *Loop) handleEvent(event encoder.Event) {
	switch event.Type {
	case encoder.EventRotate:
		if l.Model.ApplyRotation(event.Delta) {
			l.writeServoAngle()
		}
	case encoder.EventClick:
		fmt.Println("Encoder: home position")
		if l.Model.GoHome() {
			l.writeServoAngle()
		}
	case encoder.EventDoubleClick:
		before := l.Model.Angle()
		mode := l.Model.CycleMode()
		fmt.Println("Mode changed to:", mode)
		// Angle only moves if the new mode's clamp range forced it.
		if l.Model.Angle() != before {
			l.writeServoAngle()
		}
	case encoder.EventLongPress:
		if l.Saver != nil {
			if err := l.Saver.SaveState(l.Model.Angle(), l.Model.Mode()); err != nil {
				fmt.Println("Failed to save state:", err)
			}
		}
	}
}

// writeServoAngle pushes the model's angle to the servo inside an
// actuator-channel scope. Whatever happens, the guard puts the bus back on
// the idle channel so the display stays reachable.
func (l *Loop) writeServoAngle() {
	if l.Actuator == nil {
		return
	}
	guard, err := l.Arbiter.AcquireScoped(l.ActuatorChannel)
	defer guard.Release()
	if err != nil {
		fmt.Println("Bus unavailable, skipping servo write:", err)
		return
	}
	angle := l.Model.Angle()
	if err := l.Actuator.SetAngle(l.ServoPort, angle); err != nil {
		fmt.Println("Servo write failed:", err)
		return
	}
	fmt.Printf("Servo: %d -> %.1f degrees\n", l.Model.EncoderPosition(), angle)
}

func (l *Loop) renderFrame() {
	if l.Display == nil || l.Frames == nil {
		return
	}
	// The display lives on the idle channel; re-assert it in case an
	// external actor moved the mux.
	if err := l.Arbiter.Switch(l.Arbiter.IdleChannel()); err != nil {
		fmt.Println("Bus unavailable, skipping frame:", err)
		return
	}
	fps := l.FPS
	if fps <= 0 {
		fps = 20
	}
	l.Frames.Advance(1.0 / float64(fps))
	if err := l.Display.PushFrame(l.Frames.RenderFrame()); err != nil {
		fmt.Println("Display update failed:", err)
	}
}

// shutdown finishes the in-flight state: persist the position, park the bus
// on the idle channel and blank the display.
func (l *Loop) shutdown() {
	fmt.Println("Control loop shutting down")
	if l.Saver != nil {
		if err := l.Saver.SaveState(l.Model.Angle(), l.Model.Mode()); err != nil {
			fmt.Println("Failed to save state on shutdown:", err)
		}
	}
	if err := l.Arbiter.Switch(l.Arbiter.IdleChannel()); err != nil {
		fmt.Println("Failed to park bus on idle channel:", err)
	} else if l.Display != nil {
		if err := l.Display.Clear(); err != nil {
			fmt.Println("Failed to clear display:", err)
		}
	}
}
