// Package encoder turns raw rotary-encoder line levels into discrete
// events: single rotation steps, clicks, double clicks and long presses.
package encoder

import (
	"fmt"
	"time"
)

type EventType int

const (
	EventRotate EventType = iota
	EventClick
	EventDoubleClick
	EventLongPress
)

func (t EventType) String() string {
	switch t {
	case EventRotate:
		return "rotate"
	case EventClick:
		return "click"
	case EventDoubleClick:
		return "double-click"
	case EventLongPress:
		return "long-press"
	default:
		return fmt.Sprintf("unknown(%d)", int(t))
	}
}

type Event struct {
	Type EventType
	// Delta is +1 or -1 for EventRotate, 0 otherwise.
	Delta int
	Time  time.Time
}

const (
	// A release only counts once the line stays released this long.
	releaseDebounce = 50 * time.Millisecond
	// Presses held longer than this become a long press on release.
	longPressMin = time.Second
	// Clicks closer together than this are grouped into one episode.
	clickIdle = 300 * time.Millisecond
)

type buttonPhase int

const (
	buttonIdle buttonPhase = iota
	buttonPressed
	buttonReleaseCheck
)

// Classifier is a pure state machine fed one (CLK, DT, SW) sample at a
// time. It is owned by the sampling goroutine and must not be shared.
type Classifier struct {
	lastCLK bool

	phase          buttonPhase
	pressedAt      time.Time
	releaseCheckAt time.Time
	clickCount     int
	clickDeadline  time.Time
}

// NewClassifier seeds the rotation decoder with the current CLK level so a
// pre-asserted line at startup is not mistaken for a step.
func NewClassifier(clk bool) *Classifier {
	return &Classifier{lastCLK: clk}
}

// Sample feeds one poll of the three lines into the state machine and
// returns any events it completes. Deadlines are evaluated against the
// supplied time, so there are no background timers.
func (c *Classifier) Sample(clk, dt, sw bool, now time.Time) []Event {
	var events []Event

	// Rotation: decode on the falling edge of CLK only. At high rotation
	// speed this can miscount versus full quadrature decoding; that is the
	// behaviour the deck has always had.
	if clk != c.lastCLK && !clk {
		if dt != clk {
			events = append(events, Event{Type: EventRotate, Delta: 1, Time: now})
		} else {
			events = append(events, Event{Type: EventRotate, Delta: -1, Time: now})
		}
	}
	c.lastCLK = clk

	switch c.phase {
	case buttonIdle:
		if sw {
			c.phase = buttonPressed
			c.pressedAt = now
		}
	case buttonPressed:
		if !sw {
			c.phase = buttonReleaseCheck
			c.releaseCheckAt = now.Add(releaseDebounce)
		}
	case buttonReleaseCheck:
		if !now.Before(c.releaseCheckAt) {
			if sw {
				// Bounce: still held, the press continues.
				c.phase = buttonPressed
			} else {
				c.phase = buttonIdle
				duration := now.Sub(c.pressedAt)
				if duration > longPressMin {
					events = append(events, Event{Type: EventLongPress, Time: now})
					c.clickCount = 0
					c.clickDeadline = time.Time{}
				} else {
					c.clickCount++
					c.clickDeadline = now.Add(clickIdle)
				}
			}
		}
	}

	// A quiet spell after the last short press closes the click episode.
	if c.clickCount > 0 && !c.clickDeadline.IsZero() && now.After(c.clickDeadline) {
		if c.clickCount == 1 {
			events = append(events, Event{Type: EventClick, Time: now})
		} else {
			// Anything beyond a double collapses into one double click.
			events = append(events, Event{Type: EventDoubleClick, Time: now})
		}
		c.clickCount = 0
		c.clickDeadline = time.Time{}
	}

	return events
}
