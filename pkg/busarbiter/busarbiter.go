// Package busarbiter serializes channel selection on the I2C multiplexer
// shared by the OLED and the servo controller. All channel switches go
// through one Arbiter so the two devices can never fight over the mux.
package busarbiter

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

const (
	switchAttempts     = 3
	retryDelay         = 10 * time.Millisecond
	stabilizationDelay = 2 * time.Millisecond

	// Every Nth switch rewrites the channel even if the cache says it is
	// already selected, in case something else touched the mux.
	forcedRewriteEvery = 10

	channelUnknown = -1
)

// ErrSwitchFailed is returned when all attempts to select a channel fail.
// The bus should be treated as unusable for that tick; the cached channel
// state is left untouched.
var ErrSwitchFailed = errors.New("mux channel switch failed")

// ChannelSelector is the slice of the mux device the arbiter drives.
type ChannelSelector interface {
	SelectSinglePort(num int) error
}

type Arbiter struct {
	lock sync.Mutex

	selector    ChannelSelector
	muxPresent  bool
	idleChannel int

	currentChannel int
	opCount        int
}

// New creates an Arbiter parked on no channel. If muxPresent is false every
// channel is treated as already selected and no hardware writes happen.
func New(selector ChannelSelector, idleChannel int, muxPresent bool) *Arbiter {
	return &Arbiter{
		selector:       selector,
		muxPresent:     muxPresent,
		idleChannel:    idleChannel,
		currentChannel: channelUnknown,
	}
}

func (a *Arbiter) IdleChannel() int {
	return a.idleChannel
}

// CurrentChannel returns the cached selected channel, or -1 if unknown.
func (a *Arbiter) CurrentChannel() int {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.currentChannel
}

// Switch selects the given mux channel. Already-selected channels are a
// no-op (modulo the periodic forced rewrite). Transient write failures are
// retried a fixed number of times; if all attempts fail the cached channel
// is left unchanged and ErrSwitchFailed is returned.
func (a *Arbiter) Switch(channel int) error {
	a.lock.Lock()
	defer a.lock.Unlock()

	if !a.muxPresent {
		a.currentChannel = channel
		return nil
	}

	a.opCount++
	force := a.opCount%forcedRewriteEvery == 0
	if a.currentChannel == channel && !force {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt < switchAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}
		lastErr = a.selector.SelectSinglePort(channel)
		if lastErr == nil {
			time.Sleep(stabilizationDelay)
			a.currentChannel = channel
			return nil
		}
	}
	fmt.Printf("Failed to switch mux to channel %d: %v\n", channel, lastErr)
	return ErrSwitchFailed
}

// AcquireScoped switches to the given channel and returns a Guard whose
// Release puts the bus back on the idle channel. Release must be called on
// every path; the returned error only reports whether the acquisition
// itself succeeded.
func (a *Arbiter) AcquireScoped(channel int) (*Guard, error) {
	err := a.Switch(channel)
	return &Guard{arbiter: a}, err
}

type Guard struct {
	arbiter  *Arbiter
	released bool
}

// Release returns the bus to the idle channel. The return is best effort:
// a failure is logged, not propagated, so a wedged actuator channel cannot
// keep the display unreachable forever.
func (g *Guard) Release() {
	if g.released {
		return
	}
	g.released = true
	if err := g.arbiter.Switch(g.arbiter.idleChannel); err != nil {
		fmt.Printf("Failed to return mux to idle channel %d: %v\n",
			g.arbiter.idleChannel, err)
	}
}
