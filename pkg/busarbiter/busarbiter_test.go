package busarbiter

import (
	"errors"
	"testing"
)

type fakeSelector struct {
	writes   []int
	failNext int
}

func (f *fakeSelector) SelectSinglePort(num int) error {
	if f.failNext > 0 {
		f.failNext--
		return errors.New("EIO")
	}
	f.writes = append(f.writes, num)
	return nil
}

func TestSwitchIdempotent(t *testing.T) {
	sel := &fakeSelector{}
	a := New(sel, 0, true)

	if err := a.Switch(1); err != nil {
		t.Fatalf("first switch failed: %v", err)
	}
	if err := a.Switch(1); err != nil {
		t.Fatalf("second switch failed: %v", err)
	}
	if len(sel.writes) != 1 {
		t.Fatalf("expected 1 hardware write, got %d", len(sel.writes))
	}
	if a.CurrentChannel() != 1 {
		t.Fatalf("expected current channel 1, got %d", a.CurrentChannel())
	}
}

func TestSwitchRetriesThenSucceeds(t *testing.T) {
	sel := &fakeSelector{failNext: 2}
	a := New(sel, 0, true)

	if err := a.Switch(1); err != nil {
		t.Fatalf("switch should have succeeded on the 3rd attempt: %v", err)
	}
	if len(sel.writes) != 1 {
		t.Fatalf("expected exactly 1 successful write, got %d", len(sel.writes))
	}
}

func TestSwitchExhaustsRetries(t *testing.T) {
	sel := &fakeSelector{failNext: switchAttempts}
	a := New(sel, 0, true)

	err := a.Switch(1)
	if !errors.Is(err, ErrSwitchFailed) {
		t.Fatalf("expected ErrSwitchFailed, got %v", err)
	}
	if a.CurrentChannel() != channelUnknown {
		t.Fatalf("failed switch must not update current channel, got %d", a.CurrentChannel())
	}
}

func TestFailedSwitchDoesNotClobberPreviousChannel(t *testing.T) {
	sel := &fakeSelector{}
	a := New(sel, 0, true)
	if err := a.Switch(0); err != nil {
		t.Fatalf("switch to idle failed: %v", err)
	}

	sel.failNext = switchAttempts
	if err := a.Switch(1); !errors.Is(err, ErrSwitchFailed) {
		t.Fatalf("expected ErrSwitchFailed, got %v", err)
	}
	if a.CurrentChannel() != 0 {
		t.Fatalf("expected current channel still 0, got %d", a.CurrentChannel())
	}
}

func TestAcquireScopedReturnsToIdle(t *testing.T) {
	sel := &fakeSelector{}
	a := New(sel, 0, true)

	guard, err := a.AcquireScoped(1)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if a.CurrentChannel() != 1 {
		t.Fatalf("expected channel 1 inside scope, got %d", a.CurrentChannel())
	}
	guard.Release()
	if a.CurrentChannel() != 0 {
		t.Fatalf("expected idle channel after release, got %d", a.CurrentChannel())
	}
}

func TestAcquireScopedReleasesAfterFailedAcquire(t *testing.T) {
	sel := &fakeSelector{}
	a := New(sel, 0, true)
	if err := a.Switch(0); err != nil {
		t.Fatalf("switch to idle failed: %v", err)
	}

	sel.failNext = switchAttempts
	guard, err := a.AcquireScoped(1)
	if !errors.Is(err, ErrSwitchFailed) {
		t.Fatalf("expected ErrSwitchFailed, got %v", err)
	}
	guard.Release()
	if a.CurrentChannel() != 0 {
		t.Fatalf("expected idle channel after release, got %d", a.CurrentChannel())
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	sel := &fakeSelector{}
	a := New(sel, 0, true)

	guard, err := a.AcquireScoped(1)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	guard.Release()
	writes := len(sel.writes)
	guard.Release()
	if len(sel.writes) != writes {
		t.Fatalf("second release wrote to hardware")
	}
}

func TestForcedRewrite(t *testing.T) {
	sel := &fakeSelector{}
	a := New(sel, 0, true)

	// One write for the initial selection; the cached channel then absorbs
	// everything except the periodic forced rewrite.
	for i := 0; i < forcedRewriteEvery*2; i++ {
		if err := a.Switch(1); err != nil {
			t.Fatalf("switch %d failed: %v", i, err)
		}
	}
	if len(sel.writes) != 3 {
		t.Fatalf("expected 1 initial + 2 forced writes, got %d", len(sel.writes))
	}
}

func TestMuxAbsentNeverWrites(t *testing.T) {
	sel := &fakeSelector{}
	a := New(sel, 0, false)

	if err := a.Switch(1); err != nil {
		t.Fatalf("switch failed: %v", err)
	}
	guard, err := a.AcquireScoped(5)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	guard.Release()
	if len(sel.writes) != 0 {
		t.Fatalf("mux-absent arbiter must not write, got %d writes", len(sel.writes))
	}
	if a.CurrentChannel() != 0 {
		t.Fatalf("expected idle channel after release, got %d", a.CurrentChannel())
	}
}
