package servo

import (
	"math"
	"testing"
)

func testConfig() Config {
	return DefaultConfig()
}

func TestDirectRotation(t *testing.T) {
	m := NewPositionModel(testConfig(), ModeDirect)

	// center 145, direct sensitivity 10: three clicks up is 175.
	for i := 0; i < 3; i++ {
		if !m.ApplyRotation(1) {
			t.Fatalf("rotation %d should have moved the angle", i)
		}
	}
	if m.Angle() != 175 {
		t.Fatalf("expected angle 175, got %v", m.Angle())
	}
}

func TestClampAtConfigLimits(t *testing.T) {
	m := NewPositionModel(testConfig(), ModeDirect)

	for i := 0; i < 100; i++ {
		m.ApplyRotation(1)
	}
	if m.Angle() != 270 {
		t.Fatalf("expected clamp at 270, got %v", m.Angle())
	}
	// Once pinned at the stop, further rotation must report unchanged.
	if m.ApplyRotation(1) {
		t.Fatalf("rotation beyond the stop should not report a change")
	}
}

func TestRangeModeClamp(t *testing.T) {
	m := NewPositionModel(testConfig(), ModeRange)

	for i := 0; i < 100; i++ {
		m.ApplyRotation(-1)
	}
	if m.Angle() != 90 {
		t.Fatalf("expected clamp at range min 90, got %v", m.Angle())
	}
}

func TestIncrementalAngleMatchesFormula(t *testing.T) {
	cfg := testConfig()
	m := NewPositionModel(cfg, ModeDirect)

	deltas := []int{1, 1, -1, 1, 1, 1, -1, -1, 1, 1}
	pos := 0
	for _, d := range deltas {
		m.ApplyRotation(d)
		pos += d
		want := cfg.CenterAngle + float64(pos)*cfg.Modes[ModeDirect].Sensitivity
		if want < cfg.MinAngle {
			want = cfg.MinAngle
		} else if want > cfg.MaxAngle {
			want = cfg.MaxAngle
		}
		if m.Angle() != want {
			t.Fatalf("after delta %d expected %v, got %v", d, want, m.Angle())
		}
	}
}

func TestCycleModePreservesAngle(t *testing.T) {
	m := NewPositionModel(testConfig(), ModeDirect)
	m.ApplyRotation(1)
	m.ApplyRotation(1)
	m.ApplyRotation(1) // 175

	if mode := m.CycleMode(); mode != ModeFine {
		t.Fatalf("expected fine after direct, got %v", mode)
	}
	if math.Abs(m.Angle()-175) > 1e-9 {
		t.Fatalf("mode switch moved the angle: %v", m.Angle())
	}

	if mode := m.CycleMode(); mode != ModeRange {
		t.Fatalf("expected range after fine, got %v", mode)
	}
	if mode := m.CycleMode(); mode != ModeDirect {
		t.Fatalf("expected direct after range, got %v", mode)
	}
}

func TestCycleModeClampForcesChange(t *testing.T) {
	m := NewPositionModel(testConfig(), ModeDirect)
	for i := 0; i < 10; i++ {
		m.ApplyRotation(1)
	}
	if m.Angle() != 245 {
		t.Fatalf("setup failed, angle %v", m.Angle())
	}

	m.CycleMode() // fine, 245 is still in 0..270
	if m.Angle() != 245 {
		t.Fatalf("fine mode moved the angle: %v", m.Angle())
	}
	m.CycleMode() // range clamps to 90..180
	if m.Angle() != 180 {
		t.Fatalf("expected range clamp to 180, got %v", m.Angle())
	}
}

func TestGoHome(t *testing.T) {
	m := NewPositionModel(testConfig(), ModeDirect)
	m.ApplyRotation(1)
	m.ApplyRotation(1)

	if !m.GoHome() {
		t.Fatalf("go home should have moved the angle")
	}
	if m.Angle() != 145 {
		t.Fatalf("expected center 145, got %v", m.Angle())
	}
	if m.GoHome() {
		t.Fatalf("second go home should report unchanged")
	}
}

func TestSeedAngle(t *testing.T) {
	m := NewPositionModel(testConfig(), ModeDirect)
	m.SeedAngle(175)
	if m.Angle() != 175 {
		t.Fatalf("expected seeded angle 175, got %v", m.Angle())
	}
	if m.EncoderPosition() != 3 {
		t.Fatalf("expected encoder position 3, got %d", m.EncoderPosition())
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range []Mode{ModeDirect, ModeFine, ModeRange} {
		parsed, err := ParseMode(mode.String())
		if err != nil {
			t.Fatalf("round trip of %v failed: %v", mode, err)
		}
		if parsed != mode {
			t.Fatalf("round trip of %v gave %v", mode, parsed)
		}
	}
	if _, err := ParseMode("sideways"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}
