// Package servo models the screen-tilt servo position. The model is pure
// state: accumulated encoder steps plus the active sensitivity mode map to
// a clamped angle. All hardware writes happen elsewhere.
package servo

import (
	"fmt"
	"math"
)

type Mode int

const (
	ModeDirect Mode = iota
	ModeFine
	ModeRange
)

var modeCycle = []Mode{ModeDirect, ModeFine, ModeRange}

func (m Mode) String() string {
	switch m {
	case ModeDirect:
		return "direct"
	case ModeFine:
		return "fine"
	case ModeRange:
		return "range"
	default:
		return fmt.Sprintf("unknown(%d)", int(m))
	}
}

func ParseMode(s string) (Mode, error) {
	switch s {
	case "direct":
		return ModeDirect, nil
	case "fine":
		return ModeFine, nil
	case "range":
		return ModeRange, nil
	default:
		return ModeDirect, fmt.Errorf("unknown mode %q", s)
	}
}

type ModeConfig struct {
	Sensitivity float64
	// MinAngle/MaxAngle narrow the clamp range; only used by ModeRange.
	MinAngle float64
	MaxAngle float64
}

type Config struct {
	ServoChannel int
	DefaultMode  Mode
	Modes        map[Mode]ModeConfig
	MinAngle     float64
	MaxAngle     float64
	CenterAngle  float64
}

// DefaultConfig mirrors the values the deck has always shipped with.
func DefaultConfig() Config {
	return Config{
		ServoChannel: 0,
		DefaultMode:  ModeDirect,
		Modes: map[Mode]ModeConfig{
			ModeDirect: {Sensitivity: 10.0},
			ModeFine:   {Sensitivity: 2.0},
			ModeRange:  {Sensitivity: 10.0, MinAngle: 90, MaxAngle: 180},
		},
		MinAngle:    0,
		MaxAngle:    270,
		CenterAngle: 145,
	}
}

type PositionModel struct {
	config     Config
	mode       Mode
	encoderPos int
	angle      float64
}

func NewPositionModel(config Config, mode Mode) *PositionModel {
	m := &PositionModel{
		config: config,
		mode:   mode,
	}
	m.recomputeAngle()
	return m
}

func (m *PositionModel) Angle() float64 {
	return m.angle
}

func (m *PositionModel) Mode() Mode {
	return m.mode
}

func (m *PositionModel) EncoderPosition() int {
	return m.encoderPos
}

func (m *PositionModel) sensitivity() float64 {
	return m.config.Modes[m.mode].Sensitivity
}

func (m *PositionModel) clampRange() (float64, float64) {
	if m.mode == ModeRange {
		mc := m.config.Modes[ModeRange]
		return mc.MinAngle, mc.MaxAngle
	}
	return m.config.MinAngle, m.config.MaxAngle
}

func (m *PositionModel) recomputeAngle() bool {
	lo, hi := m.clampRange()
	angle := m.config.CenterAngle + float64(m.encoderPos)*m.sensitivity()
	if angle < lo {
		angle = lo
	} else if angle > hi {
		angle = hi
	}
	changed := angle != m.angle
	m.angle = angle
	return changed
}

// ApplyRotation adds one encoder step and reports whether the clamped angle
// actually moved, so callers can skip redundant servo writes at the stops.
func (m *PositionModel) ApplyRotation(delta int) bool {
	m.encoderPos += delta
	return m.recomputeAngle()
}

// CycleMode advances direct -> fine -> range -> direct. The encoder position
// is re-derived from the current angle under the new sensitivity so the
// visible angle does not jump at the switch, unless the new mode's clamp
// range forces it to.
func (m *PositionModel) CycleMode() Mode {
	for i, mode := range modeCycle {
		if mode == m.mode {
			m.mode = modeCycle[(i+1)%len(modeCycle)]
			break
		}
	}
	m.rederivePosition()
	return m.mode
}

// GoHome returns to the configured center angle and reports whether the
// angle moved.
func (m *PositionModel) GoHome() bool {
	m.encoderPos = 0
	return m.recomputeAngle()
}

// SeedAngle positions the model as close to a previously saved angle as the
// active sensitivity allows.
func (m *PositionModel) SeedAngle(angle float64) {
	m.angle = angle
	m.rederivePosition()
}

func (m *PositionModel) rederivePosition() {
	sens := m.sensitivity()
	if sens != 0 {
		m.encoderPos = int(math.Round((m.angle - m.config.CenterAngle) / sens))
	}
	m.recomputeAngle()
}
