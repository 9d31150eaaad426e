// Package state loads the servo configuration and persists the last tilt
// position across restarts. Both files are JSON; anything missing or
// unreadable falls back to defaults rather than failing startup.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/servo"
)

type PersistedState struct {
	LastPosition float64 `json:"last_position"`
	Mode         string  `json:"mode"`
	Timestamp    string  `json:"timestamp"`
}

// File-level view of the config; mode names are free-form keys here and
// validated on conversion.
type fileModeConfig struct {
	Sensitivity float64  `json:"sensitivity"`
	MinAngle    *float64 `json:"min_angle,omitempty"`
	MaxAngle    *float64 `json:"max_angle,omitempty"`
}

type fileConfig struct {
	ServoChannel int                       `json:"servo_channel"`
	DefaultMode  string                    `json:"default_mode"`
	Modes        map[string]fileModeConfig `json:"modes"`
	MinAngle     float64                   `json:"min_angle"`
	MaxAngle     float64                   `json:"max_angle"`
	CenterAngle  float64                   `json:"center_angle"`
}

type Store struct {
	ConfigPath string
	StatePath  string
}

// LoadConfig returns the servo config. A missing file synthesizes the
// defaults and writes them out; a corrupt file just uses the defaults.
func (s *Store) LoadConfig() servo.Config {
	raw, err := os.ReadFile(s.ConfigPath)
	if os.IsNotExist(err) {
		fmt.Println("No config file, writing defaults to", s.ConfigPath)
		defaults := servo.DefaultConfig()
		if err := s.writeConfig(defaults); err != nil {
			fmt.Println("Failed to write default config:", err)
		}
		return defaults
	}
	if err != nil {
		fmt.Println("Failed to read config, using defaults:", err)
		return servo.DefaultConfig()
	}

	var fc fileConfig
	if err := json.Unmarshal(raw, &fc); err != nil {
		fmt.Println("Corrupt config, using defaults:", err)
		return servo.DefaultConfig()
	}
	config, err := fc.toConfig()
	if err != nil {
		fmt.Println("Invalid config, using defaults:", err)
		return servo.DefaultConfig()
	}
	return config
}

func (fc fileConfig) toConfig() (servo.Config, error) {
	defaultMode, err := servo.ParseMode(fc.DefaultMode)
	if err != nil {
		return servo.Config{}, err
	}
	config := servo.Config{
		ServoChannel: fc.ServoChannel,
		DefaultMode:  defaultMode,
		Modes:        map[servo.Mode]servo.ModeConfig{},
		MinAngle:     fc.MinAngle,
		MaxAngle:     fc.MaxAngle,
		CenterAngle:  fc.CenterAngle,
	}
	for name, fm := range fc.Modes {
		mode, err := servo.ParseMode(name)
		if err != nil {
			return servo.Config{}, err
		}
		mc := servo.ModeConfig{Sensitivity: fm.Sensitivity}
		if fm.MinAngle != nil {
			mc.MinAngle = *fm.MinAngle
		}
		if fm.MaxAngle != nil {
			mc.MaxAngle = *fm.MaxAngle
		}
		config.Modes[mode] = mc
	}
	for _, mode := range []servo.Mode{servo.ModeDirect, servo.ModeFine, servo.ModeRange} {
		if _, ok := config.Modes[mode]; !ok {
			return servo.Config{}, fmt.Errorf("config missing mode %v", mode)
		}
	}
	return config, nil
}

func (s *Store) writeConfig(config servo.Config) error {
	fc := fileConfig{
		ServoChannel: config.ServoChannel,
		DefaultMode:  config.DefaultMode.String(),
		Modes:        map[string]fileModeConfig{},
		MinAngle:     config.MinAngle,
		MaxAngle:     config.MaxAngle,
		CenterAngle:  config.CenterAngle,
	}
	for mode, mc := range config.Modes {
		fm := fileModeConfig{Sensitivity: mc.Sensitivity}
		if mode == servo.ModeRange {
			minA, maxA := mc.MinAngle, mc.MaxAngle
			fm.MinAngle = &minA
			fm.MaxAngle = &maxA
		}
		fc.Modes[mode.String()] = fm
	}
	raw, err := json.MarshalIndent(&fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.ConfigPath, raw, 0666)
}

// LoadState returns the persisted position, if there is a usable one.
// Corrupt state is treated the same as no state.
func (s *Store) LoadState() (PersistedState, bool) {
	raw, err := os.ReadFile(s.StatePath)
	if err != nil {
		return PersistedState{}, false
	}
	var ps PersistedState
	if err := json.Unmarshal(raw, &ps); err != nil {
		fmt.Println("Corrupt state file, ignoring:", err)
		return PersistedState{}, false
	}
	if _, err := servo.ParseMode(ps.Mode); err != nil {
		fmt.Println("State file has unknown mode, ignoring:", err)
		return PersistedState{}, false
	}
	return ps, true
}

func (s *Store) SaveState(angle float64, mode servo.Mode) error {
	ps := PersistedState{
		LastPosition: angle,
		Mode:         mode.String(),
		Timestamp:    time.Now().Format(time.RFC3339),
	}
	raw, err := json.MarshalIndent(&ps, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.StatePath, raw, 0666); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	fmt.Printf("State saved: %.1f degrees in %v mode\n", angle, mode)
	return nil
}
