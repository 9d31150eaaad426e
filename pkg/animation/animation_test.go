package animation

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/oled"
)

func TestRenderFrameSize(t *testing.T) {
	s := NewSpectrum(DefaultAnimationConfig())
	frame := s.RenderFrame()
	if len(frame) != oled.FrameSize {
		t.Fatalf("expected %d byte frame, got %d", oled.FrameSize, len(frame))
	}
}

func TestFramesEvolve(t *testing.T) {
	s := NewSpectrum(DefaultAnimationConfig())
	s.Advance(0.05)
	first := s.RenderFrame()
	for i := 0; i < 10; i++ {
		s.Advance(0.05)
	}
	second := s.RenderFrame()
	if bytes.Equal(first, second) {
		t.Fatalf("animation produced identical frames")
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animation.yaml")
	config := LoadConfig(path)
	if config.FPS != DefaultAnimationConfig().FPS {
		t.Fatalf("expected default fps, got %d", config.FPS)
	}
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "animation.yaml")
	if err := os.WriteFile(path, []byte("fps: 30\nbars: 8\n"), 0666); err != nil {
		t.Fatal(err)
	}
	config := LoadConfig(path)
	if config.FPS != 30 || config.Bars != 8 {
		t.Fatalf("overlay failed: %+v", config)
	}
	if config.Decay != DefaultAnimationConfig().Decay {
		t.Fatalf("unset field should keep default, got %v", config.Decay)
	}
	if _, err := os.Stat(path + ".in-use"); err != nil {
		t.Fatalf("in-use config not written: %v", err)
	}
}
