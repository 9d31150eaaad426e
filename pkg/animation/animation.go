// Package animation renders the idle spectrum-analyzer style frames shown
// on the OLED. Purely cosmetic; the control loop just asks for one frame
// per tick.
package animation

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/fogleman/gg"
	yaml "gopkg.in/yaml.v2"

	"github.com/cyberdeck-team/cyberdeck/deck-controller/pkg/oled"
)

type Config struct {
	FPS       int
	Bars      int
	Decay     float64
	Threshold float64
}

func DefaultAnimationConfig() Config {
	return Config{
		FPS:       20,
		Bars:      16,
		Decay:     0.85,
		Threshold: 0.5,
	}
}

// LoadConfig overlays the YAML file (if present) onto the defaults and
// writes the in-use values back next to it, so what is running is always
// inspectable.
func LoadConfig(path string) Config {
	config := DefaultAnimationConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		fmt.Println("No animation config, using defaults:", err)
	} else if err := yaml.Unmarshal(raw, &config); err != nil {
		fmt.Println("Bad animation config, using defaults:", err)
		config = DefaultAnimationConfig()
	}
	if config.FPS <= 0 {
		config.FPS = DefaultAnimationConfig().FPS
	}
	if config.Bars <= 0 || config.Bars > oled.Width/2 {
		config.Bars = DefaultAnimationConfig().Bars
	}
	inUse, err := yaml.Marshal(&config)
	if err == nil {
		_ = os.WriteFile(path+".in-use", inUse, 0666)
	}
	return config
}

// Spectrum is a fake audio-spectrum animation: bars jump on random
// impulses and decay each frame.
type Spectrum struct {
	config Config
	levels []float64
	rng    *rand.Rand
}

func NewSpectrum(config Config) *Spectrum {
	return &Spectrum{
		config: config,
		levels: make([]float64, config.Bars),
		rng:    rand.New(rand.NewSource(1)),
	}
}

func (s *Spectrum) Advance(dt float64) {
	for i := range s.levels {
		s.levels[i] *= s.config.Decay
		if s.rng.Float64() < 0.3 {
			impulse := s.rng.Float64()
			if impulse > s.levels[i] {
				s.levels[i] = impulse
			}
		}
	}
}

// RenderFrame draws the bars and converts them to an SSD1306 page buffer.
func (s *Spectrum) RenderFrame() []byte {
	dc := gg.NewContext(oled.Width, oled.Height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()
	dc.SetRGB(1, 1, 1)

	barWidth := float64(oled.Width) / float64(s.config.Bars)
	for i, level := range s.levels {
		h := level * float64(oled.Height-2)
		x := float64(i) * barWidth
		dc.DrawRectangle(x+1, float64(oled.Height)-h, barWidth-2, h)
	}
	dc.Fill()

	return rasterize(dc, s.config.Threshold)
}

func rasterize(dc *gg.Context, threshold float64) []byte {
	buf := make([]byte, oled.FrameSize)
	img := dc.Image()
	for y := 0; y < oled.Height; y++ {
		for x := 0; x < oled.Width; x++ {
			r, g, b, _ := img.At(x, y).RGBA() // 16-bit pre-multiplied
			luma := float64(r+g+b) / (3 * 0xffff)
			if luma >= threshold {
				buf[x+(y/8)*oled.Width] |= 1 << uint(y%8)
			}
		}
	}
	return buf
}
