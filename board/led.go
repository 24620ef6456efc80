package board

import (
	"time"

	"github.com/rs/zerolog"
)

// LEDDelay is the pause after each pixel update.
const LEDDelay = 500 * time.Millisecond

// Color is an RGB value.
type Color struct{ R, G, B uint8 }

// Pixel is an addressable RGB LED strip.
type Pixel interface {
	Begin()
	Clear()
	SetPixelColor(i int, c Color)
	Show()
	NumPixels() int
}

// TurnOffLED sets every pixel to black, showing and pausing after each one.
// A nil sleep uses time.Sleep.
func TurnOffLED(p Pixel, sleep func(time.Duration)) {
	if sleep == nil {
		sleep = time.Sleep
	}
	p.Begin()
	p.Clear()
	for i := 0; i < p.NumPixels(); i++ {
		p.SetPixelColor(i, Color{})
		p.Show()
		sleep(LEDDelay)
	}
}

// LogPixel is a host Pixel that records colors and logs every update.
type LogPixel struct {
	log    zerolog.Logger
	colors []Color
	shown  int
}

// NewLogPixel returns a strip of n pixels, all lit white.
func NewLogPixel(n int, log zerolog.Logger) *LogPixel {
	colors := make([]Color, n)
	for i := range colors {
		colors[i] = Color{255, 255, 255}
	}
	return &LogPixel{log: log, colors: colors}
}

func (p *LogPixel) Begin() { p.log.Debug().Int("pixels", len(p.colors)).Msg("pixel begin") }

func (p *LogPixel) Clear() {
	for i := range p.colors {
		p.colors[i] = Color{}
	}
}

func (p *LogPixel) SetPixelColor(i int, c Color) {
	if i < 0 || i >= len(p.colors) {
		return
	}
	p.colors[i] = c
}

func (p *LogPixel) Show() {
	p.shown++
	p.log.Debug().Interface("colors", p.colors).Msg("pixel show")
}

func (p *LogPixel) NumPixels() int { return len(p.colors) }

// Color returns the current color of pixel i.
func (p *LogPixel) Color(i int) Color { return p.colors[i] }

// Shown returns how many times Show was called.
func (p *LogPixel) Shown() int { return p.shown }
