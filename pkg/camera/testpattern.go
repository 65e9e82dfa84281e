package camera

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"sync"
)

// TestPattern is a FrameSource that renders a moving color bar pattern, so
// the stream channel can be exercised without camera hardware.
type TestPattern struct {
	mu     sync.Mutex
	width  int
	height int
	frame  int
}

// NewTestPattern creates a test pattern source at the given resolution.
func NewTestPattern(width, height int) *TestPattern {
	if width <= 0 {
		width = 320
	}
	if height <= 0 {
		height = 240
	}
	return &TestPattern{width: width, height: height}
}

var barColors = []color.RGBA{
	{R: 255, G: 255, B: 255, A: 255},
	{R: 255, G: 255, B: 0, A: 255},
	{R: 0, G: 255, B: 255, A: 255},
	{R: 0, G: 255, B: 0, A: 255},
	{R: 255, G: 0, B: 255, A: 255},
	{R: 255, G: 0, B: 0, A: 255},
	{R: 0, G: 0, B: 255, A: 255},
}

// Capture implements FrameSource. Each call shifts the bars one step so
// clients can see the stream is live.
func (p *TestPattern) Capture() ([]byte, error) {
	p.mu.Lock()
	frame := p.frame
	p.frame++
	p.mu.Unlock()

	img := image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	barWidth := p.width / len(barColors)
	if barWidth == 0 {
		barWidth = 1
	}
	for x := 0; x < p.width; x++ {
		bar := ((x + frame) / barWidth) % len(barColors)
		c := barColors[bar]
		for y := 0; y < p.height; y++ {
			img.SetRGBA(x, y, c)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 70}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
