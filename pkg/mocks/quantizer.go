package mocks

import (
	"image"
	"image/color"
	"sync"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// Quantizer is a mock implementation of ports.Quantizer. Without an
// override it builds an exact palette in first-seen order and folds any
// color beyond MaxColors onto the last entry.
type Quantizer struct {
	mu sync.Mutex

	QuantizeFunc func(img *image.NRGBA, params ports.QuantizeParams) (*image.Paletted, error)

	Calls []ports.QuantizeParams
}

func (m *Quantizer) Quantize(img *image.NRGBA, params ports.QuantizeParams) (*image.Paletted, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, params)
	m.mu.Unlock()
	if m.QuantizeFunc != nil {
		return m.QuantizeFunc(img, params)
	}
	return ExactPalette(img, params.MaxColors), nil
}

// CallCount returns the number of Quantize calls.
func (m *Quantizer) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// ExactPalette maps every distinct color of img to its own palette entry.
func ExactPalette(img *image.NRGBA, maxColors int) *image.Paletted {
	if maxColors <= 0 || maxColors > 256 {
		maxColors = 256
	}
	b := img.Bounds()
	index := make(map[color.NRGBA]uint8)
	var pal color.Palette
	out := image.NewPaletted(b, nil)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.NRGBAAt(x, y)
			if c.A == 0 {
				c = color.NRGBA{}
			}
			i, ok := index[c]
			if !ok {
				if len(pal) < maxColors {
					i = uint8(len(pal))
					pal = append(pal, c)
				} else {
					i = uint8(len(pal) - 1)
				}
				index[c] = i
			}
			out.SetColorIndex(x, y, i)
		}
	}
	out.Palette = pal
	return out
}

var _ ports.Quantizer = (*Quantizer)(nil)
