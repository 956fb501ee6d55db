// Package quantize drives an external quantizer and rearranges its palette
// for run-length coded subtitle formats.
package quantize

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// ErrPaletteOverflow is returned when the final palette needs more than 256
// entries.
var ErrPaletteOverflow = errors.New("palette exceeds 256 entries")

const paletteLimit = 256

// Options configures one quantization.
type Options struct {
	MaxColors int // 1..256
	Quality   int
	Speed     int
	Dither    float64
	// RLESafe reserves palette entry 0 for a single guard pixel.
	RLESafe bool
}

// Result is a quantized bitmap.
type Result struct {
	Image   *image.Paletted
	Retried bool
}

// Adapter wraps a Quantizer with palette post-processing. It is safe for
// concurrent use; calls into the wrapped Quantizer are serialized.
type Adapter struct {
	mu        sync.Mutex
	quantizer ports.Quantizer
	logger    ports.Logger
}

// New creates a new Adapter.
func New(quantizer ports.Quantizer, logger ports.Logger) *Adapter {
	return &Adapter{
		quantizer: quantizer,
		logger:    logger.WithComponent("quantize"),
	}
}

// Quantize reduces img to a palette image with the same bounds. When RLESafe
// is set, entry 0 takes the color of the first guard point (img's origin if
// none is given) and every guard pixel with that color is rewritten to 0.
func (a *Adapter) Quantize(img *image.NRGBA, opts Options, guards ...image.Point) (Result, error) {
	if img.Rect.Empty() {
		return Result{}, errors.New("quantize: empty image")
	}
	reserve := 0
	if opts.RLESafe {
		reserve = 1
	}
	budget := min(opts.MaxColors, paletteLimit-reserve)
	if budget < 1 {
		return Result{}, fmt.Errorf("quantize: invalid color budget %d", opts.MaxColors)
	}
	transparentLast := opts.MaxColors+reserve >= paletteLimit

	params := ports.QuantizeParams{MaxColors: budget, Quality: opts.Quality, Speed: opts.Speed, Dither: opts.Dither}
	out, err := a.run(img, params)
	if err != nil {
		return Result{}, fmt.Errorf("quantize: %w", err)
	}

	retried := false
	if transparentLast && len(out.Palette) >= budget && opaqueLast(out.Palette) {
		a.logger.Debug("Palette is full with an opaque last entry, retrying with %d colors", budget-1)
		params.MaxColors = budget - 1
		out, err = a.run(img, params)
		if err != nil {
			return Result{}, fmt.Errorf("quantize retry: %w", err)
		}
		retried = true
	}
	if transparentLast && opaqueLast(out.Palette) && len(out.Palette) < paletteLimit-reserve {
		out.Palette = append(out.Palette, color.NRGBA{})
	}

	if len(out.Palette)+reserve > paletteLimit {
		return Result{}, fmt.Errorf("%w: %d", ErrPaletteOverflow, len(out.Palette)+reserve)
	}
	if opts.RLESafe {
		if len(guards) == 0 || !guards[0].In(out.Rect) {
			guards = append([]image.Point{out.Rect.Min}, guards...)
		}
		shiftForGuard(out, guards)
	}
	return Result{Image: out, Retried: retried}, nil
}

func (a *Adapter) run(img *image.NRGBA, params ports.QuantizeParams) (*image.Paletted, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.quantizer.Quantize(img, params)
}

func opaqueLast(p color.Palette) bool {
	if len(p) == 0 {
		return false
	}
	_, _, _, a := p[len(p)-1].RGBA()
	return a != 0
}

// shiftForGuard moves every index up by one and fills entry 0 with the
// color of the first guard pixel.
func shiftForGuard(img *image.Paletted, guards []image.Point) {
	for i := range img.Pix {
		img.Pix[i]++
	}
	first := img.ColorIndexAt(guards[0].X, guards[0].Y)

	pal := make(color.Palette, len(img.Palette)+1)
	copy(pal[1:], img.Palette)
	pal[0] = pal[first]
	img.Palette = pal

	for _, g := range guards {
		if g.In(img.Rect) && img.ColorIndexAt(g.X, g.Y) == first {
			img.SetColorIndex(g.X, g.Y, 0)
		}
	}
}
