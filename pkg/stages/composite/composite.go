// Package composite implements the frame compositor: glyph blending onto the
// working frame and active region detection.
package composite

import (
	"context"
	"errors"
	"math"

	"github.com/cubicibo/ass2bdnxml/pkg/frame"
	"github.com/cubicibo/ass2bdnxml/pkg/pipeline"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// DefaultMinSize is the smallest bitmap side accepted by BD players.
const DefaultMinSize = 8

// Options configures blending and box post-processing.
type Options struct {
	// LegacyAlpha enables the nonlinear, quantized alpha used for DVD output.
	LegacyAlpha bool
	// Dim scales the RGB channels of every visible pixel. 0 or 1 disables it.
	Dim float64
	// FullBitmaps forces the active box to the whole frame.
	FullBitmaps bool
	// MinSize expands the active box so both sides span at least this many
	// pixels. 0 disables it.
	MinSize int
}

// Stage blends glyphs onto a frame.
type Stage struct {
	opts   Options
	logger ports.Logger
}

// NewStage creates a new composite stage.
func NewStage(opts Options, logger ports.Logger) *Stage {
	return &Stage{
		opts:   opts,
		logger: logger.WithComponent("composite"),
	}
}

// Execute resets the frame, blends every glyph and computes the active box.
func (s *Stage) Execute(ctx context.Context, input pipeline.CompositeInput) (pipeline.CompositeResult, error) {
	if input.Frame == nil {
		return pipeline.CompositeResult{}, errors.New("composite: nil frame")
	}
	box := Composite(input.Frame, input.Glyphs, s.opts)
	if !box.IsSet() {
		return pipeline.CompositeResult{Box: box, Empty: true}, nil
	}
	return pipeline.CompositeResult{Box: box}, nil
}

// Composite renders glyphs onto f from a cleared state and returns the active
// box, which is also stored in f.Box. An unset box means nothing is visible.
func Composite(f *frame.Frame, glyphs []ports.Glyph, opts Options) frame.BoundingBox {
	f.Reset()
	for i := range glyphs {
		blendGlyph(f, &glyphs[i], opts.LegacyAlpha)
	}

	box := scan(f, opts.Dim)
	if !box.IsSet() {
		return box
	}
	if opts.FullBitmaps {
		box = f.Bounds()
	} else if opts.MinSize > 0 {
		box = box.EnsureMinSize(opts.MinSize, f.Bounds())
	}
	f.Box = box
	return box
}

// scan finds the bounding box of every pixel with nonzero alpha, dimming the
// visible pixels on the way.
func scan(f *frame.Frame, dim float64) frame.BoundingBox {
	box := frame.NoBox
	dimming := dim > 0 && dim < 1
	for y := 0; y < f.Height; y++ {
		row := f.Pix[y*f.Stride : y*f.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			px := row[x*4 : x*4+4 : x*4+4]
			if px[3] == 0 {
				continue
			}
			box = box.Include(x, y)
			if dimming {
				px[0] = uint8(float64(px[0]) * dim)
				px[1] = uint8(float64(px[1]) * dim)
				px[2] = uint8(float64(px[2]) * dim)
			}
		}
	}
	return box
}

func div256(i int) int {
	return (i + 128) >> 8
}

func div255(i int) int {
	return div256(i + div256(i))
}

// legacyAlpha maps a linear alpha to the two or three levels DVD subpictures
// can carry. Over an empty destination only on/off survives.
func legacyAlpha(k int, dstA uint8) int {
	if dstA == 0 {
		if k > 164 {
			return 255
		}
		return 0
	}
	boosted := min(int(255*math.Pow(float64(k)/255, 1/0.75)*1.2), 255)
	return boosted / 127 * 127
}

// blendGlyph composites one coverage mask with the "over" operator in
// straight alpha, rounding to nearest at every step.
func blendGlyph(f *frame.Frame, g *ports.Glyph, legacy bool) {
	opacity := int(g.Color.A)
	if opacity == 0 {
		return
	}
	src := [3]int{int(g.Color.R), int(g.Color.G), int(g.Color.B)}

	x0, y0 := max(g.X, 0), max(g.Y, 0)
	x1, y1 := min(g.X+g.Width, f.Width), min(g.Y+g.Height, f.Height)
	for y := y0; y < y1; y++ {
		cov := g.Coverage[(y-g.Y)*g.Stride:]
		dst := f.Pix[y*f.Stride:]
		for x := x0; x < x1; x++ {
			k := min(div255(int(cov[x-g.X])*opacity), 255)
			if k == 0 {
				continue
			}
			px := dst[x*4 : x*4+4 : x*4+4]
			dstA := px[3]
			if legacy {
				if k = legacyAlpha(k, dstA); k == 0 {
					continue
				}
			}
			if dstA == 0 {
				px[0], px[1], px[2], px[3] = uint8(src[0]), uint8(src[1]), uint8(src[2]), uint8(k)
				continue
			}
			da := int(dstA)
			outA := k*255 + da*(255-k)
			for c := 0; c < 3; c++ {
				v := (k*255*src[c] + int(px[c])*da*(255-k) + outA/2) / outA
				px[c] = uint8(min(v, 255))
			}
			px[3] = uint8(min(div255(outA), 255))
		}
	}
}
