// Package mcquantizer provides a median cut quantizer built on go-quantize
// with Floyd-Steinberg remapping from x/image/draw.
package mcquantizer

import (
	"errors"
	"image"
	"image/color"

	"github.com/ericpauley/go-quantize/quantize"
	"golang.org/x/image/draw"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// Quantizer implements ports.Quantizer.
type Quantizer struct{}

// New creates a new Quantizer.
func New() *Quantizer {
	return &Quantizer{}
}

// Quantize builds a palette of at most params.MaxColors entries and remaps
// img onto it. Fully transparent pixels share one transparent entry, placed
// last.
func (q *Quantizer) Quantize(img *image.NRGBA, params ports.QuantizeParams) (*image.Paletted, error) {
	b := img.Bounds()
	if b.Empty() {
		return nil, errors.New("empty image")
	}
	if params.MaxColors < 1 || params.MaxColors > 256 {
		return nil, errors.New("color budget out of range")
	}

	transparent := hasTransparent(img)
	budget := params.MaxColors
	if transparent {
		budget--
	}

	var pal color.Palette
	if budget > 0 {
		mc := quantize.MedianCutQuantizer{
			Aggregation: aggregation(params.Quality),
			Weighting:   alphaWeight,
		}
		for _, c := range mc.Quantize(make(color.Palette, 0, budget), sample(img, params.Speed)) {
			pal = appendUnique(pal, color.NRGBAModel.Convert(c).(color.NRGBA))
		}
		pal = dropTransparent(pal)
	}
	if transparent || len(pal) == 0 {
		pal = append(pal, color.NRGBA{})
	}

	out := image.NewPaletted(b, pal)
	if params.Dither > 0 {
		draw.FloydSteinberg.Draw(out, b, img, b.Min)
	} else {
		draw.Draw(out, b, img, b.Min, draw.Src)
	}
	if transparent {
		clearTransparent(out, img, uint8(len(pal)-1))
	}
	return out, nil
}

var _ ports.Quantizer = (*Quantizer)(nil)

// aggregation favours averaged bucket colors at high quality and the most
// frequent color otherwise.
func aggregation(quality int) quantize.AggregationType {
	if quality >= 50 {
		return quantize.Mean
	}
	return quantize.Mode
}

// alphaWeight keeps every weight nonzero so all-transparent buckets still
// aggregate.
func alphaWeight(img image.Image, x, y int) uint32 {
	_, _, _, a := img.At(x, y).RGBA()
	return 1 + a>>8
}

// sample shrinks the palette source for speeds above 3.
func sample(img *image.NRGBA, speed int) image.Image {
	factor := speed / 3
	b := img.Bounds()
	if factor <= 1 || b.Dx() < factor*8 || b.Dy() < factor*8 {
		return img
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()/factor, b.Dy()/factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func hasTransparent(img *image.NRGBA) bool {
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for i := 3; i < len(row); i += 4 {
			if row[i] == 0 {
				return true
			}
		}
	}
	return false
}

func appendUnique(pal color.Palette, c color.NRGBA) color.Palette {
	for _, p := range pal {
		if p == c {
			return pal
		}
	}
	return append(pal, c)
}

func dropTransparent(pal color.Palette) color.Palette {
	out := pal[:0]
	for _, c := range pal {
		if c.(color.NRGBA).A != 0 {
			out = append(out, c)
		}
	}
	return out
}

// clearTransparent maps every fully transparent source pixel to idx, undoing
// error diffused into empty areas.
func clearTransparent(out *image.Paletted, src *image.NRGBA, idx uint8) {
	b := out.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if src.NRGBAAt(x, y).A == 0 {
				out.SetColorIndex(x, y, idx)
			}
		}
	}
}
