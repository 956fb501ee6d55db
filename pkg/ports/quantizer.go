package ports

import (
	"image"
)

// QuantizeParams controls palette reduction.
type QuantizeParams struct {
	MaxColors int     // Palette size limit, 2..256
	Quality   int     // 0-100, higher keeps more distinct colors
	Speed     int     // 1-10, higher samples fewer pixels
	Dither    float64 // 0 disables error diffusion
}

// Quantizer reduces a true-color image to a bounded palette.
// Implementations need not be safe for concurrent use; callers serialize.
type Quantizer interface {
	Quantize(img *image.NRGBA, params QuantizeParams) (*image.Paletted, error)
}
