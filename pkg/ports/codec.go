package ports

import (
	"image"
)

// ImageCodec serializes bitmaps to image files. Implementations must be safe
// for concurrent use: with several workers, events are written in parallel.
type ImageCodec interface {
	// WriteRGBA stores a true-color bitmap.
	WriteRGBA(path string, img *image.NRGBA) error

	// WritePaletted stores an indexed bitmap with its palette.
	WritePaletted(path string, img *image.Paletted) error
}
