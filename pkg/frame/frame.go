// Package frame holds the composited frame buffer, its active bounding box
// and the change detector used to deduplicate consecutive samples.
package frame

import (
	"bytes"
	"image"
)

// Frame is a straight-alpha RGBA buffer (image.NRGBA layout) with the
// active region found by the last composite and up to two split crops.
type Frame struct {
	Width  int
	Height int
	Stride int
	Pix    []byte

	Box   BoundingBox
	Crops [2]BoundingBox
}

// New allocates a cleared frame of the given size.
func New(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Stride: width * 4,
		Pix:    make([]byte, width*height*4),
		Box:    NoBox,
		Crops:  [2]BoundingBox{NoBox, NoBox},
	}
}

// Reset clears pixels, the active box and the crops.
func (f *Frame) Reset() {
	clear(f.Pix)
	f.Box = NoBox
	f.Crops = [2]BoundingBox{NoBox, NoBox}
}

// Bounds returns the full frame as a box.
func (f *Frame) Bounds() BoundingBox {
	return BoundingBox{X1: 0, X2: f.Width - 1, Y1: 0, Y2: f.Height - 1}
}

// Empty reports whether the last composite left no visible pixel.
func (f *Frame) Empty() bool {
	return !f.Box.IsSet()
}

// Split reports whether the frame carries two crop boxes.
func (f *Frame) Split() bool {
	return f.Crops[0].IsSet() && f.Crops[1].IsSet()
}

// Alpha returns the alpha sample at (x, y).
func (f *Frame) Alpha(x, y int) uint8 {
	return f.Pix[y*f.Stride+x*4+3]
}

// Clone deep-copies the frame.
func (f *Frame) Clone() *Frame {
	return f.CopyInto(nil)
}

// CopyInto deep-copies the frame into dst, reusing its buffer when large
// enough. A nil dst allocates.
func (f *Frame) CopyInto(dst *Frame) *Frame {
	if dst == nil {
		dst = &Frame{}
	}
	if cap(dst.Pix) < len(f.Pix) {
		dst.Pix = make([]byte, len(f.Pix))
	}
	dst.Pix = dst.Pix[:len(f.Pix)]
	copy(dst.Pix, f.Pix)
	dst.Width, dst.Height, dst.Stride = f.Width, f.Height, f.Stride
	dst.Box = f.Box
	dst.Crops = f.Crops
	return dst
}

// Image exposes the whole buffer as an image.NRGBA without copying.
func (f *Frame) Image() *image.NRGBA {
	return &image.NRGBA{
		Pix:    f.Pix,
		Stride: f.Stride,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}

// SubImage returns a view over box, keeping absolute coordinates.
func (f *Frame) SubImage(box BoundingBox) *image.NRGBA {
	return f.Image().SubImage(box.Rect()).(*image.NRGBA)
}

// HasChanged reports whether cur differs visually from prev. A nil prev is
// always a change. Pixel content is only compared when the geometry matches,
// and then only over the rows of the active region.
func HasChanged(cur, prev *Frame) bool {
	if prev == nil {
		return true
	}
	if cur.Box != prev.Box || cur.Width != prev.Width || cur.Height != prev.Height || cur.Stride != prev.Stride {
		return true
	}
	if !cur.Box.IsSet() {
		return false
	}
	lo := cur.Box.Y1 * cur.Stride
	hi := (cur.Box.Y2 + 1) * cur.Stride
	return !bytes.Equal(cur.Pix[lo:hi], prev.Pix[lo:hi])
}
