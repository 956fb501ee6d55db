package frame

import "image"

// BoundingBox is an inclusive pixel rectangle. A box with X1 < 0 is unset.
type BoundingBox struct {
	X1, X2 int
	Y1, Y2 int
}

// NoBox is the "unset" sentinel, distinct from any zero-area box.
var NoBox = BoundingBox{X1: -1, X2: -1, Y1: -1, Y2: -1}

// IsSet reports whether the box holds coordinates.
func (b BoundingBox) IsSet() bool {
	return b.X1 >= 0 && b.Y1 >= 0 && b.X2 >= b.X1 && b.Y2 >= b.Y1
}

// Width returns the number of columns covered by the box.
func (b BoundingBox) Width() int {
	if !b.IsSet() {
		return 0
	}
	return b.X2 - b.X1 + 1
}

// Height returns the number of rows covered by the box.
func (b BoundingBox) Height() int {
	if !b.IsSet() {
		return 0
	}
	return b.Y2 - b.Y1 + 1
}

// Area returns the pixel count of the box.
func (b BoundingBox) Area() int {
	return b.Width() * b.Height()
}

// Rect converts the box to a half-open image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	if !b.IsSet() {
		return image.Rectangle{}
	}
	return image.Rect(b.X1, b.Y1, b.X2+1, b.Y2+1)
}

// Include grows the box to cover (x, y). Minimum coordinates are aligned down
// to even values, which some DVD and BD players require.
func (b BoundingBox) Include(x, y int) BoundingBox {
	ex, ey := x-x%2, y-y%2
	if !b.IsSet() {
		return BoundingBox{X1: ex, X2: x, Y1: ey, Y2: y}
	}
	b.X1 = min(b.X1, ex)
	b.Y1 = min(b.Y1, ey)
	b.X2 = max(b.X2, x)
	b.Y2 = max(b.Y2, y)
	return b
}

// EnsureMinSize expands the box so that both sides span at least size
// pixels, staying inside bounds. Growth goes toward the side with room; when
// bounds itself is smaller than size the box is cropped to bounds.
func (b BoundingBox) EnsureMinSize(size int, bounds BoundingBox) BoundingBox {
	if !b.IsSet() || size <= 0 {
		return b
	}
	b.X1, b.X2 = growSpan(b.X1, b.X2, size, bounds.X1, bounds.X2)
	b.Y1, b.Y2 = growSpan(b.Y1, b.Y2, size, bounds.Y1, bounds.Y2)
	return b
}

func growSpan(lo, hi, size, minV, maxV int) (int, int) {
	if hi-lo+1 >= size {
		return lo, hi
	}
	hi = min(maxV, lo+size-1)
	if hi-lo+1 < size {
		lo = max(minV, hi-size+1)
		if lo%2 != 0 && lo-1 >= minV {
			lo--
		}
	}
	return lo, hi
}
