// Package split partitions an oversized active region into two tighter
// bitmaps separated by a blank line.
package split

import (
	"fmt"
	"strings"

	"github.com/cubicibo/ass2bdnxml/pkg/frame"
)

// Mode selects which cut axes are searched.
type Mode int

const (
	// ModeOff disables splitting.
	ModeOff Mode = iota
	// ModeHorizontal searches horizontal cut lines only.
	ModeHorizontal
	// ModeAuto adds vertical cuts when the region is tall.
	ModeAuto
	// ModeBoth always searches both axes.
	ModeBoth
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeOff:
		return "off"
	case ModeHorizontal:
		return "horizontal"
	case ModeAuto:
		return "auto"
	case ModeBoth:
		return "both"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode accepts a mode name or its numeric form.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "off", "none":
		return ModeOff, nil
	case "1", "horizontal", "h":
		return ModeHorizontal, nil
	case "2", "auto":
		return ModeAuto, nil
	case "3", "both", "vertical", "v":
		return ModeBoth, nil
	}
	return ModeOff, fmt.Errorf("unknown split mode %q", s)
}

const (
	// DefaultStride is the coarse step between candidate cut lines.
	DefaultStride = 8
	// DefaultTallRatio makes ModeAuto search vertically once the region is
	// taller than frame height / DefaultTallRatio.
	DefaultTallRatio = 2.5
)

// Options configures the cut search.
type Options struct {
	Mode Mode
	// AllowIntersect accepts cut lines that cross visible pixels.
	AllowIntersect bool
	// Margins is the minimum distance between the facing edges of the two
	// boxes, for horizontal [0] and vertical [1] cuts.
	Margins [2]int
	Stride  int
	// MinSize is applied to each resulting box, as for composited regions.
	MinSize   int
	TallRatio float64
}

func (o Options) withDefaults() Options {
	if o.Stride <= 0 {
		o.Stride = DefaultStride
	}
	if o.TallRatio <= 0 {
		o.TallRatio = DefaultTallRatio
	}
	return o
}

// Result is a chosen cut.
type Result struct {
	A, B     frame.BoundingBox
	Vertical bool
	// Cut is the first row (or column) of B's search region.
	Cut  int
	Area int
}

// extent is the span of visible pixels on one row or column. lo < 0 when
// nothing is visible.
type extent struct{ lo, hi int }

// Find searches the best cut of box. ok is false when no candidate is valid,
// in which case the caller keeps a single bitmap.
func Find(f *frame.Frame, box frame.BoundingBox, opts Options) (Result, bool) {
	if opts.Mode == ModeOff || !box.IsSet() {
		return Result{}, false
	}
	opts = opts.withDefaults()

	best, found := Result{}, false
	if box.Height() >= 2*opts.Stride {
		rows := rowExtents(f, box)
		best, found = search(rows, box, opts, opts.Margins[0], false)
	}

	tall := float64(box.Height()) > float64(f.Height)/opts.TallRatio
	if opts.Mode == ModeBoth || (opts.Mode == ModeAuto && tall) {
		if box.Width() >= 2*opts.Stride {
			cols := colExtents(f, box)
			if v, ok := search(cols, box, opts, opts.Margins[1], true); ok && (!found || v.Area < best.Area) {
				best, found = v, true
			}
		}
	}
	return best, found
}

// search scans cut positions along one axis: a coarse pass every stride
// lines, then every even line within one stride of the coarse winner.
func search(lines []extent, box frame.BoundingBox, opts Options, margin int, vertical bool) (Result, bool) {
	start, end := box.Y1, box.Y2
	if vertical {
		start, end = box.X1, box.X2
	}

	best, found := Result{}, false
	try := func(cut int) {
		if cut <= start || cut > end {
			return
		}
		if !opts.AllowIntersect && lines[cut-start].lo >= 0 {
			return
		}
		r, ok := evaluate(lines, box, cut, opts.MinSize, vertical)
		if !ok || facingGap(r) < margin {
			return
		}
		if !found || r.Area < best.Area {
			best, found = r, true
		}
	}

	for cut := start + opts.Stride; cut < end-opts.Stride; cut += opts.Stride {
		try(cut)
	}
	if !found {
		return best, false
	}
	coarse := best.Cut
	for cut := coarse - opts.Stride + 2; cut < coarse+opts.Stride; cut += 2 {
		if cut != coarse {
			try(cut)
		}
	}
	return best, true
}

func facingGap(r Result) int {
	if r.Vertical {
		return r.B.X1 - r.A.X2
	}
	return r.B.Y1 - r.A.Y2
}

// evaluate builds the tight boxes on both sides of cut. Either side being
// blank invalidates the cut.
func evaluate(lines []extent, box frame.BoundingBox, cut, minSize int, vertical bool) (Result, bool) {
	start, end := box.Y1, box.Y2
	if vertical {
		start, end = box.X1, box.X2
	}
	a, okA := tight(lines, start, start, cut-1)
	b, okB := tight(lines, start, cut, end)
	if !okA || !okB {
		return Result{}, false
	}

	regionA := frame.BoundingBox{X1: box.X1, X2: box.X2, Y1: start, Y2: cut - 1}
	regionB := frame.BoundingBox{X1: box.X1, X2: box.X2, Y1: cut, Y2: end}
	if vertical {
		a, b = transpose(a), transpose(b)
		regionA = frame.BoundingBox{X1: start, X2: cut - 1, Y1: box.Y1, Y2: box.Y2}
		regionB = frame.BoundingBox{X1: cut, X2: end, Y1: box.Y1, Y2: box.Y2}
	}
	a = align(a, regionA)
	b = align(b, regionB)
	if minSize > 0 {
		a = a.EnsureMinSize(minSize, regionA)
		b = b.EnsureMinSize(minSize, regionB)
	}
	return Result{A: a, B: b, Vertical: vertical, Cut: cut, Area: a.Area() + b.Area()}, true
}

// tight returns the visible extent of lines [from, to] with the line axis
// mapped to Y and the cross axis to X.
func tight(lines []extent, base, from, to int) (frame.BoundingBox, bool) {
	box := frame.NoBox
	for i := from; i <= to; i++ {
		e := lines[i-base]
		if e.lo < 0 {
			continue
		}
		if !box.IsSet() {
			box = frame.BoundingBox{X1: e.lo, X2: e.hi, Y1: i, Y2: i}
			continue
		}
		box.X1 = min(box.X1, e.lo)
		box.X2 = max(box.X2, e.hi)
		box.Y2 = i
	}
	return box, box.IsSet()
}

func transpose(b frame.BoundingBox) frame.BoundingBox {
	return frame.BoundingBox{X1: b.Y1, X2: b.Y2, Y1: b.X1, Y2: b.X2}
}

// align rounds the minimum corner down to even coordinates without leaving
// region.
func align(b, region frame.BoundingBox) frame.BoundingBox {
	b.X1 = max(b.X1-b.X1%2, region.X1)
	b.Y1 = max(b.Y1-b.Y1%2, region.Y1)
	return b
}

func rowExtents(f *frame.Frame, box frame.BoundingBox) []extent {
	rows := make([]extent, box.Height())
	for y := box.Y1; y <= box.Y2; y++ {
		e := extent{lo: -1, hi: -1}
		for x := box.X1; x <= box.X2; x++ {
			if f.Alpha(x, y) == 0 {
				continue
			}
			if e.lo < 0 {
				e.lo = x
			}
			e.hi = x
		}
		rows[y-box.Y1] = e
	}
	return rows
}

func colExtents(f *frame.Frame, box frame.BoundingBox) []extent {
	cols := make([]extent, box.Width())
	for i := range cols {
		cols[i] = extent{lo: -1, hi: -1}
	}
	for y := box.Y1; y <= box.Y2; y++ {
		for x := box.X1; x <= box.X2; x++ {
			if f.Alpha(x, y) == 0 {
				continue
			}
			e := &cols[x-box.X1]
			if e.lo < 0 {
				e.lo = y
			}
			e.hi = y
		}
	}
	return cols
}
