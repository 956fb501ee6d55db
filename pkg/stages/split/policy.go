package split

import (
	"github.com/cubicibo/ass2bdnxml/pkg/frame"
)

// Policy decides whether an active region needs to be split.
type Policy interface {
	NeedsSplit(f *frame.Frame, box frame.BoundingBox) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(f *frame.Frame, box frame.BoundingBox) bool

// NeedsSplit implements Policy.
func (p PolicyFunc) NeedsSplit(f *frame.Frame, box frame.BoundingBox) bool {
	return p(f, box)
}

// Always tries to split every region.
type Always struct{}

// NeedsSplit implements Policy.
func (Always) NeedsSplit(*frame.Frame, frame.BoundingBox) bool { return true }

// AreaThreshold splits regions covering more than Ratio of the frame.
// A zero Ratio splits everything.
type AreaThreshold struct {
	Ratio float64
}

// NeedsSplit implements Policy.
func (p AreaThreshold) NeedsSplit(f *frame.Frame, box frame.BoundingBox) bool {
	if p.Ratio <= 0 {
		return true
	}
	return float64(box.Area()) > p.Ratio*float64(f.Width*f.Height)
}
