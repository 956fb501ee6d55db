package pipeline

import (
	"context"

	"github.com/cubicibo/ass2bdnxml/pkg/eventlist"
	"github.com/cubicibo/ass2bdnxml/pkg/frame"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
	"github.com/cubicibo/ass2bdnxml/pkg/timecode"
)

// =============================================================================
// Composite Stage Types
// =============================================================================

// CompositeInput is one sample to blend onto the working frame.
type CompositeInput struct {
	Frame  *frame.Frame
	Glyphs []ports.Glyph
}

// CompositeResult describes the active region after blending.
type CompositeResult struct {
	Box   frame.BoundingBox
	Empty bool
}

// =============================================================================
// Sample Stage Types
// =============================================================================

// EventHandler is called once per event, after its out point is final.
// f is the retained snapshot of the event and is only valid during the call.
type EventHandler func(ctx context.Context, index int, ev eventlist.Event, f *frame.Frame) error

// SampleInput drives one sampling pass over a script.
type SampleInput struct {
	Renderer ports.SubtitleRenderer
	Frame    *frame.Frame // Working buffer, render size
	Events   *eventlist.List

	Rate     timecode.FrameRate
	Sampling timecode.Sampling
	Offset   int64 // Frames added to every emitted timecode

	KeepDuplicates bool // Start a new event even when content is identical
	Downsample     int  // Extra frames skipped after each emitted sample

	OnEventClosed EventHandler
}

// SampleResult reports counters for the summary.
type SampleResult struct {
	Samples   int   // RenderAt calls
	Jumps     int   // Idle jumps driven by NextChange
	Spurious  int   // Changed samples with nothing visible
	Merged    int   // Changed samples identical to the open event
	Events    int   // Events appended
	LastFrame int64 // Frame index at termination
}

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput is one closed event to split, quantize and write.
type EncodeInput struct {
	Index int
	Event eventlist.Event
	Frame *frame.Frame
}

// EncodeResult holds what was written for one event.
type EncodeResult struct {
	Index    int
	Crops    [2]frame.BoundingBox
	Split    bool
	Files    []string
	Sizes    [][2]int
	Colors   int   // Palette entries used, 0 for RGBA output
	Retried  bool  // Quantization ran a second pass
	WriteErr error // Non-fatal image write failure
}

// Apply copies the encode outcome into an event.
func (r EncodeResult) Apply(e *eventlist.Event) {
	e.Crops = r.Crops
	e.Split = r.Split
	e.Files = r.Files
	e.Sizes = r.Sizes
	e.Retried = r.Retried
	e.WriteErr = r.WriteErr
}
