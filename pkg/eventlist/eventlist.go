// Package eventlist stores the bitmap events retained by the sampling pass.
package eventlist

import (
	"errors"
	"fmt"

	"github.com/cubicibo/ass2bdnxml/pkg/frame"
)

// ErrIndexOutOfRange is returned when Set or At address a missing slot.
var ErrIndexOutOfRange = errors.New("event index out of range")

// growBatch is the number of slots reserved each time the list runs full.
const growBatch = 200

// Event is one retained bitmap interval. In is 1-based and Out is exclusive.
type Event struct {
	In  int64
	Out int64

	Box   frame.BoundingBox
	Crops [2]frame.BoundingBox
	Split bool

	// Files lists the written image paths, relative to the output directory.
	Files []string
	// Width and Height of each written graphic, matching Files.
	Sizes [][2]int

	// WriteErr records a non-fatal image write failure.
	WriteErr error
	// Retried reports that quantization needed a second pass.
	Retried bool
}

// Duration returns the number of frames covered by the event.
func (e Event) Duration() int64 {
	return e.Out - e.In
}

// List is an ordered, densely indexed collection of events.
// It is not safe for concurrent mutation.
type List struct {
	events []Event
}

// New creates an empty list with room for one batch.
func New() *List {
	return &List{events: make([]Event, 0, growBatch)}
}

// Len returns the number of events.
func (l *List) Len() int {
	return len(l.events)
}

// Append adds an event at the end and returns its index.
func (l *List) Append(e Event) (int, error) {
	if e.Out < e.In {
		return 0, fmt.Errorf("append event [%d,%d): out before in", e.In, e.Out)
	}
	l.reserve(1)
	l.events = append(l.events, e)
	return len(l.events) - 1, nil
}

// Set overwrites the event at i. Setting i == Len appends.
func (l *List) Set(i int, e Event) error {
	switch {
	case i < 0 || i > len(l.events):
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(l.events))
	case e.Out < e.In:
		return fmt.Errorf("set event %d [%d,%d): out before in", i, e.In, e.Out)
	case i == len(l.events):
		_, err := l.Append(e)
		return err
	}
	l.events[i] = e
	return nil
}

// At returns a copy of the event at i.
func (l *List) At(i int) (Event, error) {
	if i < 0 || i >= len(l.events) {
		return Event{}, fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(l.events))
	}
	return l.events[i], nil
}

// Update applies fn to the event at i in place.
func (l *List) Update(i int, fn func(*Event)) error {
	if i < 0 || i >= len(l.events) {
		return fmt.Errorf("%w: %d (len %d)", ErrIndexOutOfRange, i, len(l.events))
	}
	fn(&l.events[i])
	return nil
}

// Last returns the most recent event.
func (l *List) Last() (Event, bool) {
	if len(l.events) == 0 {
		return Event{}, false
	}
	return l.events[len(l.events)-1], true
}

// All returns a copy of every event in order.
func (l *List) All() []Event {
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// TotalFrames sums the duration of every event.
func (l *List) TotalFrames() int64 {
	var n int64
	for _, e := range l.events {
		n += e.Duration()
	}
	return n
}

func (l *List) reserve(n int) {
	if len(l.events)+n <= cap(l.events) {
		return
	}
	grown := make([]Event, len(l.events), cap(l.events)+growBatch)
	copy(grown, l.events)
	l.events = grown
}
