package description

import (
	"errors"
	"fmt"

	"github.com/cubicibo/ass2bdnxml/pkg/eventlist"
	"github.com/cubicibo/ass2bdnxml/pkg/frame"
	"github.com/cubicibo/ass2bdnxml/pkg/timecode"
)

// ErrNoEvents is returned by Build when the event list is empty.
var ErrNoEvents = errors.New("no events to describe")

// Builder provides a fluent interface for building a Description.
type Builder struct {
	desc    *Description
	rate    timecode.FrameRate
	hasRate bool
	offset  int64
	marginX int
	marginY int
	policy  ContentInPolicy
	events  []eventlist.Event
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		desc:   NewDescription(),
		policy: ContentInAuto,
	}
}

// WithTrack sets the track name and its ISO 639-2 language code.
func (b *Builder) WithTrack(name, language string) *Builder {
	b.desc.TrackName = name
	b.desc.Language = language
	return b
}

// WithFormat sets the target video format and the frame rate used for
// every timecode.
func (b *Builder) WithFormat(video timecode.VideoFormat, rate timecode.FrameRate) *Builder {
	b.desc.VideoFormat = video.Name
	b.desc.FrameRate = rate.Name
	b.rate = rate
	b.hasRate = true
	return b
}

// WithOffset sets the signed frame offset added to every timecode.
func (b *Builder) WithOffset(frames int64) *Builder {
	b.offset = frames
	return b
}

// WithMargins sets the position of the render area inside the video frame.
func (b *Builder) WithMargins(x, y int) *Builder {
	b.marginX = x
	b.marginY = y
	return b
}

// WithContentIn selects how ContentInTC is derived.
func (b *Builder) WithContentIn(p ContentInPolicy) *Builder {
	b.policy = p
	return b
}

// WithRunID tags the description with a run identifier.
func (b *Builder) WithRunID(id string) *Builder {
	b.desc.RunID = id
	return b
}

// WithStats sets the run counters.
func (b *Builder) WithStats(s Stats) *Builder {
	b.desc.Stats = s
	return b
}

// WithEvents sets the events in output order.
func (b *Builder) WithEvents(events []eventlist.Event) *Builder {
	b.events = events
	return b
}

// Build converts frame indices to timecodes and returns the Description.
// A timecode that falls before the first frame or past 99 hours is an error.
func (b *Builder) Build() (*Description, error) {
	if !b.hasRate {
		return nil, errors.New("frame rate not set")
	}
	if len(b.events) == 0 {
		return nil, ErrNoEvents
	}

	d := b.desc
	d.Events = make([]EventRecord, 0, len(b.events))
	for i, ev := range b.events {
		rec, err := b.record(i, ev)
		if err != nil {
			return nil, err
		}
		d.Events = append(d.Events, rec)
	}

	d.FirstInTC = d.Events[0].InTC
	d.LastOutTC = d.Events[len(d.Events)-1].OutTC
	d.ContentOutTC = d.LastOutTC

	switch b.policy {
	case ContentInFirstEvent:
		d.ContentInTC = d.FirstInTC
	case ContentInOffset:
		tc, err := b.tc(1)
		if err != nil {
			return nil, fmt.Errorf("content in: %w", err)
		}
		d.ContentInTC = tc
	case ContentInAuto, "":
		d.ContentInTC = d.FirstInTC
		if b.offset > 0 {
			tc, err := b.tc(1)
			if err != nil {
				return nil, fmt.Errorf("content in: %w", err)
			}
			d.ContentInTC = tc
		}
	default:
		return nil, fmt.Errorf("unknown content-in policy %q", b.policy)
	}
	return d, nil
}

func (b *Builder) tc(f int64) (string, error) {
	return timecode.Format(f+b.offset, b.rate)
}

func (b *Builder) record(i int, ev eventlist.Event) (EventRecord, error) {
	in, err := b.tc(ev.In)
	if err != nil {
		return EventRecord{}, fmt.Errorf("event %d in: %w", i, err)
	}
	out, err := b.tc(ev.Out)
	if err != nil {
		return EventRecord{}, fmt.Errorf("event %d out: %w", i, err)
	}

	boxes := []frame.BoundingBox{ev.Box}
	if ev.Split {
		boxes = ev.Crops[:]
	}
	if len(ev.Files) != len(boxes) {
		return EventRecord{}, fmt.Errorf("event %d has %d files for %d graphics", i, len(ev.Files), len(boxes))
	}

	rec := EventRecord{
		InTC:        in,
		OutTC:       out,
		Graphics:    make([]Graphic, len(boxes)),
		WriteFailed: ev.WriteErr != nil,
	}
	for k, box := range boxes {
		rec.Graphics[k] = Graphic{
			File:   ev.Files[k],
			Width:  box.Width(),
			Height: box.Height(),
			X:      box.X1 + b.marginX,
			Y:      box.Y1 + b.marginY,
		}
	}
	return rec, nil
}
