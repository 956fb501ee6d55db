// Package sample implements the sampling driver. It walks the script frame by
// frame while something is on screen and jumps between changes while idle.
package sample

import (
	"context"
	"errors"
	"fmt"

	"github.com/cubicibo/ass2bdnxml/pkg/eventlist"
	"github.com/cubicibo/ass2bdnxml/pkg/frame"
	"github.com/cubicibo/ass2bdnxml/pkg/pipeline"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
	"github.com/cubicibo/ass2bdnxml/pkg/timecode"
)

// ErrNoProgress is returned when the engine reports a next change before
// the current timestamp.
var ErrNoProgress = errors.New("rendering engine went backwards in time")

// Stage runs one sampling pass.
type Stage struct {
	composite pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult]
	logger    ports.Logger
}

// NewStage creates a new sample stage.
func NewStage(composite pipeline.Stage[pipeline.CompositeInput, pipeline.CompositeResult], logger ports.Logger) *Stage {
	return &Stage{
		composite: composite,
		logger:    logger.WithComponent("sample"),
	}
}

// driver carries the state of one pass.
type driver struct {
	in  pipeline.SampleInput
	res pipeline.SampleResult

	f    int64
	step int64

	// prev is the retained snapshot of the last event, owned by the driver.
	prev *frame.Frame
	// open is the index of the event still being extended, or -1.
	open int
	// suppress is set by a changed-but-empty sample. Every unchanged sample
	// after it leaves the open event alone until the next changed or idle
	// sample clears it.
	suppress bool
}

// Execute samples the script until the engine reports no further change.
func (s *Stage) Execute(ctx context.Context, input pipeline.SampleInput) (pipeline.SampleResult, error) {
	if input.Renderer == nil || input.Frame == nil || input.Events == nil {
		return pipeline.SampleResult{}, errors.New("sample: renderer, frame and event list are required")
	}
	if err := input.Rate.Validate(); err != nil {
		return pipeline.SampleResult{}, err
	}

	d := &driver{in: input, f: 1, step: 1 + int64(max(input.Downsample, 0)), open: -1}
	limit := input.Rate.MaxFrame()

	for {
		select {
		case <-ctx.Done():
			return d.res, ctx.Err()
		default:
		}

		if d.f+d.step+input.Offset > limit {
			return d.res, fmt.Errorf("%w: frame %d", timecode.ErrTimecodeOverflow, d.f+input.Offset)
		}

		done, err := s.sampleOnce(ctx, d)
		if err != nil {
			return d.res, err
		}
		if done {
			break
		}
	}

	if err := d.closeOpen(ctx); err != nil {
		return d.res, err
	}
	d.res.LastFrame = d.f
	s.logger.Debug("Sampling finished at frame %d: %d samples, %d jumps, %d events", d.f, d.res.Samples, d.res.Jumps, d.res.Events)
	return d.res, nil
}

// sampleOnce renders the current frame and advances the state machine.
func (s *Stage) sampleOnce(ctx context.Context, d *driver) (bool, error) {
	ms := d.in.Rate.FrameToMs(d.f, d.in.Sampling)
	glyphs, changed, err := d.in.Renderer.RenderAt(ms)
	if err != nil {
		return false, fmt.Errorf("render at %d ms: %w", ms, err)
	}
	d.res.Samples++

	switch {
	case glyphs == nil:
		return s.idle(ctx, d, ms)

	case !changed:
		if d.open >= 0 && !d.suppress {
			if err := d.extend(); err != nil {
				return false, err
			}
		}
		d.f += d.step
		return false, nil
	}

	result, err := s.composite.Execute(ctx, pipeline.CompositeInput{Frame: d.in.Frame, Glyphs: glyphs})
	if err != nil {
		return false, fmt.Errorf("composite frame %d: %w", d.f, err)
	}
	if result.Empty {
		d.res.Spurious++
		d.suppress = true
		s.logger.Debug("Changed sample with nothing visible at frame %d", d.f)
		d.f += d.step
		return false, nil
	}
	d.suppress = false

	if !d.in.KeepDuplicates && d.open >= 0 && !frame.HasChanged(d.in.Frame, d.prev) {
		last, _ := d.in.Events.At(d.open)
		if last.Out == d.f {
			d.res.Merged++
			if err := d.extend(); err != nil {
				return false, err
			}
			d.f += d.step
			return false, nil
		}
	}

	if d.f+d.in.Offset < 1 {
		return false, fmt.Errorf("%w: event at frame %d with offset %d", timecode.ErrTimecodeUnderflow, d.f, d.in.Offset)
	}
	if err := d.closeOpen(ctx); err != nil {
		return false, err
	}
	idx, err := d.in.Events.Append(eventlist.Event{
		In:    d.f,
		Out:   d.f + d.step,
		Box:   d.in.Frame.Box,
		Crops: d.in.Frame.Crops,
	})
	if err != nil {
		return false, fmt.Errorf("append event: %w", err)
	}
	d.prev = d.in.Frame.CopyInto(d.prev)
	d.open = idx
	d.res.Events++
	s.logger.Debug("Event %d opened at frame %d, box %dx%d+%d+%d", idx, d.f, d.prev.Box.Width(), d.prev.Box.Height(), d.prev.Box.X1, d.prev.Box.Y1)
	d.f += d.step
	return false, nil
}

// idle handles a sample with nothing on screen: the open event ends and the
// driver jumps to the next change.
func (s *Stage) idle(ctx context.Context, d *driver, ms int64) (bool, error) {
	if err := d.closeOpen(ctx); err != nil {
		return false, err
	}
	d.suppress = false

	next, ok := d.in.Renderer.NextChange(ms)
	if !ok {
		if d.f > 1 {
			return true, nil
		}
		d.f++
		return false, nil
	}
	if next < ms {
		return false, fmt.Errorf("%w: next change %d ms before %d ms", ErrNoProgress, next, ms)
	}
	delta := max(d.in.Rate.MsToFrames(next-ms), 1)
	d.res.Jumps++
	s.logger.Debug("Idle at frame %d, jumping %d frames", d.f, delta)
	d.f += delta
	return false, nil
}

func (d *driver) extend() error {
	return d.in.Events.Update(d.open, func(e *eventlist.Event) {
		e.Out += d.step
	})
}

// closeOpen hands the open event to the handler. Its out point is final.
func (d *driver) closeOpen(ctx context.Context) error {
	if d.open < 0 {
		return nil
	}
	idx := d.open
	d.open = -1
	if d.in.OnEventClosed == nil {
		return nil
	}
	ev, err := d.in.Events.At(idx)
	if err != nil {
		return err
	}
	if err := d.in.OnEventClosed(ctx, idx, ev, d.prev); err != nil {
		return fmt.Errorf("event %d: %w", idx, err)
	}
	return nil
}
