package sample

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cubicibo/ass2bdnxml/pkg/adapters/logger"
	"github.com/cubicibo/ass2bdnxml/pkg/eventlist"
	"github.com/cubicibo/ass2bdnxml/pkg/frame"
	"github.com/cubicibo/ass2bdnxml/pkg/mocks"
	"github.com/cubicibo/ass2bdnxml/pkg/pipeline"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/composite"
	"github.com/cubicibo/ass2bdnxml/pkg/timecode"
)

func glyph(x, y, w, h int, cov byte) ports.Glyph {
	return ports.Glyph{
		X: x, Y: y, Width: w, Height: h, Stride: w,
		Coverage: bytes.Repeat([]byte{cov}, w*h),
		Color:    color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

func rate(t *testing.T, name string) timecode.FrameRate {
	t.Helper()
	r, err := timecode.LookupFrameRate(name)
	require.NoError(t, err)
	return r
}

func newStage() *Stage {
	comp := composite.NewStage(composite.Options{MinSize: composite.DefaultMinSize}, logger.NewNoop())
	return NewStage(comp, logger.NewNoop())
}

type closed struct {
	index int
	ev    eventlist.Event
	box   frame.BoundingBox
}

func input(engine ports.SubtitleRenderer, r timecode.FrameRate, seen *[]closed) pipeline.SampleInput {
	return pipeline.SampleInput{
		Renderer: engine,
		Frame:    frame.New(64, 48),
		Events:   eventlist.New(),
		Rate:     r,
		OnEventClosed: func(ctx context.Context, index int, ev eventlist.Event, f *frame.Frame) error {
			if seen != nil {
				*seen = append(*seen, closed{index: index, ev: ev, box: f.Box})
			}
			return nil
		},
	}
}

func TestStage_Execute_SingleCue(t *testing.T) {
	r := rate(t, "23.976")
	engine := mocks.NewEngine(mocks.Cue{StartMs: 0, EndMs: 1000, Glyphs: []ports.Glyph{glyph(10, 10, 20, 10, 255)}})
	var seen []closed
	in := input(engine, r, &seen)

	res, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 1, in.Events.Len())
	ev, _ := in.Events.At(0)
	assert.Equal(t, int64(1), ev.In)
	assert.Equal(t, int64(25), ev.Out)

	end := r.FrameToMs(ev.Out, timecode.SamplePTSIn)
	assert.GreaterOrEqual(t, end, int64(1000))
	assert.Less(t, float64(end), 1000+r.FrameDurationMs())

	require.Len(t, seen, 1)
	assert.Equal(t, ev.Out, seen[0].ev.Out, "handler sees the final out point")
	assert.Equal(t, frame.BoundingBox{X1: 10, X2: 29, Y1: 10, Y2: 19}, seen[0].box)
	assert.Equal(t, 1, res.Events)
	assert.Equal(t, 25, res.Samples)
}

func TestStage_Execute_JumpsOverIdleTime(t *testing.T) {
	r := rate(t, "25")
	engine := mocks.NewEngine(mocks.Cue{StartMs: 10000, EndMs: 11000, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8, 255)}})
	in := input(engine, r, nil)

	res, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 1, in.Events.Len())
	ev, _ := in.Events.At(0)
	assert.Equal(t, int64(251), ev.In)
	assert.Equal(t, int64(276), ev.Out)
	assert.Equal(t, 1, res.Jumps)
	assert.Less(t, res.Samples, 40, "idle stretch must not be sampled frame by frame")
}

func TestStage_Execute_TwoCues(t *testing.T) {
	r := rate(t, "25")
	engine := mocks.NewEngine(
		mocks.Cue{StartMs: 0, EndMs: 200, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8, 255)}},
		mocks.Cue{StartMs: 200, EndMs: 400, Glyphs: []ports.Glyph{glyph(0, 20, 8, 8, 255)}},
	)
	var seen []closed
	in := input(engine, r, &seen)

	_, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	all := in.Events.All()
	require.Len(t, all, 2)
	assert.Equal(t, [2]int64{1, 6}, [2]int64{all[0].In, all[0].Out})
	assert.Equal(t, [2]int64{6, 11}, [2]int64{all[1].In, all[1].Out})
	require.Len(t, seen, 2)
	assert.Equal(t, 0, seen[0].index)
	assert.Equal(t, 1, seen[1].index)
}

// repeating reports a change at every sample inside [0, endMs) while always
// returning the same glyphs.
func repeating(endMs int64, g ports.Glyph) *mocks.Engine {
	engine := mocks.NewEngine()
	engine.RenderAtFunc = func(ms int64) ([]ports.Glyph, bool, error) {
		if ms >= endMs {
			return nil, true, nil
		}
		return []ports.Glyph{g}, true, nil
	}
	engine.NextChangeFunc = func(ms int64) (int64, bool) { return 0, false }
	return engine
}

func TestStage_Execute_IdenticalContentExtends(t *testing.T) {
	r := rate(t, "25")
	in := input(repeating(200, glyph(4, 4, 12, 12, 200)), r, nil)

	res, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 1, in.Events.Len())
	ev, _ := in.Events.At(0)
	assert.Equal(t, int64(1), ev.In)
	assert.Equal(t, int64(6), ev.Out, "one frame per identical sample")
	assert.Equal(t, 4, res.Merged)
}

func TestStage_Execute_KeepDuplicates(t *testing.T) {
	r := rate(t, "25")
	in := input(repeating(200, glyph(4, 4, 12, 12, 200)), r, nil)
	in.KeepDuplicates = true

	_, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	all := in.Events.All()
	require.Len(t, all, 5)
	for i, ev := range all {
		assert.Equal(t, int64(i+1), ev.In)
		assert.Equal(t, int64(i+2), ev.Out)
	}
}

func TestStage_Execute_SpuriousChangeSuppressesExtension(t *testing.T) {
	visible := []ports.Glyph{glyph(0, 0, 8, 8, 255)}
	blank := []ports.Glyph{glyph(0, 0, 8, 8, 0)}
	in := input(scriptedEngine(map[int64]scripted{
		1: {visible, true},
		2: {visible, false},
		3: {blank, true},
		4: {visible, false},
		5: {visible, true},
	}), rate(t, "25"), nil)

	res, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	all := in.Events.All()
	require.Len(t, all, 2)
	assert.Equal(t, [2]int64{1, 3}, [2]int64{all[0].In, all[0].Out})
	assert.Equal(t, [2]int64{5, 6}, [2]int64{all[1].In, all[1].Out})
	assert.Equal(t, 1, res.Spurious)
}

type scripted struct {
	glyphs  []ports.Glyph
	changed bool
}

// scriptedEngine answers per frame at 25 fps, where frame f is sampled at
// (f-1)*40 ms. Frames missing from the script render nothing.
func scriptedEngine(script map[int64]scripted) *mocks.Engine {
	engine := mocks.NewEngine()
	engine.RenderAtFunc = func(ms int64) ([]ports.Glyph, bool, error) {
		s, ok := script[ms/40+1]
		if !ok {
			return nil, true, nil
		}
		return s.glyphs, s.changed, nil
	}
	engine.NextChangeFunc = func(ms int64) (int64, bool) { return 0, false }
	return engine
}

func TestStage_Execute_SpuriousChangeHoldsUntilNextChange(t *testing.T) {
	visible := []ports.Glyph{glyph(0, 0, 8, 8, 255)}
	blank := []ports.Glyph{glyph(0, 0, 8, 8, 0)}
	in := input(scriptedEngine(map[int64]scripted{
		1: {visible, true},
		2: {visible, false},
		3: {blank, true},
		4: {visible, false},
		5: {visible, false},
		6: {visible, true},
	}), rate(t, "25"), nil)

	res, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	all := in.Events.All()
	require.Len(t, all, 2)
	assert.Equal(t, [2]int64{1, 3}, [2]int64{all[0].In, all[0].Out}, "unchanged samples after an empty change do not extend")
	assert.Equal(t, [2]int64{6, 7}, [2]int64{all[1].In, all[1].Out})
	assert.Equal(t, 1, res.Spurious)
}

func TestStage_Execute_SpuriousChangeKeepsDownsampleGrid(t *testing.T) {
	visible := []ports.Glyph{glyph(0, 0, 8, 8, 255)}
	blank := []ports.Glyph{glyph(0, 0, 8, 8, 0)}
	engine := scriptedEngine(map[int64]scripted{
		1: {visible, true},
		3: {blank, true},
		5: {visible, false},
		7: {visible, true},
	})
	in := input(engine, rate(t, "25"), nil)
	in.Downsample = 1

	_, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	for _, ms := range engine.RenderCalls {
		assert.Equal(t, int64(1), (ms/40+1)%2, "frame sampled at %d ms is off the grid", ms)
	}
	all := in.Events.All()
	require.Len(t, all, 2)
	assert.Equal(t, [2]int64{1, 3}, [2]int64{all[0].In, all[0].Out})
	assert.Equal(t, [2]int64{7, 9}, [2]int64{all[1].In, all[1].Out})
}

func TestStage_Execute_OffsetUnderflow(t *testing.T) {
	r := rate(t, "25")
	engine := mocks.NewEngine(mocks.Cue{StartMs: 0, EndMs: 1000, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8, 255)}})
	var seen []closed
	in := input(engine, r, &seen)
	in.Offset = -10

	_, err := newStage().Execute(context.Background(), in)
	assert.ErrorIs(t, err, timecode.ErrTimecodeUnderflow)
	assert.Empty(t, seen, "no event reaches the encoder")
	assert.Zero(t, in.Events.Len())
}

func TestStage_Execute_NegativeOffsetWithinRange(t *testing.T) {
	r := rate(t, "25")
	engine := mocks.NewEngine(mocks.Cue{StartMs: 10000, EndMs: 11000, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8, 255)}})
	in := input(engine, r, nil)
	in.Offset = -250

	_, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 1, in.Events.Len())
	ev, _ := in.Events.At(0)
	assert.Equal(t, int64(1), ev.In+in.Offset)
}

func TestStage_Execute_Downsample(t *testing.T) {
	r := rate(t, "25")
	engine := mocks.NewEngine(mocks.Cue{StartMs: 0, EndMs: 400, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8, 255)}})
	in := input(engine, r, nil)
	in.Downsample = 1

	res, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)

	require.Equal(t, 1, in.Events.Len())
	ev, _ := in.Events.At(0)
	assert.Equal(t, int64(1), ev.In)
	assert.Equal(t, int64(11), ev.Out)
	assert.Equal(t, 6, res.Samples)
}

func TestStage_Execute_EmptyScript(t *testing.T) {
	in := input(mocks.NewEngine(), rate(t, "24"), nil)

	res, err := newStage().Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Zero(t, in.Events.Len())
	assert.Equal(t, 2, res.Samples)
}

func TestStage_Execute_OffsetOverflow(t *testing.T) {
	r := rate(t, "25")
	engine := mocks.NewEngine(mocks.Cue{StartMs: 0, EndMs: 1000, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8, 255)}})
	in := input(engine, r, nil)
	in.Offset = r.MaxFrame() - 1

	_, err := newStage().Execute(context.Background(), in)
	assert.ErrorIs(t, err, timecode.ErrTimecodeOverflow)
}

func TestStage_Execute_EngineGoesBackwards(t *testing.T) {
	engine := mocks.NewEngine()
	engine.NextChangeFunc = func(ms int64) (int64, bool) { return ms - 10, true }
	in := input(engine, rate(t, "25"), nil)

	_, err := newStage().Execute(context.Background(), in)
	assert.ErrorIs(t, err, ErrNoProgress)
}

func TestStage_Execute_HandlerError(t *testing.T) {
	engine := mocks.NewEngine(mocks.Cue{StartMs: 0, EndMs: 100, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8, 255)}})
	in := input(engine, rate(t, "25"), nil)
	boom := errors.New("quantizer exploded")
	in.OnEventClosed = func(context.Context, int, eventlist.Event, *frame.Frame) error { return boom }

	_, err := newStage().Execute(context.Background(), in)
	assert.ErrorIs(t, err, boom)
}

func TestStage_Execute_RenderError(t *testing.T) {
	engine := mocks.NewEngine()
	engine.RenderAtFunc = func(ms int64) ([]ports.Glyph, bool, error) { return nil, false, errors.New("bad script") }
	in := input(engine, rate(t, "25"), nil)

	_, err := newStage().Execute(context.Background(), in)
	assert.Error(t, err)
}

func TestStage_Execute_ContextCancelled(t *testing.T) {
	engine := mocks.NewEngine(mocks.Cue{StartMs: 0, EndMs: 100000, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8, 255)}})
	in := input(engine, rate(t, "25"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newStage().Execute(ctx, in)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStage_Execute_MissingInput(t *testing.T) {
	_, err := newStage().Execute(context.Background(), pipeline.SampleInput{})
	assert.Error(t, err)
}
