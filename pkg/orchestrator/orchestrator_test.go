package orchestrator

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/cubicibo/ass2bdnxml/pkg/adapters/logger"
	"github.com/cubicibo/ass2bdnxml/pkg/mocks"
	"github.com/cubicibo/ass2bdnxml/pkg/pipeline"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/composite"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/encode"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/quantize"
	"github.com/cubicibo/ass2bdnxml/pkg/stages/sample"
	"github.com/cubicibo/ass2bdnxml/pkg/timecode"
)

func glyph(x, y, w, h int) ports.Glyph {
	return ports.Glyph{
		X: x, Y: y, Width: w, Height: h, Stride: w,
		Coverage: bytes.Repeat([]byte{255}, w*h),
		Color:    color.NRGBA{R: 240, G: 240, B: 16, A: 255},
	}
}

type fixture struct {
	engine *mocks.Engine
	opener *mocks.EngineOpener
	codec  *mocks.ImageCodec
	quant  *mocks.Quantizer
	fs     *mocks.FileSystem
	sink   *mocks.DebugSink
}

func newFixture(cues ...mocks.Cue) *fixture {
	engine := mocks.NewEngine(cues...)
	return &fixture{
		engine: engine,
		opener: &mocks.EngineOpener{Engine: engine},
		codec:  mocks.NewImageCodec(),
		quant:  &mocks.Quantizer{},
		fs:     mocks.NewFileSystem(),
		sink:   mocks.NewDebugSink(false),
	}
}

func (fx *fixture) orchestrator(opts encode.Options) *Orchestrator {
	log := logger.NewNoop()
	comp := composite.NewStage(composite.Options{MinSize: composite.DefaultMinSize}, log)
	enc := encode.NewStage(fx.codec, quantize.New(fx.quant, log), fx.sink, log, opts)
	return New(fx.opener, sample.NewStage(comp, log), enc, fx.fs, fx.sink, log)
}

func testConfig(t *testing.T) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ScriptPath = "movie.ass"
	cfg.OutputDir = "out"
	cfg.Engine.FrameWidth = 64
	cfg.Engine.FrameHeight = 48
	r, err := timecode.LookupFrameRate("23.976")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Rate = r
	return cfg
}

func TestOrchestrator_Run_SingleCue(t *testing.T) {
	fx := newFixture(mocks.Cue{StartMs: 0, EndMs: 1000, Glyphs: []ports.Glyph{glyph(10, 10, 20, 10)}})
	cfg := testConfig(t)

	result, err := fx.orchestrator(encode.Options{OutputDir: "out"}).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if result.Events != 1 {
		t.Fatalf("expected 1 event, got %d", result.Events)
	}
	if result.RunID == "" {
		t.Error("expected a run id")
	}
	if !fx.engine.Closed {
		t.Error("engine was not closed")
	}
	if fx.opener.OpenedPath != "movie.ass" || fx.opener.Options.FrameWidth != 64 {
		t.Errorf("engine opened with %q %+v", fx.opener.OpenedPath, fx.opener.Options)
	}

	if _, ok := fx.codec.Get("out/00000000.png"); !ok {
		t.Errorf("bitmap not written, got %v", fx.codec.Paths())
	}

	data, err := fx.fs.ReadFile("out/bdn.xml")
	if err != nil {
		t.Fatalf("bdn.xml not written: %v", err)
	}
	xml := string(data)
	for _, want := range []string{
		`InTC="00:00:00:00" OutTC="00:00:01:00"`,
		`NumberofEvents="1"`,
		`FrameRate="23.976"`,
		`<Graphic Width="20" Height="10" X="938" Y="526">00000000.png</Graphic>`,
	} {
		if !strings.Contains(xml, want) {
			t.Errorf("bdn.xml missing %q\n%s", want, xml)
		}
	}
}

func TestOrchestrator_Run_ParallelMatchesInline(t *testing.T) {
	cues := []mocks.Cue{
		{StartMs: 0, EndMs: 500, Glyphs: []ports.Glyph{glyph(2, 2, 12, 12)}},
		{StartMs: 1000, EndMs: 1500, Glyphs: []ports.Glyph{glyph(20, 20, 16, 8)}},
		{StartMs: 1500, EndMs: 2500, Glyphs: []ports.Glyph{glyph(30, 4, 8, 30)}},
		{StartMs: 4000, EndMs: 4100, Glyphs: []ports.Glyph{glyph(0, 40, 64, 8)}},
	}
	opts := encode.Options{OutputDir: "out", Quantize: &quantize.Options{MaxColors: 16}}

	run := func(workers int) (RunResult, *fixture) {
		fx := newFixture(cues...)
		cfg := testConfig(t)
		cfg.Workers = workers
		result, err := fx.orchestrator(opts).Run(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Run(workers=%d) error = %v", workers, err)
		}
		return result, fx
	}

	inline, fxInline := run(1)
	parallel, fxParallel := run(4)

	if inline.Events != 4 || parallel.Events != 4 {
		t.Fatalf("events inline=%d parallel=%d, want 4", inline.Events, parallel.Events)
	}
	a, _ := fxInline.fs.ReadFile("out/bdn.xml")
	b, _ := fxParallel.fs.ReadFile("out/bdn.xml")
	if !bytes.Equal(a, b) {
		t.Errorf("parallel description differs from inline\ninline:\n%s\nparallel:\n%s", a, b)
	}
	if got, want := fxParallel.codec.Paths(), fxInline.codec.Paths(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("parallel wrote %v, inline wrote %v", got, want)
	}
	for _, p := range fxParallel.codec.Paths() {
		img, _ := fxParallel.codec.Get(p)
		if _, ok := img.(*image.Paletted); !ok {
			t.Errorf("%s is %T, want paletted", p, img)
		}
	}
}

func TestOrchestrator_Run_NoEvents(t *testing.T) {
	fx := newFixture()
	result, err := fx.orchestrator(encode.Options{OutputDir: "out"}).Run(context.Background(), testConfig(t))
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Events != 0 || result.Description != nil {
		t.Errorf("unexpected result %+v", result)
	}
	if ok, _ := fx.fs.Exists("out/bdn.xml"); ok {
		t.Error("bdn.xml written without events")
	}
}

func TestOrchestrator_Run_OpenFailure(t *testing.T) {
	fx := newFixture()
	fx.opener.OpenFunc = func(string, ports.EngineOptions) (ports.SubtitleRenderer, error) {
		return nil, errors.New("no such file")
	}
	_, err := fx.orchestrator(encode.Options{OutputDir: "out"}).Run(context.Background(), testConfig(t))
	if err == nil || !strings.Contains(err.Error(), "open engine") {
		t.Errorf("expected open engine error, got %v", err)
	}
}

func TestOrchestrator_Run_QuantizeFailureIsFatal(t *testing.T) {
	for _, workers := range []int{1, 3} {
		fx := newFixture(mocks.Cue{StartMs: 0, EndMs: 200, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8)}})
		fx.quant.QuantizeFunc = func(*image.NRGBA, ports.QuantizeParams) (*image.Paletted, error) {
			return nil, errors.New("out of memory")
		}
		cfg := testConfig(t)
		cfg.Workers = workers

		_, err := fx.orchestrator(encode.Options{OutputDir: "out", Quantize: &quantize.Options{MaxColors: 255}}).Run(context.Background(), cfg)
		if err == nil || !strings.Contains(err.Error(), "out of memory") {
			t.Errorf("workers=%d: expected quantize error, got %v", workers, err)
		}
		if !fx.engine.Closed {
			t.Errorf("workers=%d: engine was not closed", workers)
		}
		if ok, _ := fx.fs.Exists("out/bdn.xml"); ok {
			t.Errorf("workers=%d: bdn.xml written after a fatal error", workers)
		}
	}
}

func TestOrchestrator_Run_WriteFailureContinues(t *testing.T) {
	fx := newFixture(
		mocks.Cue{StartMs: 0, EndMs: 200, Glyphs: []ports.Glyph{glyph(0, 0, 8, 8)}},
		mocks.Cue{StartMs: 500, EndMs: 700, Glyphs: []ports.Glyph{glyph(10, 10, 8, 8)}},
	)
	fx.codec.FailSuffix = "00000000.png"
	cfg := testConfig(t)
	cfg.SummaryPath = "out/summary.md"

	result, err := fx.orchestrator(encode.Options{OutputDir: "out"}).Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Events != 2 || result.WriteFailures != 1 {
		t.Errorf("events=%d failures=%d, want 2 and 1", result.Events, result.WriteFailures)
	}

	data, err := fx.fs.ReadFile("out/bdn.xml")
	if err != nil {
		t.Fatalf("bdn.xml not written: %v", err)
	}
	if !strings.Contains(string(data), "00000000.png") {
		t.Error("description should still reference the failed bitmap")
	}

	summary, err := fx.fs.ReadFile("out/summary.md")
	if err != nil {
		t.Fatalf("summary not written: %v", err)
	}
	if !strings.Contains(string(summary), "- 00000000.png") {
		t.Errorf("summary does not list the missing bitmap:\n%s", summary)
	}
}

func TestOrchestrator_Run_WithDebugSink(t *testing.T) {
	fx := newFixture(mocks.Cue{StartMs: 0, EndMs: 300, Glyphs: []ports.Glyph{glyph(4, 4, 10, 10)}})
	fx.sink = mocks.NewDebugSink(true)

	if _, err := fx.orchestrator(encode.Options{OutputDir: "out"}).Run(context.Background(), testConfig(t)); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if fx.sink.FrameCount() != 1 {
		t.Errorf("expected 1 debug frame, got %d", fx.sink.FrameCount())
	}
	if !strings.Contains(string(fx.sink.EventsJSON), `"files": [`) {
		t.Errorf("unexpected events.json: %s", fx.sink.EventsJSON)
	}
}

func TestOrchestrator_Run_OffsetOverflow(t *testing.T) {
	fx := newFixture(mocks.Cue{StartMs: 0, EndMs: 300, Glyphs: []ports.Glyph{glyph(4, 4, 10, 10)}})
	cfg := testConfig(t)
	cfg.Offset = cfg.Rate.MaxFrame()

	_, err := fx.orchestrator(encode.Options{OutputDir: "out"}).Run(context.Background(), cfg)
	if !errors.Is(err, timecode.ErrTimecodeOverflow) {
		t.Errorf("expected overflow, got %v", err)
	}
}

func TestConfig_Margins(t *testing.T) {
	cfg := DefaultConfig()
	if x, y := cfg.Margins(); x != 0 || y != 0 {
		t.Errorf("full-size render margins = %d,%d", x, y)
	}
	cfg.Engine.FrameWidth = 1440
	cfg.Engine.FrameHeight = 1081
	if x, y := cfg.Margins(); x != 240 || y != 0 {
		t.Errorf("margins = %d,%d, want 240,0", x, y)
	}
}

var _ pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult] = (*encode.Stage)(nil)
