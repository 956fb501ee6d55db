// Package orchestrator coordinates all pipeline stages.
package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ideamans/go-l10n"
	"golang.org/x/sync/errgroup"

	"github.com/cubicibo/ass2bdnxml/pkg/description"
	"github.com/cubicibo/ass2bdnxml/pkg/eventlist"
	"github.com/cubicibo/ass2bdnxml/pkg/frame"
	"github.com/cubicibo/ass2bdnxml/pkg/pipeline"
	"github.com/cubicibo/ass2bdnxml/pkg/ports"
	"github.com/cubicibo/ass2bdnxml/pkg/timecode"
)

// DefaultXMLName is the description file written into the output directory.
const DefaultXMLName = "bdn.xml"

// Config contains all configuration for the orchestrator.
type Config struct {
	// Input
	ScriptPath string
	Engine     ports.EngineOptions

	// Output
	OutputDir   string
	XMLName     string
	SummaryPath string // Markdown summary, empty to skip

	// Description
	TrackName string
	Language  string
	Video     timecode.VideoFormat
	ContentIn description.ContentInPolicy

	// Timing
	Rate     timecode.FrameRate
	Sampling timecode.Sampling
	Offset   int64

	// Sampling
	KeepDuplicates bool
	Downsample     int

	// Workers above 1 encode closed events concurrently.
	Workers int

	Version string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	video, _ := timecode.LookupVideoFormat("1080p")
	rate, _ := timecode.LookupFrameRate("23.976")
	return Config{
		Engine: ports.EngineOptions{
			FrameWidth:    video.Width,
			FrameHeight:   video.Height,
			StorageWidth:  video.Width,
			StorageHeight: video.Height,
			PixelAspect:   1,
			Hinting:       true,
		},
		OutputDir: ".",
		XMLName:   DefaultXMLName,
		TrackName: "Undefined",
		Language:  "und",
		Video:     video,
		ContentIn: description.ContentInAuto,
		Rate:      rate,
		Sampling:  timecode.SamplePTSIn,
		Workers:   1,
	}
}

// Margins returns the offset of the render area centred inside the video frame.
func (c Config) Margins() (int, int) {
	x, y := 0, 0
	if c.Engine.FrameWidth < c.Video.Width {
		x = (c.Video.Width - c.Engine.FrameWidth) / 2
	}
	if c.Engine.FrameHeight < c.Video.Height {
		y = (c.Video.Height - c.Engine.FrameHeight) / 2
	}
	return x, y
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	opener      ports.EngineOpener
	sampleStage pipeline.Stage[pipeline.SampleInput, pipeline.SampleResult]
	encodeStage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult]
	fs          ports.FileSystem
	sink        ports.DebugSink
	logger      ports.Logger
}

// New creates a new Orchestrator.
func New(
	opener ports.EngineOpener,
	sampleStage pipeline.Stage[pipeline.SampleInput, pipeline.SampleResult],
	encodeStage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult],
	fs ports.FileSystem,
	sink ports.DebugSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		opener:      opener,
		sampleStage: sampleStage,
		encodeStage: encodeStage,
		fs:          fs,
		sink:        sink,
		logger:      logger,
	}
}

// Run executes the complete pipeline.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	started := time.Now()
	result := RunResult{RunID: uuid.NewString()}

	o.logger.Info(l10n.F("Converting %s at %s fps (%s)", config.ScriptPath, config.Rate.Name, config.Video.Name))

	// 1. Open the rendering engine for the whole run
	renderer, err := o.opener.Open(config.ScriptPath, config.Engine)
	if err != nil {
		o.logger.Error(l10n.F("Failed to open script: %s", err))
		return result, fmt.Errorf("open engine: %w", err)
	}
	defer func() {
		if cerr := renderer.Close(); cerr != nil {
			o.logger.Warn(l10n.F("Failed to close rendering engine: %s", cerr))
		}
	}()

	if err := o.fs.MkdirAll(config.OutputDir); err != nil {
		o.logger.Error(l10n.F("Failed to create output directory: %s", err))
		return result, fmt.Errorf("create output directory: %w", err)
	}

	// 2. Sample the script, encoding each event as it closes
	events := eventlist.New()
	enc := newEncoder(ctx, o.encodeStage, config.Workers)
	o.logger.Info(l10n.F("Sampling with %d workers", enc.workers))

	sampled, err := o.sampleStage.Execute(enc.ctx, pipeline.SampleInput{
		Renderer:       renderer,
		Frame:          frame.New(config.Engine.FrameWidth, config.Engine.FrameHeight),
		Events:         events,
		Rate:           config.Rate,
		Sampling:       config.Sampling,
		Offset:         config.Offset,
		KeepDuplicates: config.KeepDuplicates,
		Downsample:     config.Downsample,
		OnEventClosed:  enc.handle,
	})
	encoded, werr := enc.wait()
	if werr != nil {
		err = werr
	}
	if err != nil {
		o.logger.Error(l10n.F("Failed to convert script: %s", err))
		return result, fmt.Errorf("sample stage: %w", err)
	}
	o.logger.Info(l10n.F("Sampled %d frames: %d events", sampled.LastFrame, events.Len()))

	// 3. Attach encode results to their events
	for _, r := range encoded {
		if err := events.Update(r.Index, r.Apply); err != nil {
			return result, fmt.Errorf("apply encode result: %w", err)
		}
	}
	result.fill(sampled, events, encoded)

	if o.sink.Enabled() {
		if data, err := json.MarshalIndent(debugEvents(events.All()), "", "  "); err == nil {
			if err := o.sink.SaveEventsJSON(data); err != nil {
				o.logger.Warn(l10n.F("Failed to save debug events: %s", err))
			}
		}
	}

	if events.Len() == 0 {
		o.logger.Warn(l10n.T("No events were produced, skipping description"))
		return result, nil
	}

	// 4. Write the description
	mx, my := config.Margins()
	result.Elapsed = time.Since(started)
	desc, err := description.NewBuilder().
		WithTrack(config.TrackName, config.Language).
		WithFormat(config.Video, config.Rate).
		WithOffset(config.Offset).
		WithMargins(mx, my).
		WithContentIn(config.ContentIn).
		WithRunID(result.RunID).
		WithStats(result.stats()).
		WithEvents(events.All()).
		Build()
	if err != nil {
		o.logger.Error(l10n.F("Failed to build description: %s", err))
		return result, fmt.Errorf("build description: %w", err)
	}
	result.Description = desc

	xmlName := config.XMLName
	if xmlName == "" {
		xmlName = DefaultXMLName
	}
	xmlPath := filepath.Join(config.OutputDir, xmlName)
	if err := description.NewWriter(description.NewXMLFormatter(), o.fs).Write(xmlPath, desc); err != nil {
		o.logger.Error(l10n.F("Failed to write description: %s", err))
		return result, fmt.Errorf("write description: %w", err)
	}
	result.XMLPath = xmlPath

	if config.SummaryPath != "" {
		md := description.NewMarkdownFormatter(
			description.WithTranslator(func(s string) string { return l10n.T(s) }),
			description.WithVersion(config.Version),
		)
		if err := description.NewWriter(md, o.fs).Write(config.SummaryPath, desc); err != nil {
			o.logger.Warn(l10n.F("Failed to write summary: %s", err))
		}
	}

	if result.WriteFailures > 0 {
		o.logger.Warn(l10n.F("%d events have missing bitmaps", result.WriteFailures))
	}
	o.logger.Info(l10n.F("Output saved to %s", xmlPath))
	return result, nil
}

// RunResult contains the results of a pipeline run for summary generation.
type RunResult struct {
	RunID string

	Samples  int
	Jumps    int
	Spurious int
	Merged   int
	Frames   int64 // Frames covered by events

	Events         int
	Files          int
	Pixels         int64
	WriteFailures  int // Events with at least one missing bitmap
	PaletteRetries int

	Elapsed     time.Duration
	XMLPath     string
	Description *description.Description
}

func (r *RunResult) fill(s pipeline.SampleResult, events *eventlist.List, encoded []pipeline.EncodeResult) {
	r.Samples = s.Samples
	r.Jumps = s.Jumps
	r.Spurious = s.Spurious
	r.Merged = s.Merged
	r.Frames = events.TotalFrames()
	r.Events = events.Len()
	for _, e := range encoded {
		r.Files += len(e.Files)
		for _, sz := range e.Sizes {
			r.Pixels += int64(sz[0]) * int64(sz[1])
		}
		if e.WriteErr != nil {
			r.WriteFailures++
		}
		if e.Retried {
			r.PaletteRetries++
		}
	}
}

func (r *RunResult) stats() description.Stats {
	return description.Stats{
		Samples:        r.Samples,
		Jumps:          r.Jumps,
		Spurious:       r.Spurious,
		Merged:         r.Merged,
		Frames:         r.Frames,
		Files:          r.Files,
		WriteFailures:  r.WriteFailures,
		PaletteRetries: r.PaletteRetries,
		Pixels:         r.Pixels,
		Elapsed:        r.Elapsed,
	}
}

// encoder runs the encode stage for each closed event, either inline or on a
// bounded errgroup fed with pooled frame snapshots.
type encoder struct {
	stage   pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult]
	workers int

	ctx   context.Context
	group *errgroup.Group
	pool  sync.Pool

	mu      sync.Mutex
	results []pipeline.EncodeResult
}

func newEncoder(ctx context.Context, stage pipeline.Stage[pipeline.EncodeInput, pipeline.EncodeResult], workers int) *encoder {
	e := &encoder{stage: stage, workers: max(workers, 1), ctx: ctx}
	if e.workers > 1 {
		e.group, e.ctx = errgroup.WithContext(ctx)
		e.group.SetLimit(e.workers)
	}
	return e
}

func (e *encoder) handle(ctx context.Context, index int, ev eventlist.Event, f *frame.Frame) error {
	if e.group == nil {
		res, err := e.stage.Execute(ctx, pipeline.EncodeInput{Index: index, Event: ev, Frame: f})
		if err != nil {
			return err
		}
		e.store(res)
		return nil
	}

	snap, _ := e.pool.Get().(*frame.Frame)
	snap = f.CopyInto(snap)
	e.group.Go(func() error {
		defer e.pool.Put(snap)
		res, err := e.stage.Execute(e.ctx, pipeline.EncodeInput{Index: index, Event: ev, Frame: snap})
		if err != nil {
			return fmt.Errorf("event %d: %w", index, err)
		}
		e.store(res)
		return nil
	})
	return nil
}

func (e *encoder) store(r pipeline.EncodeResult) {
	e.mu.Lock()
	e.results = append(e.results, r)
	e.mu.Unlock()
}

// wait blocks until every queued event is written.
func (e *encoder) wait() ([]pipeline.EncodeResult, error) {
	var err error
	if e.group != nil {
		err = e.group.Wait()
	}
	return e.results, err
}

type debugEvent struct {
	Index    int                 `json:"index"`
	In       int64               `json:"in"`
	Out      int64               `json:"out"`
	Box      frame.BoundingBox   `json:"box"`
	Split    bool                `json:"split"`
	Crops    []frame.BoundingBox `json:"crops,omitempty"`
	Files    []string            `json:"files"`
	Retried  bool                `json:"retried,omitempty"`
	WriteErr string              `json:"write_error,omitempty"`
}

func debugEvents(events []eventlist.Event) []debugEvent {
	out := make([]debugEvent, len(events))
	for i, ev := range events {
		d := debugEvent{
			Index:   i,
			In:      ev.In,
			Out:     ev.Out,
			Box:     ev.Box,
			Split:   ev.Split,
			Files:   ev.Files,
			Retried: ev.Retried,
		}
		if ev.Split {
			d.Crops = ev.Crops[:]
		}
		if ev.WriteErr != nil {
			d.WriteErr = ev.WriteErr.Error()
		}
		out[i] = d
	}
	return out
}
