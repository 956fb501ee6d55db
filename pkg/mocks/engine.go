package mocks

import (
	"slices"
	"sync"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// Cue is a scripted interval [StartMs, EndMs) showing Glyphs.
type Cue struct {
	StartMs int64
	EndMs   int64
	Glyphs  []ports.Glyph
}

// Engine is a mock implementation of ports.SubtitleRenderer driven by cues.
// Without overrides it reports a change whenever the active cue set differs
// from the previous RenderAt call.
type Engine struct {
	mu   sync.Mutex
	Cues []Cue

	RenderAtFunc   func(ms int64) ([]ports.Glyph, bool, error)
	NextChangeFunc func(ms int64) (int64, bool)
	CloseFunc      func() error

	RenderCalls []int64
	Closed      bool

	last []int
}

// NewEngine creates a mock engine for the given cues.
func NewEngine(cues ...Cue) *Engine {
	return &Engine{Cues: cues}
}

func (m *Engine) RenderAt(ms int64) ([]ports.Glyph, bool, error) {
	m.mu.Lock()
	m.RenderCalls = append(m.RenderCalls, ms)
	m.mu.Unlock()
	if m.RenderAtFunc != nil {
		return m.RenderAtFunc(ms)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var active []int
	var glyphs []ports.Glyph
	for i, c := range m.Cues {
		if c.StartMs <= ms && ms < c.EndMs {
			active = append(active, i)
			glyphs = append(glyphs, c.Glyphs...)
		}
	}
	changed := !slices.Equal(active, m.last)
	m.last = active
	if len(active) == 0 {
		return nil, changed, nil
	}
	return glyphs, changed, nil
}

func (m *Engine) NextChange(ms int64) (int64, bool) {
	if m.NextChangeFunc != nil {
		return m.NextChangeFunc(ms)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	next, ok := int64(0), false
	for _, c := range m.Cues {
		for _, t := range [2]int64{c.StartMs, c.EndMs} {
			if t > ms && (!ok || t < next) {
				next, ok = t, true
			}
		}
	}
	return next, ok
}

func (m *Engine) Close() error {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

var _ ports.SubtitleRenderer = (*Engine)(nil)

// EngineOpener is a mock implementation of ports.EngineOpener.
type EngineOpener struct {
	Engine   ports.SubtitleRenderer
	OpenFunc func(path string, opts ports.EngineOptions) (ports.SubtitleRenderer, error)

	OpenedPath string
	Options    ports.EngineOptions
}

func (m *EngineOpener) Open(path string, opts ports.EngineOptions) (ports.SubtitleRenderer, error) {
	m.OpenedPath = path
	m.Options = opts
	if m.OpenFunc != nil {
		return m.OpenFunc(path, opts)
	}
	return m.Engine, nil
}

var _ ports.EngineOpener = (*EngineOpener)(nil)
