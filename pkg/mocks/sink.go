package mocks

import (
	"image"
	"sync"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	EventFrames map[int]image.Image
	EventsJSON  []byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:     enabled,
		EventFrames: make(map[int]image.Image),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SaveEventFrame(index int, img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventFrames[index] = img
	return nil
}

func (m *DebugSink) SaveEventsJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsJSON = data
	return nil
}

// FrameCount returns the number of saved event frames.
func (m *DebugSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.EventFrames)
}

var _ ports.DebugSink = (*DebugSink)(nil)
