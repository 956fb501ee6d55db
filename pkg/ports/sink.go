package ports

import (
	"image"
)

// DebugSink abstracts debug output for intermediate results.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SaveEventFrame saves the active region of an event as RGBA.
	SaveEventFrame(index int, img image.Image) error

	// SaveEventsJSON saves the final event list as JSON.
	SaveEventsJSON(data []byte) error
}
