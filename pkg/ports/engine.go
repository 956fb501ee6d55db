// Package ports defines interfaces for external dependencies.
package ports

import (
	"image/color"
)

// Glyph is one positioned coverage bitmap produced by the rendering engine.
// Coverage holds Height rows of Stride bytes; Color.A is the glyph opacity.
type Glyph struct {
	X, Y     int
	Width    int
	Height   int
	Stride   int
	Coverage []byte
	Color    color.NRGBA
}

// SubtitleRenderer abstracts a subtitle typesetting engine bound to one script.
// Query timestamps are expected to be non-decreasing.
type SubtitleRenderer interface {
	// RenderAt returns the glyphs visible at ms. A nil slice means nothing is
	// on screen. changed reports whether the output differs from the
	// previous call.
	RenderAt(ms int64) (glyphs []Glyph, changed bool, err error)

	// NextChange returns the absolute timestamp of the next change strictly
	// after ms. ok is false when the script has no further events.
	NextChange(ms int64) (next int64, ok bool)

	// Close releases the engine and its fonts.
	Close() error
}

// EngineOptions configures the rendering engine.
type EngineOptions struct {
	FrameWidth    int // Render surface width
	FrameHeight   int // Render surface height
	StorageWidth  int // Script coordinate space width
	StorageHeight int // Script coordinate space height
	PixelAspect   float64
	FontDir       string
	Hinting       bool

	// Default style for cues without one. Zero values keep the engine defaults.
	FontSize     float64 // Points at storage height
	OutlineWidth float64
	FillColor    color.NRGBA
	OutlineColor color.NRGBA
}

// EngineOpener creates a renderer for a script file.
type EngineOpener interface {
	Open(path string, opts EngineOptions) (SubtitleRenderer, error)
}
