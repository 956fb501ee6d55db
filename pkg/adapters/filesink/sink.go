// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// Encoder turns an image into file content.
type Encoder interface {
	Encode(img image.Image) ([]byte, error)
}

// Sink saves debug output to files.
type Sink struct {
	baseDir string
	fs      ports.FileSystem
	encoder Encoder
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem, encoder Encoder) *Sink {
	return &Sink{
		baseDir: baseDir,
		fs:      fs,
		encoder: encoder,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveEventFrame saves the active region of an event before quantization.
func (s *Sink) SaveEventFrame(index int, img image.Image) error {
	data, err := s.encoder.Encode(img)
	if err != nil {
		return fmt.Errorf("encode event frame: %w", err)
	}
	path := filepath.Join(s.baseDir, "events", fmt.Sprintf("event-%06d.png", index))
	return s.fs.WriteFile(path, data)
}

// SaveEventsJSON saves the final event list.
func (s *Sink) SaveEventsJSON(data []byte) error {
	path := filepath.Join(s.baseDir, "events.json")
	return s.fs.WriteFile(path, data)
}

// Ensure Sink implements ports.DebugSink
var _ ports.DebugSink = (*Sink)(nil)
