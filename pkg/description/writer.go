package description

import (
	"fmt"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// Writer writes formatted descriptions through a FileSystem.
type Writer struct {
	formatter Formatter
	fs        ports.FileSystem
}

// NewWriter creates a new Writer with the given Formatter.
func NewWriter(formatter Formatter, fs ports.FileSystem) *Writer {
	return &Writer{
		formatter: formatter,
		fs:        fs,
	}
}

// Write formats d and writes it to path. Parent directories are created by
// the FileSystem.
func (w *Writer) Write(path string, d *Description) error {
	content, err := w.formatter.Format(d)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}
	if err := w.fs.WriteFile(path, content); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
