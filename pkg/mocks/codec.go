package mocks

import (
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// ImageCodec is a mock implementation of ports.ImageCodec that keeps the
// written images in memory.
type ImageCodec struct {
	mu sync.RWMutex

	WriteRGBAFunc     func(path string, img *image.NRGBA) error
	WritePalettedFunc func(path string, img *image.Paletted) error

	// FailSuffix makes writes fail for paths with this suffix.
	FailSuffix string

	Images map[string]image.Image
}

// NewImageCodec creates a new mock ImageCodec.
func NewImageCodec() *ImageCodec {
	return &ImageCodec{Images: make(map[string]image.Image)}
}

func (m *ImageCodec) WriteRGBA(path string, img *image.NRGBA) error {
	if m.WriteRGBAFunc != nil {
		return m.WriteRGBAFunc(path, img)
	}
	return m.store(path, img)
}

func (m *ImageCodec) WritePaletted(path string, img *image.Paletted) error {
	if m.WritePalettedFunc != nil {
		return m.WritePalettedFunc(path, img)
	}
	return m.store(path, img)
}

func (m *ImageCodec) store(path string, img image.Image) error {
	if m.FailSuffix != "" && strings.HasSuffix(path, m.FailSuffix) {
		return fmt.Errorf("write %s: permission denied", path)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Images[path] = img
	return nil
}

// Paths returns the written paths, sorted.
func (m *ImageCodec) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	paths := make([]string, 0, len(m.Images))
	for p := range m.Images {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Get returns the image written at path.
func (m *ImageCodec) Get(path string) (image.Image, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	img, ok := m.Images[path]
	return img, ok
}

var _ ports.ImageCodec = (*ImageCodec)(nil)
