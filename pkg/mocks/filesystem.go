package mocks

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/cubicibo/ass2bdnxml/pkg/ports"
)

// FileSystem is an in-memory implementation of ports.FileSystem.
// Paths use forward slashes.
type FileSystem struct {
	mu    sync.RWMutex
	files map[string][]byte
	dirs  map[string]bool

	ReadFileFunc  func(path string) ([]byte, error)
	WriteFileFunc func(path string, data []byte) error
	MkdirAllFunc  func(path string) error
	ExistsFunc    func(path string) (bool, error)
	RemoveFunc    func(path string) error
	ReadDirFunc   func(path string) ([]string, error)

	// FailWrites makes WriteFile fail for paths with this suffix.
	FailWrites string
}

// NewFileSystem creates a new mock FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func (m *FileSystem) ReadFile(name string) ([]byte, error) {
	if m.ReadFileFunc != nil {
		return m.ReadFileFunc(name)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if data, ok := m.files[name]; ok {
		return data, nil
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

func (m *FileSystem) WriteFile(name string, data []byte) error {
	if m.WriteFileFunc != nil {
		return m.WriteFileFunc(name, data)
	}
	if m.FailWrites != "" && strings.HasSuffix(name, m.FailWrites) {
		return fmt.Errorf("write %s: disk full", name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return nil
}

func (m *FileSystem) MkdirAll(name string) error {
	if m.MkdirAllFunc != nil {
		return m.MkdirAllFunc(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dirs[name] = true
	return nil
}

func (m *FileSystem) Exists(name string) (bool, error) {
	if m.ExistsFunc != nil {
		return m.ExistsFunc(name)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.files[name]; ok {
		return true, nil
	}
	if _, ok := m.dirs[name]; ok {
		return true, nil
	}
	return false, nil
}

func (m *FileSystem) Remove(name string) error {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(name)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, name)
	delete(m.dirs, name)
	return nil
}

func (m *FileSystem) ReadDir(dir string) ([]string, error) {
	if m.ReadDirFunc != nil {
		return m.ReadDirFunc(dir)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var names []string
	for p := range m.files {
		if path.Dir(p) == path.Clean(dir) {
			names = append(names, path.Base(p))
		}
	}
	sort.Strings(names)
	return names, nil
}

// GetFile returns the contents of a file (for test verification).
func (m *FileSystem) GetFile(path string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path]
	return data, ok
}

// GetAllFiles returns all files (for test verification).
func (m *FileSystem) GetAllFiles() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string][]byte)
	for k, v := range m.files {
		result[k] = v
	}
	return result
}

var _ ports.FileSystem = (*FileSystem)(nil)
