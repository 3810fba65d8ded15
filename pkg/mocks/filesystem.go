package mocks

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"sync"

	"github.com/user/vidreader/pkg/ports"
)

// FileSystem is an in-memory ports.FileSystem. Extraction jobs write frame
// images, index.json, sheets and summaries through it; tests inspect the
// result with File, Files and Written.
type FileSystem struct {
	mu      sync.RWMutex
	files   map[string][]byte
	dirs    map[string]bool
	written []string

	// WriteFileFunc replaces WriteFile when set, e.g. to inject a full disk.
	WriteFileFunc func(path string, data []byte) error
}

// NewFileSystem creates an empty FileSystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string][]byte),
		dirs:  make(map[string]bool),
	}
}

func notFound(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

func (m *FileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path.Clean(name)]
	if !ok {
		return nil, notFound("read", name)
	}
	return data, nil
}

func (m *FileSystem) WriteFile(name string, data []byte) error {
	if m.WriteFileFunc != nil {
		return m.WriteFileFunc(name, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	name = path.Clean(name)
	m.files[name] = append([]byte(nil), data...)
	m.written = append(m.written, name)
	return nil
}

func (m *FileSystem) MkdirAll(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for d := path.Clean(name); d != "." && d != "/"; d = path.Dir(d) {
		m.dirs[d] = true
	}
	return nil
}

func (m *FileSystem) Exists(name string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name = path.Clean(name)
	_, isFile := m.files[name]
	return isFile || m.dirs[name], nil
}

func (m *FileSystem) Size(name string) (int64, error) {
	data, err := m.ReadFile(name)
	if err != nil {
		return 0, fmt.Errorf("size: %w", err)
	}
	return int64(len(data)), nil
}

// Put stores data at name without recording it as written.
func (m *FileSystem) Put(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[path.Clean(name)] = data
}

// File returns the contents stored at name.
func (m *FileSystem) File(name string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.files[path.Clean(name)]
	return data, ok
}

// Files returns the stored paths in lexical order.
func (m *FileSystem) Files() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for name := range m.files {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Written returns the paths passed to WriteFile, in call order.
func (m *FileSystem) Written() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.written...)
}

var _ ports.FileSystem = (*FileSystem)(nil)
