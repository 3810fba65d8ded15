package mocks

import (
	"image"
	"sync"

	"github.com/user/vidreader/pkg/ports"
)

// FrameSink is a mock implementation of ports.FrameSink.
type FrameSink struct {
	mu sync.RWMutex

	enabled bool

	Frames       map[int64]image.Image
	IndexJSON    []byte
	ContactSheet image.Image

	SaveFrameFunc func(position int64, img image.Image) error
}

// NewFrameSink creates a new mock FrameSink.
func NewFrameSink(enabled bool) *FrameSink {
	return &FrameSink{
		enabled: enabled,
		Frames:  make(map[int64]image.Image),
	}
}

func (m *FrameSink) Enabled() bool {
	return m.enabled
}

func (m *FrameSink) SaveFrame(position int64, img image.Image) error {
	if m.SaveFrameFunc != nil {
		return m.SaveFrameFunc(position, img)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames[position] = img
	return nil
}

func (m *FrameSink) SaveIndexJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IndexJSON = data
	return nil
}

func (m *FrameSink) SaveContactSheet(img image.Image) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContactSheet = img
	return nil
}

// FrameCount returns the number of stored frames.
func (m *FrameSink) FrameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Frames)
}

var _ ports.FrameSink = (*FrameSink)(nil)
