package mocks

import (
	"sync"
	"time"

	"github.com/user/vidreader/pkg/ports"
)

// Metrics is a mock ports.Metrics that counts events.
type Metrics struct {
	mu sync.Mutex

	Decoded       int
	Discarded     int
	Substituted   int
	Seeks         int
	AccurateSeeks int
	Batches       int
	BatchFrames   int
	IndexFrames   int
	IndexKeys     int
}

func (m *Metrics) FrameDecoded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Decoded++
}

func (m *Metrics) FrameDiscarded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Discarded++
}

func (m *Metrics) FrameSubstituted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Substituted++
}

func (m *Metrics) Seek(accurate bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Seeks++
	if accurate {
		m.AccurateSeeks++
	}
}

func (m *Metrics) BatchServed(frames int, elapsed time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Batches++
	m.BatchFrames += frames
}

func (m *Metrics) IndexBuilt(frames, keyframes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.IndexFrames = frames
	m.IndexKeys = keyframes
}

var _ ports.Metrics = (*Metrics)(nil)
