// Package nullsink provides a no-op frame sink implementation.
package nullsink

import (
	"image"

	"github.com/user/vidreader/pkg/ports"
)

// Sink is a no-op implementation of ports.FrameSink.
// It discards all output.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SaveFrame does nothing.
func (s *Sink) SaveFrame(position int64, img image.Image) error {
	return nil
}

// SaveIndexJSON does nothing.
func (s *Sink) SaveIndexJSON(data []byte) error {
	return nil
}

// SaveContactSheet does nothing.
func (s *Sink) SaveContactSheet(img image.Image) error {
	return nil
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
