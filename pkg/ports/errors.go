package ports

import (
	"errors"
	"fmt"
	"io"
)

// Reader error taxonomy. Components wrap these with context and callers
// match them with errors.Is.
var (
	// ErrNoSuchStream is returned when a stream selection is invalid or not video.
	ErrNoSuchStream = errors.New("vidreader: no such video stream")

	// ErrOutOfRange is returned when a frame position is outside [0, frame_count).
	ErrOutOfRange = errors.New("vidreader: frame position out of range")

	// ErrIndex is returned when the stream yields no decodable frames.
	ErrIndex = errors.New("vidreader: cannot index stream")

	// ErrDecode is returned when a frame cannot be decoded and no substitute is allowed.
	ErrDecode = errors.New("vidreader: decode failed")

	// ErrFaultToleranceExceeded is returned when substitutions exceed the configured threshold.
	ErrFaultToleranceExceeded = errors.New("vidreader: fault tolerance exceeded")

	// ErrSeekFailure is returned when the codec engine rejects a seek.
	ErrSeekFailure = errors.New("vidreader: seek failed")

	// ErrCorruptFrame marks a single undecodable frame reported by an engine.
	ErrCorruptFrame = errors.New("vidreader: corrupt frame")

	// ErrEndOfStream is returned by forward reads past the last frame.
	// It matches io.EOF.
	ErrEndOfStream = fmt.Errorf("vidreader: end of stream: %w", io.EOF)

	// ErrClosed is returned by operations on a closed reader.
	ErrClosed = errors.New("vidreader: reader closed")
)
