package reader

import (
	"errors"

	"github.com/user/vidreader/pkg/ndarray"
	"github.com/user/vidreader/pkg/ports"
)

// Errors returned by Reader operations. Match them with errors.Is.
var (
	ErrNoSuchStream           = ports.ErrNoSuchStream
	ErrOutOfRange             = ports.ErrOutOfRange
	ErrIndex                  = ports.ErrIndex
	ErrDecode                 = ports.ErrDecode
	ErrFaultToleranceExceeded = ports.ErrFaultToleranceExceeded
	ErrSeekFailure            = ports.ErrSeekFailure
	ErrEndOfStream            = ports.ErrEndOfStream
	ErrClosed                 = ports.ErrClosed
	ErrShapeMismatch          = ndarray.ErrShapeMismatch

	// ErrConflictingAugmentation is returned when more than one crop mode is enabled.
	ErrConflictingAugmentation = errors.New("reader: more than one crop mode enabled")

	// ErrInvalidOption is returned for malformed construction options.
	ErrInvalidOption = errors.New("reader: invalid option")
)
