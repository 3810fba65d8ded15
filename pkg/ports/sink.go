package ports

import (
	"image"
)

// FrameSink receives extracted frames and reader metadata.
type FrameSink interface {
	// Enabled returns true if the sink stores anything.
	Enabled() bool

	// SaveFrame stores the frame at the given logical position.
	SaveFrame(position int64, img image.Image) error

	// SaveIndexJSON stores the serialized frame index.
	SaveIndexJSON(data []byte) error

	// SaveContactSheet stores a composed overview image of a batch.
	SaveContactSheet(img image.Image) error
}
