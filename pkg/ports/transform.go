package ports

import (
	"image"
)

// TransformOp is one concrete geometric operation on a decoded frame.
// Random augmentation parameters are already resolved when it is built.
type TransformOp struct {
	// Crop is the source window in frame coordinates. An empty rectangle
	// means the whole frame.
	Crop image.Rectangle

	// Width and Height are the output dimensions after scaling the crop.
	Width  int
	Height int

	FlipHorizontal bool
	FlipVertical   bool
}

// Transformer applies crop, resize and flip kernels to frames.
type Transformer interface {
	// Apply transforms src and returns a new RGBA image of op.Width x op.Height.
	Apply(src image.Image, op TransformOp) (*image.RGBA, error)
}
