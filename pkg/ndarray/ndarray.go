// Package ndarray provides the dense uint8 tensors handed to consumers.
//
// Frames are laid out height x width x channels (HWC) with RGB channel order;
// batches prepend a leading frame dimension.
package ndarray

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// Channels is the number of color channels per pixel in frame tensors.
const Channels = 3

// ErrShapeMismatch is returned when a tensor does not have the expected shape.
var ErrShapeMismatch = errors.New("ndarray: shape mismatch")

// NDArray is a dense, row-major uint8 tensor.
type NDArray struct {
	Shape []int
	Data  []uint8
}

// New allocates a zeroed tensor of the given shape.
func New(shape ...int) *NDArray {
	n := 1
	for _, d := range shape {
		n *= d
	}
	s := make([]int, len(shape))
	copy(s, shape)
	return &NDArray{Shape: s, Data: make([]uint8, n)}
}

// NewFrame allocates a single-frame tensor of shape (height, width, 3).
func NewFrame(height, width int) *NDArray {
	return New(height, width, Channels)
}

// NewBatch allocates a batch tensor of shape (n, height, width, 3).
func NewBatch(n, height, width int) *NDArray {
	return New(n, height, width, Channels)
}

// Size returns the number of elements.
func (a *NDArray) Size() int {
	return len(a.Data)
}

// SameShape reports whether a has exactly the given shape.
func (a *NDArray) SameShape(shape ...int) bool {
	if len(a.Shape) != len(shape) {
		return false
	}
	for i := range shape {
		if a.Shape[i] != shape[i] {
			return false
		}
	}
	return true
}

// Slot returns the data of element i along the leading dimension.
// The returned slice aliases a.Data.
func (a *NDArray) Slot(i int) []uint8 {
	if len(a.Shape) == 0 || a.Shape[0] == 0 {
		return nil
	}
	stride := len(a.Data) / a.Shape[0]
	return a.Data[i*stride : (i+1)*stride]
}

// CopyFrom copies src into a. Both tensors must have the same shape.
func (a *NDArray) CopyFrom(src *NDArray) error {
	if !a.SameShape(src.Shape...) {
		return fmt.Errorf("%w: %v != %v", ErrShapeMismatch, a.Shape, src.Shape)
	}
	copy(a.Data, src.Data)
	return nil
}

// Clone returns a deep copy of a.
func (a *NDArray) Clone() *NDArray {
	c := New(a.Shape...)
	copy(c.Data, a.Data)
	return c
}

// WriteImage writes img as packed RGB into dst, which must hold
// img.Bounds().Dx() * img.Bounds().Dy() * 3 bytes.
func WriteImage(dst []uint8, img image.Image) error {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if len(dst) != w*h*Channels {
		return fmt.Errorf("%w: image %dx%d into %d bytes", ErrShapeMismatch, w, h, len(dst))
	}

	if rgba, ok := img.(*image.RGBA); ok {
		for y := 0; y < h; y++ {
			off := rgba.PixOffset(b.Min.X, b.Min.Y+y)
			row := rgba.Pix[off : off+w*4]
			out := dst[y*w*Channels : (y+1)*w*Channels]
			for x := 0; x < w; x++ {
				out[x*3] = row[x*4]
				out[x*3+1] = row[x*4+1]
				out[x*3+2] = row[x*4+2]
			}
		}
		return nil
	}

	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			dst[i] = c.R
			dst[i+1] = c.G
			dst[i+2] = c.B
			i += 3
		}
	}
	return nil
}

// ToImage converts a (height, width, 3) tensor or one slot of a batch back
// into an RGBA image.
func ToImage(data []uint8, width, height int) (*image.RGBA, error) {
	if len(data) != width*height*Channels {
		return nil, fmt.Errorf("%w: %d bytes for %dx%d", ErrShapeMismatch, len(data), width, height)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, j := 0, 0; i < len(data); i, j = i+3, j+4 {
		img.Pix[j] = data[i]
		img.Pix[j+1] = data[i+1]
		img.Pix[j+2] = data[i+2]
		img.Pix[j+3] = 0xff
	}
	return img, nil
}
