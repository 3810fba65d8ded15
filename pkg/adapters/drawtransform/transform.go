// Package drawtransform implements frame crop, resize and flip kernels with
// golang.org/x/image/draw.
package drawtransform

import (
	"errors"
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"github.com/user/vidreader/pkg/ports"
)

// ErrInvalidOp is returned for operations with a non-positive output size or
// a crop window outside the source frame.
var ErrInvalidOp = errors.New("drawtransform: invalid operation")

// Transformer implements ports.Transformer.
type Transformer struct {
	scaler xdraw.Scaler
}

// New creates a Transformer that resizes with bilinear interpolation.
func New() *Transformer {
	return &Transformer{scaler: xdraw.BiLinear}
}

// NewWithScaler creates a Transformer that resizes with the given scaler,
// e.g. xdraw.CatmullRom or xdraw.NearestNeighbor.
func NewWithScaler(s xdraw.Scaler) *Transformer {
	return &Transformer{scaler: s}
}

// Apply crops src to op.Crop, scales the window to op.Width x op.Height and
// flips the result. Crop coordinates are relative to the frame origin.
func (t *Transformer) Apply(src image.Image, op ports.TransformOp) (*image.RGBA, error) {
	if op.Width <= 0 || op.Height <= 0 {
		return nil, fmt.Errorf("%w: output %dx%d", ErrInvalidOp, op.Width, op.Height)
	}

	b := src.Bounds()
	window := b
	if !op.Crop.Empty() {
		window = op.Crop.Add(b.Min)
		if !window.In(b) {
			return nil, fmt.Errorf("%w: crop %v outside %v", ErrInvalidOp, op.Crop, b.Sub(b.Min))
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, op.Width, op.Height))
	if window.Dx() == op.Width && window.Dy() == op.Height {
		draw.Draw(dst, dst.Bounds(), src, window.Min, draw.Src)
	} else {
		t.scaler.Scale(dst, dst.Bounds(), src, window, xdraw.Src, nil)
	}

	if op.FlipHorizontal {
		flipHorizontal(dst)
	}
	if op.FlipVertical {
		flipVertical(dst)
	}
	return dst, nil
}

func flipHorizontal(img *image.RGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
			for c := 0; c < 4; c++ {
				row[l*4+c], row[r*4+c] = row[r*4+c], row[l*4+c]
			}
		}
	}
}

func flipVertical(img *image.RGBA) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	tmp := make([]uint8, w*4)
	for top, bottom := 0, h-1; top < bottom; top, bottom = top+1, bottom-1 {
		a := img.Pix[top*img.Stride : top*img.Stride+w*4]
		b := img.Pix[bottom*img.Stride : bottom*img.Stride+w*4]
		copy(tmp, a)
		copy(a, b)
		copy(b, tmp)
	}
}

// Ensure Transformer implements ports.Transformer
var _ ports.Transformer = (*Transformer)(nil)
