package drawtransform

import (
	"errors"
	"image"
	"image/color"
	"testing"

	xdraw "golang.org/x/image/draw"

	"github.com/user/vidreader/pkg/ports"
)

// gradient returns a w x h image where pixel (x, y) is (x, y, 0).
func gradient(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), A: 255})
		}
	}
	return img
}

func TestApply_CropExact(t *testing.T) {
	tr := New()
	out, err := tr.Apply(gradient(10, 8), ports.TransformOp{
		Crop:   image.Rect(3, 2, 7, 5),
		Width:  4,
		Height: 3,
	})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if got := out.Bounds(); got != image.Rect(0, 0, 4, 3) {
		t.Fatalf("expected 4x3 output, got %v", got)
	}
	for y := 0; y < 3; y++ {
		for x := 0; x < 4; x++ {
			c := out.RGBAAt(x, y)
			if int(c.R) != x+3 || int(c.G) != y+2 {
				t.Fatalf("pixel (%d,%d) = %v, want R=%d G=%d", x, y, c, x+3, y+2)
			}
		}
	}
}

func TestApply_SubImageOrigin(t *testing.T) {
	src := gradient(10, 10).SubImage(image.Rect(5, 5, 10, 10))
	out, err := New().Apply(src, ports.TransformOp{Crop: image.Rect(1, 1, 2, 2), Width: 1, Height: 1})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if c := out.RGBAAt(0, 0); c.R != 6 || c.G != 6 {
		t.Errorf("expected pixel (6,6), got %v", c)
	}
}

func TestApply_Resize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for i := range src.Pix {
		src.Pix[i] = 200
	}

	out, err := NewWithScaler(xdraw.NearestNeighbor).Apply(src, ports.TransformOp{Width: 4, Height: 8})
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if out.Bounds().Dx() != 4 || out.Bounds().Dy() != 8 {
		t.Fatalf("expected 4x8, got %v", out.Bounds())
	}
	if c := out.RGBAAt(2, 5); c.R != 200 || c.G != 200 || c.B != 200 {
		t.Errorf("expected uniform 200, got %v", c)
	}
}

func TestApply_Flips(t *testing.T) {
	src := gradient(3, 2)

	tests := []struct {
		name         string
		h, v         bool
		wantR, wantG uint8
	}{
		{"horizontal", true, false, 2, 0},
		{"vertical", false, true, 0, 1},
		{"both", true, true, 2, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := New().Apply(src, ports.TransformOp{Width: 3, Height: 2, FlipHorizontal: tt.h, FlipVertical: tt.v})
			if err != nil {
				t.Fatalf("Apply failed: %v", err)
			}
			c := out.RGBAAt(0, 0)
			if c.R != tt.wantR || c.G != tt.wantG {
				t.Errorf("top-left = %v, want R=%d G=%d", c, tt.wantR, tt.wantG)
			}
		})
	}
}

func TestApply_Invalid(t *testing.T) {
	tests := []struct {
		name string
		op   ports.TransformOp
	}{
		{"zero size", ports.TransformOp{Width: 0, Height: 2}},
		{"crop outside", ports.TransformOp{Crop: image.Rect(8, 0, 12, 2), Width: 4, Height: 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New().Apply(gradient(10, 4), tt.op)
			if !errors.Is(err, ErrInvalidOp) {
				t.Errorf("expected ErrInvalidOp, got %v", err)
			}
		})
	}
}
