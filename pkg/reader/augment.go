package reader

import (
	"image"
	"math"
	"math/rand/v2"

	"github.com/user/vidreader/pkg/ports"
)

// multiScales are the crop edge fractions of the shorter frame side tried by
// multi-scale cropping.
var multiScales = []float64{1, 0.875, 0.75, 0.66}

const rrcAttempts = 10

// augmenter turns an AugmentationConfig into concrete transform operations.
// Random parameters are drawn once per plan call.
type augmenter struct {
	cfg AugmentationConfig
	rng *rand.Rand
}

func newAugmenter(cfg AugmentationConfig, seed uint64) *augmenter {
	return &augmenter{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
	}
}

// plan resolves the operation for a source frame of srcW x srcH delivered
// at outW x outH.
func (a *augmenter) plan(srcW, srcH, outW, outH int) ports.TransformOp {
	op := ports.TransformOp{Width: outW, Height: outH}

	switch {
	case a.cfg.RandomResizedCrop.Enabled:
		op.Crop = a.randomResizedCrop(srcW, srcH)
	case a.cfg.MultiScaleCrop:
		op.Crop = a.multiScaleCrop(srcW, srcH)
	case a.cfg.RandomCenterCrop:
		w, h := min(outW, srcW), min(outH, srcH)
		x := a.rng.IntN(srcW - w + 1)
		y := a.rng.IntN(srcH - h + 1)
		op.Crop = image.Rect(x, y, x+w, y+h)
	case a.cfg.CenterCrop:
		w, h := min(outW, srcW), min(outH, srcH)
		x, y := (srcW-w)/2, (srcH-h)/2
		op.Crop = image.Rect(x, y, x+w, y+h)
	case a.cfg.FixedCrop.Enabled:
		x, y := min(a.cfg.FixedCrop.X, srcW-1), min(a.cfg.FixedCrop.Y, srcH-1)
		w, h := min(outW, srcW-x), min(outH, srcH-y)
		op.Crop = image.Rect(x, y, x+w, y+h)
	}

	if a.cfg.HFlipProb > 0 && a.rng.Float64() < a.cfg.HFlipProb {
		op.FlipHorizontal = true
	}
	if a.cfg.VFlipProb > 0 && a.rng.Float64() < a.cfg.VFlipProb {
		op.FlipVertical = true
	}
	return op
}

func (a *augmenter) randomResizedCrop(srcW, srcH int) image.Rectangle {
	rrc := a.cfg.RandomResizedCrop
	area := float64(srcW * srcH)
	logMin, logMax := math.Log(rrc.RatioMin), math.Log(rrc.RatioMax)

	for i := 0; i < rrcAttempts; i++ {
		target := area * (rrc.ScaleMin + a.rng.Float64()*(rrc.ScaleMax-rrc.ScaleMin))
		ratio := math.Exp(logMin + a.rng.Float64()*(logMax-logMin))
		w := int(math.Round(math.Sqrt(target * ratio)))
		h := int(math.Round(math.Sqrt(target / ratio)))
		if w > 0 && h > 0 && w <= srcW && h <= srcH {
			x := a.rng.IntN(srcW - w + 1)
			y := a.rng.IntN(srcH - h + 1)
			return image.Rect(x, y, x+w, y+h)
		}
	}

	// Fall back to the largest centered crop within the ratio range.
	w, h := srcW, srcH
	inRatio := float64(srcW) / float64(srcH)
	switch {
	case inRatio < rrc.RatioMin:
		h = int(math.Round(float64(w) / rrc.RatioMin))
	case inRatio > rrc.RatioMax:
		w = int(math.Round(float64(h) * rrc.RatioMax))
	}
	x, y := (srcW-w)/2, (srcH-h)/2
	return image.Rect(x, y, x+w, y+h)
}

func (a *augmenter) multiScaleCrop(srcW, srcH int) image.Rectangle {
	base := float64(min(srcW, srcH))

	type pair struct{ w, h int }
	var pairs []pair
	for i, sw := range multiScales {
		for j, sh := range multiScales {
			if i-j > 1 || j-i > 1 {
				continue
			}
			pairs = append(pairs, pair{int(base * sw), int(base * sh)})
		}
	}
	p := pairs[a.rng.IntN(len(pairs))]
	w, h := max(1, min(p.w, srcW)), max(1, min(p.h, srcH))

	stepX, stepY := (srcW-w)/4, (srcH-h)/4
	offsets := [][2]int{
		{0, 0},
		{4 * stepX, 0},
		{0, 4 * stepY},
		{4 * stepX, 4 * stepY},
		{2 * stepX, 2 * stepY},
	}
	off := offsets[a.rng.IntN(len(offsets))]
	return image.Rect(off[0], off[1], off[0]+w, off[1]+h)
}

// isIdentity reports whether op leaves a srcW x srcH frame unchanged.
func isIdentity(op ports.TransformOp, srcW, srcH int) bool {
	if op.FlipHorizontal || op.FlipVertical {
		return false
	}
	if op.Width != srcW || op.Height != srcH {
		return false
	}
	return op.Crop.Empty() || op.Crop == image.Rect(0, 0, srcW, srcH)
}
