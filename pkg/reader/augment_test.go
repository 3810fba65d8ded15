package reader

import (
	"image"
	"testing"
)

func TestAugmenter_NoCrop(t *testing.T) {
	a := newAugmenter(DefaultAugmentation(), 1)
	op := a.plan(64, 48, 32, 24)

	if !op.Crop.Empty() {
		t.Errorf("expected no crop, got %v", op.Crop)
	}
	if op.Width != 32 || op.Height != 24 {
		t.Errorf("expected 32x24 output, got %dx%d", op.Width, op.Height)
	}
	if isIdentity(op, 64, 48) {
		t.Error("resize must not be identity")
	}
	if !isIdentity(a.plan(32, 24, 32, 24), 32, 24) {
		t.Error("same-size plan without augmentation should be identity")
	}
}

func TestAugmenter_CenterCrop(t *testing.T) {
	cfg := DefaultAugmentation()
	cfg.CenterCrop = true
	op := newAugmenter(cfg, 1).plan(100, 60, 40, 20)

	want := image.Rect(30, 20, 70, 40)
	if op.Crop != want {
		t.Errorf("expected crop %v, got %v", want, op.Crop)
	}
}

func TestAugmenter_FixedCropClamped(t *testing.T) {
	cfg := DefaultAugmentation()
	cfg.FixedCrop = FixedCrop{Enabled: true, X: 90, Y: 10}
	op := newAugmenter(cfg, 1).plan(100, 60, 40, 20)

	want := image.Rect(90, 10, 100, 30)
	if op.Crop != want {
		t.Errorf("expected crop %v, got %v", want, op.Crop)
	}
}

func TestAugmenter_RandomCropsStayInBounds(t *testing.T) {
	frame := image.Rect(0, 0, 120, 80)
	modes := map[string]func(*AugmentationConfig){
		"rrc":  func(c *AugmentationConfig) { c.RandomResizedCrop.Enabled = true },
		"msc":  func(c *AugmentationConfig) { c.MultiScaleCrop = true },
		"rcc":  func(c *AugmentationConfig) { c.RandomCenterCrop = true },
	}

	for name, enable := range modes {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultAugmentation()
			enable(&cfg)
			a := newAugmenter(cfg, 42)
			for i := 0; i < 200; i++ {
				op := a.plan(frame.Dx(), frame.Dy(), 64, 64)
				if op.Crop.Empty() {
					t.Fatalf("iteration %d: empty crop", i)
				}
				if !op.Crop.In(frame) {
					t.Fatalf("iteration %d: crop %v outside %v", i, op.Crop, frame)
				}
			}
		})
	}
}

func TestAugmenter_RandomResizedCropRatio(t *testing.T) {
	cfg := DefaultAugmentation()
	cfg.RandomResizedCrop = RandomResizedCrop{Enabled: true, ScaleMin: 0.5, ScaleMax: 0.5, RatioMin: 1, RatioMax: 1}
	op := newAugmenter(cfg, 3).plan(100, 100, 10, 10)

	// Area 5000 at ratio 1 gives a 71x71 window.
	if op.Crop.Dx() != 71 || op.Crop.Dy() != 71 {
		t.Errorf("expected 71x71 crop, got %v", op.Crop)
	}
}

func TestAugmenter_Flip(t *testing.T) {
	cfg := DefaultAugmentation()
	cfg.HFlipProb = 1
	a := newAugmenter(cfg, 1)

	op := a.plan(10, 10, 10, 10)
	if !op.FlipHorizontal || op.FlipVertical {
		t.Errorf("expected horizontal flip only, got %+v", op)
	}
	if isIdentity(op, 10, 10) {
		t.Error("flip must not be identity")
	}
}

func TestAugmenter_SeedDeterministic(t *testing.T) {
	cfg := DefaultAugmentation()
	cfg.RandomResizedCrop.Enabled = true
	cfg.HFlipProb = 0.5

	a, b := newAugmenter(cfg, 9), newAugmenter(cfg, 9)
	for i := 0; i < 20; i++ {
		if pa, pb := a.plan(200, 100, 32, 32), b.plan(200, 100, 32, 32); pa != pb {
			t.Fatalf("iteration %d: %+v != %+v", i, pa, pb)
		}
	}
}

func TestParseFaultTol(t *testing.T) {
	tests := []struct {
		in      string
		count   int64
		ratio   float64
		wantErr bool
	}{
		{"-1", -1, 0, false},
		{"", -1, 0, false},
		{"0", 0, 0, false},
		{"12", 12, 0, false},
		{"0.1", 0, 0.1, false},
		{"1.5", 0, 0, true},
		{"-3", 0, 0, true},
		{"abc", 0, 0, true},
	}
	for _, tt := range tests {
		got, err := parseFaultTol(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseFaultTol(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && (got.count != tt.count || got.ratio != tt.ratio) {
			t.Errorf("parseFaultTol(%q) = %+v", tt.in, got)
		}
	}
}
