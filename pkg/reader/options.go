package reader

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/user/vidreader/pkg/ports"
)

// Options configures a Reader.
type Options struct {
	// Output geometry. Values <= 0 keep the native decoded size; when only
	// one side is positive the other follows the native aspect ratio.
	Width  int
	Height int

	Threads int          // Decoder worker count (0 = engine default)
	IOType  ports.IOType // How the engine reads container bytes
	Device  string       // Output placement; only "cpu" is supported

	// FaultTol is the fault tolerance threshold: "-1" disables substitution,
	// an integer n allows n substituted frames, and a ratio in (0, 1) allows
	// that fraction of the frame count.
	FaultTol string

	Stream int // Container stream index, -1 for the first video stream

	Augment AugmentationConfig

	PoolSize   int   // Buffers kept by the output pool
	QueueSize  int   // Frames decoded ahead of the consumer
	MaxSkipGap int64 // Forward gap GetBatch decodes through instead of seeking
	Seed       uint64

	Logger      ports.Logger
	Metrics     ports.Metrics
	Transformer ports.Transformer
}

// RandomResizedCrop crops a random area fraction with a random aspect ratio
// and scales it to the output size.
type RandomResizedCrop struct {
	Enabled  bool
	ScaleMin float64
	ScaleMax float64
	RatioMin float64
	RatioMax float64
}

// FixedCrop crops an output-sized window at a fixed offset.
type FixedCrop struct {
	Enabled bool
	X       int
	Y       int
}

// AugmentationConfig holds the crop and flip settings applied to every
// delivered frame. At most one crop mode may be enabled.
type AugmentationConfig struct {
	RandomResizedCrop RandomResizedCrop
	MultiScaleCrop    bool
	RandomCenterCrop  bool
	CenterCrop        bool
	FixedCrop         FixedCrop

	HFlipProb float64
	VFlipProb float64
}

// DefaultAugmentation returns an AugmentationConfig with all modes disabled
// and the usual random-resized-crop ranges.
func DefaultAugmentation() AugmentationConfig {
	return AugmentationConfig{
		RandomResizedCrop: RandomResizedCrop{
			ScaleMin: 0.08,
			ScaleMax: 1.0,
			RatioMin: 3.0 / 4.0,
			RatioMax: 4.0 / 3.0,
		},
	}
}

// cropModes returns the names of the enabled crop modes.
func (a AugmentationConfig) cropModes() []string {
	var modes []string
	if a.RandomResizedCrop.Enabled {
		modes = append(modes, "random-resized-crop")
	}
	if a.MultiScaleCrop {
		modes = append(modes, "multi-scale-crop")
	}
	if a.RandomCenterCrop {
		modes = append(modes, "random-center-crop")
	}
	if a.CenterCrop {
		modes = append(modes, "center-crop")
	}
	if a.FixedCrop.Enabled {
		modes = append(modes, "fixed-crop")
	}
	return modes
}

// Enabled reports whether any crop or flip is configured.
func (a AugmentationConfig) Enabled() bool {
	return len(a.cropModes()) > 0 || a.HFlipProb > 0 || a.VFlipProb > 0
}

// Validate checks ranges and that the crop modes are mutually exclusive.
func (a AugmentationConfig) Validate() error {
	if modes := a.cropModes(); len(modes) > 1 {
		return fmt.Errorf("%w: %s", ErrConflictingAugmentation, strings.Join(modes, ", "))
	}
	if rrc := a.RandomResizedCrop; rrc.Enabled {
		if rrc.ScaleMin <= 0 || rrc.ScaleMax > 1 || rrc.ScaleMin > rrc.ScaleMax {
			return fmt.Errorf("%w: crop scale range [%g, %g]", ErrInvalidOption, rrc.ScaleMin, rrc.ScaleMax)
		}
		if rrc.RatioMin <= 0 || rrc.RatioMin > rrc.RatioMax {
			return fmt.Errorf("%w: crop ratio range [%g, %g]", ErrInvalidOption, rrc.RatioMin, rrc.RatioMax)
		}
	}
	if a.FixedCrop.Enabled && (a.FixedCrop.X < 0 || a.FixedCrop.Y < 0) {
		return fmt.Errorf("%w: fixed crop offset (%d, %d)", ErrInvalidOption, a.FixedCrop.X, a.FixedCrop.Y)
	}
	if a.HFlipProb < 0 || a.HFlipProb > 1 || a.VFlipProb < 0 || a.VFlipProb > 1 {
		return fmt.Errorf("%w: flip probability outside [0, 1]", ErrInvalidOption)
	}
	return nil
}

// DefaultOptions returns Options with native output size, fault tolerance
// disabled and the first video stream selected.
func DefaultOptions() Options {
	return Options{
		Width:      -1,
		Height:     -1,
		IOType:     ports.IOFile,
		Device:     "cpu",
		FaultTol:   "-1",
		Stream:     -1,
		Augment:    DefaultAugmentation(),
		PoolSize:   8,
		QueueSize:  4,
		MaxSkipGap: 32,
		Seed:       1,
	}
}

// Validate checks option values that do not depend on the stream.
func (o Options) Validate() error {
	if o.Device != "" && o.Device != "cpu" {
		return fmt.Errorf("%w: device %q (only cpu is supported)", ErrInvalidOption, o.Device)
	}
	if o.Threads < 0 {
		return fmt.Errorf("%w: threads %d", ErrInvalidOption, o.Threads)
	}
	if _, err := parseFaultTol(o.FaultTol); err != nil {
		return err
	}
	return o.Augment.Validate()
}

// faultTolerance is a parsed FaultTol value.
type faultTolerance struct {
	count int64   // -1 = disabled
	ratio float64 // > 0 when given as a fraction of the frame count
}

// threshold resolves the tolerance against the stream frame count.
func (f faultTolerance) threshold(frameCount int64) int64 {
	if f.ratio > 0 {
		return int64(math.Ceil(f.ratio * float64(frameCount)))
	}
	return f.count
}

func parseFaultTol(s string) (faultTolerance, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return faultTolerance{count: -1}, nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		if n < -1 {
			return faultTolerance{}, fmt.Errorf("%w: fault_tol %q", ErrInvalidOption, s)
		}
		return faultTolerance{count: n}, nil
	}
	r, err := strconv.ParseFloat(s, 64)
	if err != nil || r <= 0 || r >= 1 {
		return faultTolerance{}, fmt.Errorf("%w: fault_tol %q", ErrInvalidOption, s)
	}
	return faultTolerance{ratio: r}, nil
}

// OptionsBuilder provides a fluent interface for building Options.
type OptionsBuilder struct {
	opts Options
}

// NewOptionsBuilder creates a builder starting from DefaultOptions.
func NewOptionsBuilder() *OptionsBuilder {
	return &OptionsBuilder{opts: DefaultOptions()}
}

// Build returns the built Options.
func (b *OptionsBuilder) Build() Options {
	return b.opts
}

// WithSize sets the output width and height.
func (b *OptionsBuilder) WithSize(width, height int) *OptionsBuilder {
	b.opts.Width = width
	b.opts.Height = height
	return b
}

// WithThreads sets the decoder worker count.
func (b *OptionsBuilder) WithThreads(n int) *OptionsBuilder {
	b.opts.Threads = n
	return b
}

// WithIOType sets how container bytes are read.
func (b *OptionsBuilder) WithIOType(t ports.IOType) *OptionsBuilder {
	b.opts.IOType = t
	return b
}

// WithFaultTol sets the fault tolerance threshold string.
func (b *OptionsBuilder) WithFaultTol(tol string) *OptionsBuilder {
	b.opts.FaultTol = tol
	return b
}

// WithStream selects the container stream index.
func (b *OptionsBuilder) WithStream(index int) *OptionsBuilder {
	b.opts.Stream = index
	return b
}

// WithRandomResizedCrop enables random-resized-crop with the given ranges.
func (b *OptionsBuilder) WithRandomResizedCrop(scaleMin, scaleMax, ratioMin, ratioMax float64) *OptionsBuilder {
	b.opts.Augment.RandomResizedCrop = RandomResizedCrop{
		Enabled:  true,
		ScaleMin: scaleMin,
		ScaleMax: scaleMax,
		RatioMin: ratioMin,
		RatioMax: ratioMax,
	}
	return b
}

// WithMultiScaleCrop enables multi-scale corner cropping.
func (b *OptionsBuilder) WithMultiScaleCrop() *OptionsBuilder {
	b.opts.Augment.MultiScaleCrop = true
	return b
}

// WithRandomCenterCrop enables random output-sized cropping.
func (b *OptionsBuilder) WithRandomCenterCrop() *OptionsBuilder {
	b.opts.Augment.RandomCenterCrop = true
	return b
}

// WithCenterCrop enables centered output-sized cropping.
func (b *OptionsBuilder) WithCenterCrop() *OptionsBuilder {
	b.opts.Augment.CenterCrop = true
	return b
}

// WithFixedCrop enables cropping at a fixed offset.
func (b *OptionsBuilder) WithFixedCrop(x, y int) *OptionsBuilder {
	b.opts.Augment.FixedCrop = FixedCrop{Enabled: true, X: x, Y: y}
	return b
}

// WithFlip sets the horizontal and vertical flip probabilities.
func (b *OptionsBuilder) WithFlip(hprob, vprob float64) *OptionsBuilder {
	b.opts.Augment.HFlipProb = hprob
	b.opts.Augment.VFlipProb = vprob
	return b
}

// WithPoolSize sets the number of pooled output buffers.
func (b *OptionsBuilder) WithPoolSize(n int) *OptionsBuilder {
	b.opts.PoolSize = n
	return b
}

// WithQueueSize sets the decode-ahead queue length.
func (b *OptionsBuilder) WithQueueSize(n int) *OptionsBuilder {
	b.opts.QueueSize = n
	return b
}

// WithMaxSkipGap sets how far GetBatch decodes forward before it seeks.
func (b *OptionsBuilder) WithMaxSkipGap(n int64) *OptionsBuilder {
	b.opts.MaxSkipGap = n
	return b
}

// WithSeed sets the augmentation random seed.
func (b *OptionsBuilder) WithSeed(seed uint64) *OptionsBuilder {
	b.opts.Seed = seed
	return b
}

// WithLogger sets the logger.
func (b *OptionsBuilder) WithLogger(l ports.Logger) *OptionsBuilder {
	b.opts.Logger = l
	return b
}

// WithMetrics sets the metrics receiver.
func (b *OptionsBuilder) WithMetrics(m ports.Metrics) *OptionsBuilder {
	b.opts.Metrics = m
	return b
}

// WithTransformer sets the crop/resize/flip implementation.
func (b *OptionsBuilder) WithTransformer(t ports.Transformer) *OptionsBuilder {
	b.opts.Transformer = t
	return b
}
