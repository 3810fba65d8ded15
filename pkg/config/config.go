// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"image/color"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/user/vidreader/pkg/orchestrator"
	"github.com/user/vidreader/pkg/ports"
	"github.com/user/vidreader/pkg/reader"
)

// Config represents the full configuration for vidreader.
type Config struct {
	// Reader
	Width      int           `yaml:"width"`
	Height     int           `yaml:"height"`
	Threads    int           `yaml:"threads"`
	IO         string        `yaml:"io"` // file or memory
	FaultTol   string        `yaml:"fault_tol"`
	Stream     int           `yaml:"stream"`
	PoolSize   int           `yaml:"pool_size"`
	QueueSize  int           `yaml:"queue_size"`
	MaxSkipGap int64         `yaml:"max_skip_gap"`
	Seed       uint64        `yaml:"seed"`
	Augment    AugmentConfig `yaml:"augment"`

	// Extraction
	Every        int64  `yaml:"every"`
	Count        int    `yaml:"count"`
	Keyframes    bool   `yaml:"keyframes"`
	Start        int64  `yaml:"start"`
	End          int64  `yaml:"end"`
	BatchSize    int    `yaml:"batch_size"`
	OutputDir    string `yaml:"output_dir"`
	FrameFormat  string `yaml:"frame_format"` // png or jpeg
	FrameQuality int    `yaml:"frame_quality"`

	// Contact sheet
	Sheet       string      `yaml:"sheet"`
	Columns     int         `yaml:"columns"`
	ThumbWidth  int         `yaml:"thumb_width"`
	Gap         int         `yaml:"gap"`
	Padding     int         `yaml:"padding"`
	LabelHeight int         `yaml:"label_height"`
	Labels      bool        `yaml:"labels"`
	Workers     int         `yaml:"workers"`
	Theme       ThemeConfig `yaml:"theme"`

	// Runtime
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // text or json
	MetricsAddr string `yaml:"metrics_addr"`
	FFmpegPath  string `yaml:"ffmpeg_path"`
}

// AugmentConfig represents the crop and flip settings.
type AugmentConfig struct {
	RandomResizedCrop bool      `yaml:"random_resized_crop"`
	Scale             []float64 `yaml:"scale"` // [min, max] area fraction
	Ratio             []float64 `yaml:"ratio"` // [min, max] aspect ratio
	MultiScaleCrop    bool      `yaml:"multi_scale_crop"`
	RandomCenterCrop  bool      `yaml:"random_center_crop"`
	CenterCrop        bool      `yaml:"center_crop"`
	FixedCrop         []int     `yaml:"fixed_crop"` // [x, y]
	HFlip             float64   `yaml:"hflip"`
	VFlip             float64   `yaml:"vflip"`
}

// ThemeConfig represents theming options.
type ThemeConfig struct {
	BackgroundColor string `yaml:"background_color"`
	LabelColor      string `yaml:"label_color"`
}

// Defaults returns a Config with default values.
func Defaults() Config {
	opts := reader.DefaultOptions()
	orch := orchestrator.DefaultConfig()
	return Config{
		// Reader
		Width:      opts.Width,
		Height:     opts.Height,
		IO:         "file",
		FaultTol:   opts.FaultTol,
		Stream:     opts.Stream,
		PoolSize:   opts.PoolSize,
		QueueSize:  opts.QueueSize,
		MaxSkipGap: opts.MaxSkipGap,
		Seed:       opts.Seed,
		Augment: AugmentConfig{
			Scale: []float64{opts.Augment.RandomResizedCrop.ScaleMin, opts.Augment.RandomResizedCrop.ScaleMax},
			Ratio: []float64{opts.Augment.RandomResizedCrop.RatioMin, opts.Augment.RandomResizedCrop.RatioMax},
		},

		// Extraction
		Every:        orch.Every,
		BatchSize:    orch.BatchSize,
		OutputDir:    "./frames",
		FrameFormat:  "png",
		FrameQuality: 90,

		// Contact sheet
		Columns:     orch.Columns,
		ThumbWidth:  orch.ThumbWidth,
		Gap:         orch.Gap,
		Padding:     orch.Padding,
		LabelHeight: orch.LabelHeight,
		Labels:      orch.ShowLabels,
		Workers:     4,
		Theme: ThemeConfig{
			BackgroundColor: "#1e1e1e",
			LabelColor:      "#ffffff",
		},

		// Runtime
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadFromFile loads configuration from a YAML file on top of Defaults.
func LoadFromFile(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}

	return cfg, nil
}

// ParseColor parses a hex color string (#rrggbb or #rrggbbaa) to color.Color.
func ParseColor(hex string) color.Color {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.Black
	}

	var v [4]uint8
	v[3] = 255
	for i := 0; i < len(hex)/2; i++ {
		v[i] = hexValue(hex[2*i])<<4 | hexValue(hex[2*i+1])
	}
	return color.RGBA{R: v[0], G: v[1], B: v[2], A: v[3]}
}

func hexValue(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

func colorArray(hex string) [4]uint8 {
	if hex == "" {
		return [4]uint8{}
	}
	c := color.RGBAModel.Convert(ParseColor(hex)).(color.RGBA)
	return [4]uint8{c.R, c.G, c.B, c.A}
}

// ImageFormat returns the frame output format.
func (c Config) ImageFormat() ports.ImageFormat {
	switch strings.ToLower(c.FrameFormat) {
	case "jpg", "jpeg":
		return ports.FormatJPEG
	default:
		return ports.FormatPNG
	}
}

// ToReaderOptions converts Config to reader.Options. The result is validated.
func (c Config) ToReaderOptions() (reader.Options, error) {
	b := reader.NewOptionsBuilder().
		WithSize(c.Width, c.Height).
		WithThreads(c.Threads).
		WithIOType(ports.ParseIOType(c.IO)).
		WithFaultTol(c.FaultTol).
		WithStream(c.Stream).
		WithPoolSize(c.PoolSize).
		WithQueueSize(c.QueueSize).
		WithMaxSkipGap(c.MaxSkipGap).
		WithSeed(c.Seed).
		WithFlip(c.Augment.HFlip, c.Augment.VFlip)

	a := c.Augment
	if a.RandomResizedCrop {
		if len(a.Scale) != 2 || len(a.Ratio) != 2 {
			return reader.Options{}, fmt.Errorf("%w: scale and ratio need two values", reader.ErrInvalidOption)
		}
		b.WithRandomResizedCrop(a.Scale[0], a.Scale[1], a.Ratio[0], a.Ratio[1])
	}
	if a.MultiScaleCrop {
		b.WithMultiScaleCrop()
	}
	if a.RandomCenterCrop {
		b.WithRandomCenterCrop()
	}
	if a.CenterCrop {
		b.WithCenterCrop()
	}
	if len(a.FixedCrop) > 0 {
		if len(a.FixedCrop) != 2 {
			return reader.Options{}, fmt.Errorf("%w: fixed_crop needs [x, y]", reader.ErrInvalidOption)
		}
		b.WithFixedCrop(a.FixedCrop[0], a.FixedCrop[1])
	}

	opts := b.Build()
	if err := opts.Validate(); err != nil {
		return reader.Options{}, err
	}
	return opts, nil
}

// ToOrchestratorConfig converts Config to orchestrator.Config.
func (c Config) ToOrchestratorConfig() orchestrator.Config {
	cfg := orchestrator.DefaultConfig()

	cfg.Keyframes = c.Keyframes
	cfg.Count = c.Count
	cfg.Every = c.Every
	cfg.Start = c.Start
	cfg.End = c.End
	cfg.BatchSize = c.BatchSize

	cfg.SheetPath = c.Sheet
	if ext := strings.ToLower(c.Sheet); strings.HasSuffix(ext, ".jpg") || strings.HasSuffix(ext, ".jpeg") {
		cfg.SheetFormat = ports.FormatJPEG
	}
	cfg.SheetQuality = c.FrameQuality
	cfg.Columns = c.Columns
	cfg.ThumbWidth = c.ThumbWidth
	cfg.Gap = c.Gap
	cfg.Padding = c.Padding
	cfg.LabelHeight = c.LabelHeight
	cfg.ShowLabels = c.Labels

	cfg.BackgroundColor = colorArray(c.Theme.BackgroundColor)
	cfg.LabelColor = colorArray(c.Theme.LabelColor)
	return cfg
}
