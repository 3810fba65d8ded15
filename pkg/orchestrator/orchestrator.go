// Package orchestrator coordinates the stages of a frame extraction job.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"time"

	"github.com/user/vidreader/pkg/pipeline"
	"github.com/user/vidreader/pkg/ports"
)

// ErrEmptySelection is returned when the frame selection matches no frames.
var ErrEmptySelection = errors.New("frame selection is empty")

// Config contains all configuration for an extraction job.
type Config struct {
	// Selection. Positions wins over Keyframes, which wins over Count,
	// which wins over Every.
	Positions []int64
	Keyframes bool
	Count     int   // Evenly spaced frames across [Start, End)
	Every     int64 // Step between frames (default: 1)
	Start     int64
	End       int64 // Exclusive; <= 0 means the end of the stream

	BatchSize int

	// Contact sheet
	SheetPath    string // Output file; empty disables the sheet
	SheetFormat  ports.ImageFormat
	SheetQuality int
	Columns      int
	ThumbWidth   int
	Gap          int
	Padding      int
	LabelHeight  int
	ShowLabels   bool

	// Style
	BackgroundColor [4]uint8 // RGBA
	LabelColor      [4]uint8 // RGBA

	// Index metadata written to the sink
	WriteIndex bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Every:        1,
		BatchSize:    pipeline.DefaultBatchSize,
		SheetFormat:  ports.FormatPNG,
		SheetQuality: 90,
		Columns:      4,
		ThumbWidth:   240,
		Gap:          8,
		Padding:      16,
		LabelHeight:  16,
		ShowLabels:   true,
		WriteIndex:   true,
	}
}

// Orchestrator coordinates the execution of all extraction stages.
type Orchestrator struct {
	source       pipeline.FrameSource
	layoutStage  pipeline.LayoutStage
	extractStage pipeline.ExtractStage
	sheetStage   pipeline.SheetStage
	encodeStage  pipeline.EncodeStage
	fs           ports.FileSystem
	sink         ports.FrameSink
	logger       ports.Logger
}

// New creates a new Orchestrator.
func New(
	source pipeline.FrameSource,
	layoutStage pipeline.LayoutStage,
	extractStage pipeline.ExtractStage,
	sheetStage pipeline.SheetStage,
	encodeStage pipeline.EncodeStage,
	fs ports.FileSystem,
	sink ports.FrameSink,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		source:       source,
		layoutStage:  layoutStage,
		extractStage: extractStage,
		sheetStage:   sheetStage,
		encodeStage:  encodeStage,
		fs:           fs,
		sink:         sink,
		logger:       logger.WithComponent("orchestrator"),
	}
}

// Run plans the frame selection, extracts it and optionally writes a
// contact sheet and the index metadata.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	started := time.Now()
	o.logger.Info("Starting extraction")

	// 1. Plan positions
	count, err := o.source.GetFrameCount()
	if err != nil {
		o.logger.Error("Failed to index stream: %s", err)
		return RunResult{}, fmt.Errorf("frame count: %w", err)
	}
	keys, err := o.source.GetKeyIndices()
	if err != nil {
		return RunResult{}, fmt.Errorf("keyframes: %w", err)
	}
	positions, err := PlanPositions(config, count, keys)
	if err != nil {
		return RunResult{}, err
	}
	o.logger.Info("Selected %d of %d frames", len(positions), count)

	// 2. Extract frames
	extracted, err := o.extractStage.Execute(ctx, pipeline.ExtractInput{
		Positions: positions,
		BatchSize: config.BatchSize,
	})
	if err != nil {
		o.logger.Error("Failed to extract frames: %s", err)
		return RunResult{}, fmt.Errorf("extract stage: %w", err)
	}
	if len(extracted.Failed) > 0 {
		o.logger.Warn("%d frames were substituted", len(extracted.Failed))
	}
	o.logger.Info("Extracted %d frames at %dx%d", len(extracted.Frames), extracted.Width, extracted.Height)

	result := RunResult{
		TotalFrames: count,
		Keyframes:   len(keys),
		Positions:   positions,
		Extracted:   len(extracted.Frames),
		Failed:      extracted.Failed,
		FrameWidth:  extracted.Width,
		FrameHeight: extracted.Height,
	}

	// 3. Save index metadata
	if config.WriteIndex && o.sink.Enabled() {
		if data, err := o.indexJSON(count, keys); err != nil {
			o.logger.Warn("Failed to serialize index: %s", err)
		} else if err := o.sink.SaveIndexJSON(data); err != nil {
			o.logger.Warn("Failed to save index: %s", err)
		}
	}

	// 4. Contact sheet (optional)
	if config.SheetPath != "" {
		size, err := o.writeSheet(ctx, config, extracted)
		if err != nil {
			return RunResult{}, err
		}
		result.SheetPath = config.SheetPath
		result.SheetFileSize = size
	}

	result.Elapsed = time.Since(started)
	o.logger.Info("Extraction completed in %d ms", result.Elapsed.Milliseconds())
	return result, nil
}

func (o *Orchestrator) writeSheet(ctx context.Context, config Config, extracted pipeline.ExtractResult) (int64, error) {
	layout, err := o.layoutStage.Execute(ctx, o.buildLayoutInput(config, extracted))
	if err != nil {
		return 0, fmt.Errorf("layout stage: %w", err)
	}
	o.logger.Info("Composing %dx%d contact sheet", layout.Canvas.Width, layout.Canvas.Height)

	sheet, err := o.sheetStage.Execute(ctx, o.buildSheetInput(config, layout, extracted))
	if err != nil {
		o.logger.Error("Failed to compose contact sheet: %s", err)
		return 0, fmt.Errorf("sheet stage: %w", err)
	}

	encoded, err := o.encodeStage.Execute(ctx, pipeline.EncodeInput{
		Image:   sheet.Image,
		Format:  config.SheetFormat,
		Quality: config.SheetQuality,
	})
	if err != nil {
		o.logger.Error("Failed to encode contact sheet: %s", err)
		return 0, fmt.Errorf("encode stage: %w", err)
	}

	if err := o.fs.WriteFile(config.SheetPath, encoded.Data); err != nil {
		o.logger.Error("Failed to write output: %s", err)
		return 0, fmt.Errorf("write output: %w", err)
	}
	return encoded.FileSize, nil
}

func (o *Orchestrator) buildLayoutInput(config Config, extracted pipeline.ExtractResult) pipeline.LayoutInput {
	return pipeline.LayoutInput{
		FrameWidth:  extracted.Width,
		FrameHeight: extracted.Height,
		Count:       len(extracted.Frames),
		Columns:     config.Columns,
		ThumbWidth:  config.ThumbWidth,
		Gap:         config.Gap,
		Padding:     config.Padding,
		LabelHeight: conditionalInt(config.ShowLabels, config.LabelHeight, 0),
	}
}

func (o *Orchestrator) buildSheetInput(config Config, layout pipeline.LayoutResult, extracted pipeline.ExtractResult) pipeline.SheetInput {
	theme := pipeline.DefaultSheetTheme()
	if config.BackgroundColor != [4]uint8{} {
		theme.BackgroundColor = rgbaFromArray(config.BackgroundColor)
	}
	if config.LabelColor != [4]uint8{} {
		theme.LabelColor = rgbaFromArray(config.LabelColor)
	}
	return pipeline.SheetInput{
		Frames:     extracted.Frames,
		Layout:     layout,
		Failed:     extracted.Failed,
		Theme:      theme,
		ShowLabels: config.ShowLabels,
	}
}

// indexDocument is the JSON layout of the saved frame index.
type indexDocument struct {
	FrameCount int64        `json:"frame_count"`
	Keyframes  []int64      `json:"keyframes"`
	Frames     []indexFrame `json:"frames"`
}

type indexFrame struct {
	Position int64   `json:"position"`
	PTS      int64   `json:"pts"`
	Start    float64 `json:"start"`
	Stop     float64 `json:"stop"`
}

func (o *Orchestrator) indexJSON(count int64, keys []int64) ([]byte, error) {
	all := make([]int64, count)
	for i := range all {
		all[i] = int64(i)
	}
	stamps, err := o.source.GetFrameTimestamps(all)
	if err != nil {
		return nil, err
	}
	doc := indexDocument{
		FrameCount: count,
		Keyframes:  keys,
		Frames:     make([]indexFrame, len(stamps)),
	}
	for i, ts := range stamps {
		doc.Frames[i] = indexFrame{Position: int64(i), PTS: ts.PTS, Start: ts.Start, Stop: ts.Stop}
	}
	return json.MarshalIndent(doc, "", "  ")
}

// PlanPositions resolves the frame selection of config against a stream of
// count frames with the given keyframes.
func PlanPositions(config Config, count int64, keys []int64) ([]int64, error) {
	if len(config.Positions) > 0 {
		out := make([]int64, len(config.Positions))
		copy(out, config.Positions)
		return out, nil
	}

	start := max(config.Start, 0)
	end := count
	if config.End > 0 && config.End < count {
		end = config.End
	}
	if start >= end {
		return nil, fmt.Errorf("%w: range [%d, %d) of %d frames", ErrEmptySelection, start, end, count)
	}

	var out []int64
	switch {
	case config.Keyframes:
		for _, k := range keys {
			if k >= start && k < end {
				out = append(out, k)
			}
		}
		if len(out) == 0 {
			return nil, fmt.Errorf("%w: no keyframes in [%d, %d)", ErrEmptySelection, start, end)
		}
	case config.Count > 0:
		span := end - start
		n := min(int64(config.Count), span)
		out = make([]int64, n)
		for i := int64(0); i < n; i++ {
			out[i] = start + i*span/n
		}
	default:
		step := max(config.Every, 1)
		for pos := start; pos < end; pos += step {
			out = append(out, pos)
		}
	}
	return out, nil
}

func conditionalInt(condition bool, trueVal, falseVal int) int {
	if condition {
		return trueVal
	}
	return falseVal
}

func rgbaFromArray(c [4]uint8) color.RGBA {
	return color.RGBA{R: c[0], G: c[1], B: c[2], A: c[3]}
}

// RunResult contains the results of an extraction job for summary generation.
type RunResult struct {
	// Stream information
	TotalFrames int64
	Keyframes   int

	// Extraction
	Positions   []int64
	Extracted   int
	Failed      []int64
	FrameWidth  int
	FrameHeight int

	// Contact sheet
	SheetPath     string
	SheetFileSize int64

	Elapsed time.Duration
}
