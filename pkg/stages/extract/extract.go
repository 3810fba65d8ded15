// Package extract implements the frame extraction stage.
package extract

import (
	"context"
	"fmt"

	"github.com/user/vidreader/pkg/ndarray"
	"github.com/user/vidreader/pkg/pipeline"
	"github.com/user/vidreader/pkg/ports"
)

// Stage reads frames from a FrameSource in batches and hands each to a sink.
type Stage struct {
	source pipeline.FrameSource
	sink   ports.FrameSink
	logger ports.Logger
}

// New creates a new extract stage.
func New(source pipeline.FrameSource, sink ports.FrameSink, logger ports.Logger) *Stage {
	return &Stage{
		source: source,
		sink:   sink,
		logger: logger.WithComponent("extract"),
	}
}

// Execute decodes input.Positions in request order.
func (s *Stage) Execute(ctx context.Context, input pipeline.ExtractInput) (pipeline.ExtractResult, error) {
	result := pipeline.ExtractResult{
		Frames: make([]pipeline.ExtractedFrame, 0, len(input.Positions)),
	}
	if len(input.Positions) == 0 {
		return result, nil
	}

	stamps, err := s.source.GetFrameTimestamps(input.Positions)
	if err != nil {
		return result, fmt.Errorf("frame timestamps: %w", err)
	}

	size := input.BatchSize
	if size <= 0 {
		size = pipeline.DefaultBatchSize
	}
	s.logger.Debug("Extracting %d frames in batches of %d", len(input.Positions), size)

	var out *ndarray.NDArray
	for start := 0; start < len(input.Positions); start += size {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		chunk := input.Positions[start:min(start+size, len(input.Positions))]
		if out != nil && out.Shape[0] != len(chunk) {
			out = nil
		}
		out, err = s.source.GetBatch(ctx, chunk, out)
		if err != nil {
			return result, fmt.Errorf("batch at %d: %w", chunk[0], err)
		}
		result.Height, result.Width = out.Shape[1], out.Shape[2]

		for i, pos := range chunk {
			img, err := ndarray.ToImage(out.Slot(i), result.Width, result.Height)
			if err != nil {
				return result, fmt.Errorf("frame %d: %w", pos, err)
			}
			result.Frames = append(result.Frames, pipeline.ExtractedFrame{
				Position: pos,
				Start:    stamps[start+i].Start,
				Image:    img,
			})

			if s.sink.Enabled() {
				if err := s.sink.SaveFrame(pos, img); err != nil {
					return result, fmt.Errorf("save frame %d: %w", pos, err)
				}
			}
		}
	}

	result.Failed = s.source.FailedPositions()
	s.logger.Debug("Extracted %d frames, %d substituted", len(result.Frames), len(result.Failed))
	return result, nil
}
