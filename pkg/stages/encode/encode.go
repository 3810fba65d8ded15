// Package encode implements the image encoding stage.
package encode

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/vidreader/pkg/pipeline"
	"github.com/user/vidreader/pkg/ports"
)

// ErrNoImage is returned when there is nothing to encode.
var ErrNoImage = errors.New("no image to encode")

// Stage encodes a composed image into PNG or JPEG bytes.
type Stage struct {
	renderer ports.Renderer
	logger   ports.Logger
}

// NewStage creates a new encode stage.
func NewStage(renderer ports.Renderer, logger ports.Logger) *Stage {
	return &Stage{
		renderer: renderer,
		logger:   logger.WithComponent("encode"),
	}
}

// Execute encodes input.Image.
func (s *Stage) Execute(ctx context.Context, input pipeline.EncodeInput) (pipeline.EncodeResult, error) {
	result := pipeline.EncodeResult{Format: input.Format}

	if input.Image == nil {
		return result, ErrNoImage
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	quality := input.Quality
	if input.Format == ports.FormatJPEG && (quality <= 0 || quality > 100) {
		quality = pipeline.DefaultEncodeInput().Quality
	}

	data, err := s.renderer.EncodeImage(input.Image, input.Format, quality)
	if err != nil {
		return result, fmt.Errorf("encode image: %w", err)
	}

	b := input.Image.Bounds()
	s.logger.Debug("Encoded %dx%d image into %d bytes", b.Dx(), b.Dy(), len(data))

	result.Data = data
	result.FileSize = int64(len(data))
	return result, nil
}
