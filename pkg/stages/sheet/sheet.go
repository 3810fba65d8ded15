// Package sheet implements the contact sheet composition stage.
package sheet

import (
	"context"
	"fmt"
	"image"
	"runtime"
	"sync"

	"github.com/user/vidreader/pkg/pipeline"
	"github.com/user/vidreader/pkg/ports"
)

// Stage composes extracted frames into one contact sheet image.
type Stage struct {
	renderer   ports.Renderer
	sink       ports.FrameSink
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new sheet stage.
func NewStage(renderer ports.Renderer, sink ports.FrameSink, logger ports.Logger, numWorkers int) *Stage {
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	return &Stage{
		renderer:   renderer,
		sink:       sink,
		logger:     logger.WithComponent("sheet"),
		numWorkers: numWorkers,
	}
}

// Execute scales all frames in parallel and draws them onto the sheet.
func (s *Stage) Execute(ctx context.Context, input pipeline.SheetInput) (pipeline.SheetResult, error) {
	if len(input.Frames) > len(input.Layout.Cells) {
		return pipeline.SheetResult{}, fmt.Errorf("layout has %d cells for %d frames", len(input.Layout.Cells), len(input.Frames))
	}

	s.logger.Debug("Compositing %d frames with %d workers", len(input.Frames), s.numWorkers)

	thumbs, err := s.scaleParallel(ctx, input)
	if err != nil {
		return pipeline.SheetResult{}, err
	}

	canvas := s.renderer.CreateCanvas(input.Layout.Canvas.Width, input.Layout.Canvas.Height, input.Theme.BackgroundColor)

	failed := make(map[int64]bool, len(input.Failed))
	for _, pos := range input.Failed {
		failed[pos] = true
	}

	for i, frame := range input.Frames {
		cell := input.Layout.Cells[i]
		canvas.DrawImageScaled(thumbs[i], cell.X, cell.Y, cell.Width, cell.Height)

		if !input.ShowLabels || i >= len(input.Layout.Labels) {
			continue
		}
		label := input.Layout.Labels[i]
		bg := input.Theme.LabelBgColor
		if failed[frame.Position] {
			bg = input.Theme.FailedColor
		}
		canvas.DrawRect(label.X, label.Y, label.Width, label.Height, bg)
		canvas.DrawLabel(Label(frame), label.X+2, label.Y+2, input.Theme.LabelColor)
	}

	img := canvas.ToImage()
	if s.sink.Enabled() {
		if err := s.sink.SaveContactSheet(img); err != nil {
			s.logger.Warn("Failed to save contact sheet: %v", err)
		}
	}

	s.logger.Debug("Composition completed")
	return pipeline.SheetResult{Image: img}, nil
}

// Label formats a frame caption as "#position mm:ss.mmm".
func Label(frame pipeline.ExtractedFrame) string {
	ms := int64(frame.Start*1000 + 0.5)
	if ms < 0 {
		ms = 0
	}
	return fmt.Sprintf("#%d %02d:%02d.%03d", frame.Position, ms/60000, ms/1000%60, ms%1000)
}

// scaleParallel resizes every frame to the thumbnail size using a worker pool.
func (s *Stage) scaleParallel(ctx context.Context, input pipeline.SheetInput) ([]image.Image, error) {
	numFrames := len(input.Frames)
	thumbs := make([]image.Image, numFrames)
	jobs := make(chan int, numFrames)
	errChan := make(chan error, 1)

	var wg sync.WaitGroup
	for w := 0; w < min(s.numWorkers, max(numFrames, 1)); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					select {
					case errChan <- err:
					default:
					}
					return
				}
				cell := input.Layout.Cells[idx]
				thumbs[idx] = s.renderer.ResizeImage(input.Frames[idx].Image, cell.Width, cell.Height)
			}
		}()
	}

	for i := 0; i < numFrames; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(errChan)

	if err := <-errChan; err != nil {
		return nil, err
	}
	return thumbs, nil
}
