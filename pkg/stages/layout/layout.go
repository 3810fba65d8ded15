// Package layout implements the contact sheet layout stage.
package layout

import (
	"context"

	"github.com/user/vidreader/pkg/pipeline"
)

// Stage calculates the grid for a contact sheet.
// This is a pure function with no external dependencies.
type Stage struct{}

// NewStage creates a new layout stage.
func NewStage() *Stage {
	return &Stage{}
}

// Execute calculates the layout based on the input parameters.
func (s *Stage) Execute(ctx context.Context, input pipeline.LayoutInput) (pipeline.LayoutResult, error) {
	return ComputeLayout(input), nil
}

// ComputeLayout places Count thumbnails row by row. Thumbnails keep the
// frame aspect ratio at ThumbWidth; each has a label strip below it.
func ComputeLayout(input pipeline.LayoutInput) pipeline.LayoutResult {
	thumbW := input.ThumbWidth
	if thumbW <= 0 {
		thumbW = input.FrameWidth
	}
	thumbH := thumbW
	if input.FrameWidth > 0 && input.FrameHeight > 0 {
		thumbH = (input.FrameHeight*thumbW + input.FrameWidth/2) / input.FrameWidth
	}
	thumbH = max(thumbH, 1)

	result := pipeline.LayoutResult{
		Canvas: pipeline.Dimension{Width: input.Padding * 2, Height: input.Padding * 2},
		Thumb:  pipeline.Dimension{Width: thumbW, Height: thumbH},
	}
	if input.Count <= 0 || thumbW <= 0 {
		return result
	}

	columns := min(max(input.Columns, 1), input.Count)
	rows := (input.Count + columns - 1) / columns
	cellH := thumbH + input.LabelHeight

	result.Cells = make([]pipeline.Rectangle, input.Count)
	result.Labels = make([]pipeline.Rectangle, input.Count)
	for i := 0; i < input.Count; i++ {
		col, row := i%columns, i/columns
		x := input.Padding + col*(thumbW+input.Gap)
		y := input.Padding + row*(cellH+input.Gap)
		result.Cells[i] = pipeline.Rectangle{X: x, Y: y, Width: thumbW, Height: thumbH}
		result.Labels[i] = pipeline.Rectangle{X: x, Y: y + thumbH, Width: thumbW, Height: input.LabelHeight}
	}

	result.Canvas.Width += columns*thumbW + (columns-1)*input.Gap
	result.Canvas.Height += rows*cellH + (rows-1)*input.Gap
	return result
}
