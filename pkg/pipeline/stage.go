// Package pipeline provides the staged processing infrastructure for
// vidreader: the decode pipeline that feeds a reader, and the generic stage
// abstraction used by frame extraction jobs.
package pipeline

import (
	"context"
)

// Stage is one step of an extraction job. A job runs layout, extraction,
// sheet composition and encoding in that order, passing each result on.
type Stage[In, Out any] interface {
	Execute(ctx context.Context, input In) (Out, error)
}

// The stages of an extraction job.
type (
	LayoutStage  = Stage[LayoutInput, LayoutResult]
	ExtractStage = Stage[ExtractInput, ExtractResult]
	SheetStage   = Stage[SheetInput, SheetResult]
	EncodeStage  = Stage[EncodeInput, EncodeResult]
)

// StageFunc lets a plain function stand in for a stage.
type StageFunc[In, Out any] func(ctx context.Context, input In) (Out, error)

func (f StageFunc[In, Out]) Execute(ctx context.Context, input In) (Out, error) {
	return f(ctx, input)
}
