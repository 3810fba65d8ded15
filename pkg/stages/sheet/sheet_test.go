package sheet

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/user/vidreader/pkg/adapters/ggrenderer"
	"github.com/user/vidreader/pkg/adapters/logger"
	"github.com/user/vidreader/pkg/mocks"
	"github.com/user/vidreader/pkg/pipeline"
	"github.com/user/vidreader/pkg/ports"
	"github.com/user/vidreader/pkg/stages/layout"
)

func solidFrame(pos int64, start float64, c color.RGBA) pipeline.ExtractedFrame {
	img := image.NewRGBA(image.Rect(0, 0, 32, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 32; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return pipeline.ExtractedFrame{Position: pos, Start: start, Image: img}
}

func sheetInput(frames []pipeline.ExtractedFrame) pipeline.SheetInput {
	li := pipeline.DefaultLayoutInput()
	li.FrameWidth, li.FrameHeight = 32, 16
	li.Count = len(frames)
	li.ThumbWidth = 16
	li.Columns = 2
	return pipeline.SheetInput{
		Frames:     frames,
		Layout:     layout.ComputeLayout(li),
		Theme:      pipeline.DefaultSheetTheme(),
		ShowLabels: true,
	}
}

func TestStage_Execute(t *testing.T) {
	canvas := mocks.NewCanvas(0, 0)
	renderer := &mocks.Renderer{
		CreateCanvasFunc: func(width, height int, bg color.Color) ports.Canvas { return canvas },
	}
	sink := mocks.NewFrameSink(true)
	stage := NewStage(renderer, sink, logger.NewNoop(), 2)

	frames := []pipeline.ExtractedFrame{
		solidFrame(0, 0, color.RGBA{A: 255}),
		solidFrame(25, 1, color.RGBA{A: 255}),
		solidFrame(1500, 60.04, color.RGBA{A: 255}),
	}
	result, err := stage.Execute(context.Background(), sheetInput(frames))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Image == nil {
		t.Fatal("expected sheet image")
	}
	if canvas.Images != 3 {
		t.Errorf("expected 3 thumbnails drawn, got %d", canvas.Images)
	}
	expected := []string{"#0 00:00.000", "#25 00:01.000", "#1500 01:00.040"}
	if len(canvas.Labels) != len(expected) {
		t.Fatalf("expected %d labels, got %v", len(expected), canvas.Labels)
	}
	for i, want := range expected {
		if canvas.Labels[i] != want {
			t.Errorf("label %d: expected %q, got %q", i, want, canvas.Labels[i])
		}
	}
	if sink.ContactSheet == nil {
		t.Error("expected contact sheet to be saved")
	}
}

func TestStage_Execute_NoLabels(t *testing.T) {
	canvas := mocks.NewCanvas(0, 0)
	renderer := &mocks.Renderer{
		CreateCanvasFunc: func(width, height int, bg color.Color) ports.Canvas { return canvas },
	}
	input := sheetInput([]pipeline.ExtractedFrame{solidFrame(0, 0, color.RGBA{A: 255})})
	input.ShowLabels = false

	if _, err := NewStage(renderer, mocks.NewFrameSink(false), logger.NewNoop(), 1).Execute(context.Background(), input); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(canvas.Labels) != 0 {
		t.Errorf("expected no labels, got %v", canvas.Labels)
	}
}

func TestStage_Execute_EmptyFrames(t *testing.T) {
	stage := NewStage(&mocks.Renderer{}, mocks.NewFrameSink(false), logger.NewNoop(), 2)

	result, err := stage.Execute(context.Background(), sheetInput(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b := result.Image.Bounds(); b.Dx() != 32 || b.Dy() != 32 {
		t.Errorf("expected padding-only sheet, got %v", b)
	}
}

func TestStage_Execute_TooFewCells(t *testing.T) {
	input := sheetInput([]pipeline.ExtractedFrame{solidFrame(0, 0, color.RGBA{A: 255})})
	input.Frames = append(input.Frames, solidFrame(1, 0, color.RGBA{A: 255}))

	_, err := NewStage(&mocks.Renderer{}, mocks.NewFrameSink(false), logger.NewNoop(), 2).Execute(context.Background(), input)
	if err == nil {
		t.Error("expected error for missing cells")
	}
}

func TestStage_Execute_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	input := sheetInput([]pipeline.ExtractedFrame{solidFrame(0, 0, color.RGBA{A: 255})})
	_, err := NewStage(&mocks.Renderer{}, mocks.NewFrameSink(false), logger.NewNoop(), 1).Execute(ctx, input)
	if err == nil {
		t.Error("expected context error")
	}
}

func TestStage_Execute_Pixels(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	input := sheetInput([]pipeline.ExtractedFrame{
		solidFrame(0, 0, red),
		solidFrame(1, 0.04, color.RGBA{B: 255, A: 255}),
	})
	input.Failed = []int64{1}

	result, err := NewStage(ggrenderer.New(), mocks.NewFrameSink(false), logger.NewNoop(), 2).Execute(context.Background(), input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cell := input.Layout.Cells[0]
	got := color.RGBAModel.Convert(result.Image.At(cell.X+cell.Width/2, cell.Y+cell.Height/2)).(color.RGBA)
	if got != red {
		t.Errorf("expected red thumbnail, got %v", got)
	}

	label := input.Layout.Labels[1]
	got = color.RGBAModel.Convert(result.Image.At(label.X+1, label.Y+1)).(color.RGBA)
	if got != input.Theme.FailedColor {
		t.Errorf("expected failed label background, got %v", got)
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		frame pipeline.ExtractedFrame
		want  string
	}{
		{pipeline.ExtractedFrame{Position: 7, Start: 61.5}, "#7 01:01.500"},
		{pipeline.ExtractedFrame{Position: 0, Start: -0.2}, "#0 00:00.000"},
		{pipeline.ExtractedFrame{Position: 3, Start: 0.1234}, "#3 00:00.123"},
	}
	for _, tt := range tests {
		if got := Label(tt.frame); got != tt.want {
			t.Errorf("Label(%+v) = %q, want %q", tt.frame, got, tt.want)
		}
	}
}
