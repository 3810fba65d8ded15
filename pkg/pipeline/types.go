package pipeline

import (
	"context"
	"image"
	"image/color"

	"github.com/user/vidreader/pkg/index"
	"github.com/user/vidreader/pkg/ndarray"
	"github.com/user/vidreader/pkg/ports"
)

// =============================================================================
// Common Types
// =============================================================================

// Dimension represents width and height.
type Dimension struct {
	Width  int
	Height int
}

// Rectangle represents a rectangular area.
type Rectangle struct {
	X      int
	Y      int
	Width  int
	Height int
}

// FrameSource is the part of a reader that extraction stages consume.
type FrameSource interface {
	GetFrameCount() (int64, error)
	GetKeyIndices() ([]int64, error)
	GetFrameTimestamps(positions []int64) ([]index.FrameTimestamp, error)
	GetBatch(ctx context.Context, indices []int64, out *ndarray.NDArray) (*ndarray.NDArray, error)
	FailedPositions() []int64
}

// =============================================================================
// Layout Stage Types
// =============================================================================

// LayoutInput contains parameters for the contact sheet grid.
type LayoutInput struct {
	FrameWidth  int // Width of an extracted frame
	FrameHeight int // Height of an extracted frame
	Count       int // Number of cells
	Columns     int // Number of columns (default: 4)
	ThumbWidth  int // Width of a thumbnail (default: 240)
	Gap         int // Gap between cells (default: 8)
	Padding     int // Padding around the sheet (default: 16)
	LabelHeight int // Height of the label strip below each cell (default: 16)
}

// DefaultLayoutInput returns LayoutInput with default values.
func DefaultLayoutInput() LayoutInput {
	return LayoutInput{
		Columns:     4,
		ThumbWidth:  240,
		Gap:         8,
		Padding:     16,
		LabelHeight: 16,
	}
}

// LayoutResult contains the calculated sheet size and cell positions.
type LayoutResult struct {
	// Canvas is the full sheet size.
	Canvas Dimension

	// Thumb is the size every frame is scaled to.
	Thumb Dimension

	// Cells holds one thumbnail rectangle per frame in row-major order.
	Cells []Rectangle

	// Labels holds the label strip below each cell.
	Labels []Rectangle
}

// =============================================================================
// Extract Stage Types
// =============================================================================

// ExtractInput contains the positions to read from a FrameSource.
type ExtractInput struct {
	Positions []int64
	BatchSize int // Frames per GetBatch call (default: 16)
}

// DefaultBatchSize is used when ExtractInput.BatchSize is not positive.
const DefaultBatchSize = 16

// ExtractResult contains the extracted frames in request order.
type ExtractResult struct {
	Frames []ExtractedFrame
	Failed []int64 // Positions substituted by the fault-tolerance cache
	Width  int
	Height int
}

// ExtractedFrame represents a single decoded frame.
type ExtractedFrame struct {
	Position int64
	Start    float64 // Presentation start in seconds
	Image    *image.RGBA
}

// =============================================================================
// Sheet Stage Types
// =============================================================================

// SheetInput contains parameters for contact sheet composition.
type SheetInput struct {
	Frames     []ExtractedFrame
	Layout     LayoutResult
	Failed     []int64 // Positions whose label is highlighted
	Theme      SheetTheme
	ShowLabels bool
}

// SheetTheme defines sheet styling.
type SheetTheme struct {
	BackgroundColor color.Color
	LabelColor      color.Color
	LabelBgColor    color.Color
	FailedColor     color.Color
}

// DefaultSheetTheme returns a default sheet theme.
func DefaultSheetTheme() SheetTheme {
	return SheetTheme{
		BackgroundColor: color.RGBA{R: 30, G: 30, B: 30, A: 255},
		LabelColor:      color.White,
		LabelBgColor:    color.RGBA{R: 60, G: 60, B: 60, A: 255},
		FailedColor:     color.RGBA{R: 220, G: 60, B: 60, A: 255},
	}
}

// SheetResult contains the composed contact sheet.
type SheetResult struct {
	Image image.Image
}

// =============================================================================
// Encode Stage Types
// =============================================================================

// EncodeInput contains parameters for image encoding.
type EncodeInput struct {
	Image   image.Image
	Format  ports.ImageFormat
	Quality int // JPEG quality 1-100
}

// DefaultEncodeInput returns EncodeInput with default values.
func DefaultEncodeInput() EncodeInput {
	return EncodeInput{
		Format:  ports.FormatPNG,
		Quality: 90,
	}
}

// EncodeResult contains the encoded image.
type EncodeResult struct {
	Data     []byte
	Format   ports.ImageFormat
	FileSize int64
}
