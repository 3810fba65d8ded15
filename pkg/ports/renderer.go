package ports

import (
	"image"
	"image/color"
)

// Renderer abstracts the 2D drawing used for contact sheets.
type Renderer interface {
	// CreateCanvas creates a new drawing canvas with the given size and background.
	CreateCanvas(width, height int, bg color.Color) Canvas

	// EncodeImage encodes an image to the specified format.
	EncodeImage(img image.Image, format ImageFormat, quality int) ([]byte, error)

	// ResizeImage resizes an image to the specified dimensions.
	ResizeImage(img image.Image, width, height int) image.Image
}

// Canvas provides drawing operations for compositing frames.
type Canvas interface {
	// DrawImageScaled draws an image scaled into the given box.
	DrawImageScaled(img image.Image, x, y, width, height int)

	// DrawRect draws a filled rectangle.
	DrawRect(x, y, w, h int, c color.Color)

	// DrawLabel draws a short text label with its top-left corner at x, y.
	DrawLabel(text string, x, y int, c color.Color)

	// ToImage returns the canvas as an image.Image.
	ToImage() image.Image
}

// ImageFormat specifies image encoding format.
type ImageFormat int

const (
	FormatJPEG ImageFormat = iota
	FormatPNG
)
