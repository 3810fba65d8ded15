package mocks

import (
	"image"
	"image/color"
	"sync"

	"github.com/user/vidreader/pkg/ports"
)

// Renderer is a mock implementation of ports.Renderer.
type Renderer struct {
	CreateCanvasFunc func(width, height int, bg color.Color) ports.Canvas
	EncodeImageFunc  func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error)
	ResizeImageFunc  func(img image.Image, width, height int) image.Image
}

func (m *Renderer) CreateCanvas(width, height int, bg color.Color) ports.Canvas {
	if m.CreateCanvasFunc != nil {
		return m.CreateCanvasFunc(width, height, bg)
	}
	return &Canvas{width: width, height: height}
}

func (m *Renderer) EncodeImage(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
	if m.EncodeImageFunc != nil {
		return m.EncodeImageFunc(img, format, quality)
	}
	return []byte{}, nil
}

func (m *Renderer) ResizeImage(img image.Image, width, height int) image.Image {
	if m.ResizeImageFunc != nil {
		return m.ResizeImageFunc(img, width, height)
	}
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

var _ ports.Renderer = (*Renderer)(nil)

// Canvas is a mock implementation of ports.Canvas that records labels.
type Canvas struct {
	width  int
	height int

	mu     sync.Mutex
	Images int
	Labels []string
}

// NewCanvas creates a mock Canvas of the given size.
func NewCanvas(width, height int) *Canvas {
	return &Canvas{width: width, height: height}
}

func (m *Canvas) DrawImageScaled(img image.Image, x, y, width, height int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Images++
}

func (m *Canvas) DrawRect(x, y, w, h int, c color.Color) {}

func (m *Canvas) DrawLabel(text string, x, y int, c color.Color) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Labels = append(m.Labels, text)
}

func (m *Canvas) ToImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, m.width, m.height))
}

var _ ports.Canvas = (*Canvas)(nil)
