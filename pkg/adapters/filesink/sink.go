// Package filesink provides a file-based frame sink implementation.
package filesink

import (
	"fmt"
	"image"
	"path/filepath"

	"github.com/user/vidreader/pkg/ports"
)

// Sink writes extracted frames and reader metadata below a base directory.
type Sink struct {
	baseDir  string
	fs       ports.FileSystem
	renderer ports.Renderer
	format   ports.ImageFormat
	quality  int
}

// New creates a new Sink that stores frames as PNG.
func New(baseDir string, fs ports.FileSystem, renderer ports.Renderer) *Sink {
	return &Sink{
		baseDir:  baseDir,
		fs:       fs,
		renderer: renderer,
		format:   ports.FormatPNG,
	}
}

// WithJPEG switches frame output to JPEG at the given quality.
func (s *Sink) WithJPEG(quality int) *Sink {
	s.format = ports.FormatJPEG
	s.quality = quality
	return s
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SaveFrame saves a frame as frames/frame-NNNNNN.{png,jpg}.
func (s *Sink) SaveFrame(position int64, img image.Image) error {
	dir := filepath.Join(s.baseDir, "frames")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	data, err := s.renderer.EncodeImage(img, s.format, s.quality)
	if err != nil {
		return fmt.Errorf("encode frame %d: %w", position, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("frame-%06d.%s", position, s.ext()))
	return s.fs.WriteFile(path, data)
}

// SaveIndexJSON saves the serialized frame index.
func (s *Sink) SaveIndexJSON(data []byte) error {
	path := filepath.Join(s.baseDir, "index.json")
	return s.fs.WriteFile(path, data)
}

// SaveContactSheet saves the contact sheet as PNG.
func (s *Sink) SaveContactSheet(img image.Image) error {
	data, err := s.renderer.EncodeImage(img, ports.FormatPNG, 0)
	if err != nil {
		return fmt.Errorf("encode contact sheet: %w", err)
	}
	path := filepath.Join(s.baseDir, "sheet.png")
	return s.fs.WriteFile(path, data)
}

func (s *Sink) ext() string {
	if s.format == ports.FormatJPEG {
		return "jpg"
	}
	return "png"
}

// Ensure Sink implements ports.FrameSink
var _ ports.FrameSink = (*Sink)(nil)
