package filesink

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"github.com/user/vidreader/pkg/mocks"
	"github.com/user/vidreader/pkg/ports"
)

// testBaseDir is a platform-independent base directory for tests
var testBaseDir = filepath.Join("out")

func TestSink_Enabled(t *testing.T) {
	sink := New(testBaseDir, mocks.NewFileSystem(), &mocks.Renderer{})

	if !sink.Enabled() {
		t.Error("expected Enabled to return true")
	}
}

func TestSink_SaveFrame(t *testing.T) {
	fs := mocks.NewFileSystem()
	var gotFormat ports.ImageFormat = -1
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			gotFormat = format
			return []byte("png"), nil
		},
	}
	sink := New(testBaseDir, fs, renderer)

	if err := sink.SaveFrame(42, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}

	expectedPath := filepath.Join(testBaseDir, "frames", "frame-000042.png")
	saved, ok := fs.File(expectedPath)
	if !ok {
		t.Fatalf("expected file to be saved at %s", expectedPath)
	}
	if string(saved) != "png" {
		t.Errorf("unexpected content %q", saved)
	}
	if gotFormat != ports.FormatPNG {
		t.Errorf("expected PNG encoding, got %d", gotFormat)
	}
}

func TestSink_SaveFrameJPEG(t *testing.T) {
	fs := mocks.NewFileSystem()
	var gotQuality int
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			gotQuality = quality
			return []byte("jpg"), nil
		},
	}
	sink := New(testBaseDir, fs, renderer).WithJPEG(85)

	if err := sink.SaveFrame(7, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("SaveFrame failed: %v", err)
	}
	if _, ok := fs.File(filepath.Join(testBaseDir, "frames", "frame-000007.jpg")); !ok {
		t.Error("expected jpg frame to be saved")
	}
	if gotQuality != 85 {
		t.Errorf("expected quality 85, got %d", gotQuality)
	}
}

func TestSink_SaveFrameEncodeError(t *testing.T) {
	renderer := &mocks.Renderer{
		EncodeImageFunc: func(img image.Image, format ports.ImageFormat, quality int) ([]byte, error) {
			return nil, errors.New("boom")
		},
	}
	sink := New(testBaseDir, mocks.NewFileSystem(), renderer)

	if err := sink.SaveFrame(1, image.NewRGBA(image.Rect(0, 0, 1, 1))); err == nil {
		t.Error("expected encode error")
	}
}

func TestSink_SaveIndexJSON(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	data := []byte(`{"frames": 10}`)
	if err := sink.SaveIndexJSON(data); err != nil {
		t.Fatalf("SaveIndexJSON failed: %v", err)
	}

	saved, ok := fs.File(filepath.Join(testBaseDir, "index.json"))
	if !ok || string(saved) != string(data) {
		t.Errorf("expected %q, got %q (found=%v)", data, saved, ok)
	}
}

func TestSink_SaveContactSheet(t *testing.T) {
	fs := mocks.NewFileSystem()
	sink := New(testBaseDir, fs, &mocks.Renderer{})

	if err := sink.SaveContactSheet(image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatalf("SaveContactSheet failed: %v", err)
	}
	if _, ok := fs.File(filepath.Join(testBaseDir, "sheet.png")); !ok {
		t.Error("expected sheet.png to be saved")
	}
}
