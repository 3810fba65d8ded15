//go:build aom

package av1decoder

import (
	"errors"
	"testing"

	"github.com/user/vidreader/pkg/ports"
)

func TestDecoder_Init(t *testing.T) {
	decoder := New()

	if err := decoder.Init(ports.DecoderConfig{Codec: "av01", Threads: 2}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	decoder.Close()
}

func TestDecoder_DecodeWithoutInit(t *testing.T) {
	decoder := New()

	_, err := decoder.DecodeGroup([][]byte{{0x00}})
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("got %v, want ErrNotInitialized", err)
	}
}

func TestDecoder_BrokenSamples(t *testing.T) {
	decoder := New()
	if err := decoder.Init(ports.DecoderConfig{Codec: "av01"}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer decoder.Close()

	images, err := decoder.DecodeGroup([][]byte{{}, {0xff, 0xff, 0xff}})
	if err != nil {
		t.Fatalf("DecodeGroup failed: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("got %d entries, want 2", len(images))
	}
	for i, img := range images {
		if img != nil {
			t.Errorf("entry %d: expected nil for a broken sample", i)
		}
	}
}

func TestDecoder_Close(t *testing.T) {
	decoder := New()
	if err := decoder.Init(ports.DecoderConfig{}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	// Should not panic
	decoder.Close()
	decoder.Close()
}

func TestClamp(t *testing.T) {
	tests := []struct {
		input    int
		expected int
	}{
		{-10, 0},
		{0, 0},
		{128, 128},
		{255, 255},
		{300, 255},
	}

	for _, tt := range tests {
		if result := clamp(tt.input); result != tt.expected {
			t.Errorf("clamp(%d) = %d, want %d", tt.input, result, tt.expected)
		}
	}
}
