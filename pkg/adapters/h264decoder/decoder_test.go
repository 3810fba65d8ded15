package h264decoder

import (
	"bytes"
	"errors"
	"testing"

	"github.com/user/vidreader/pkg/ports"
)

func TestAvccToAnnexB(t *testing.T) {
	in := []byte{
		0, 0, 0, 2, 0x65, 0xAA,
		0, 0, 0, 1, 0x41,
	}
	want := []byte{
		0, 0, 0, 1, 0x65, 0xAA,
		0, 0, 0, 1, 0x41,
	}
	if got := avccToAnnexB(in); !bytes.Equal(got, want) {
		t.Errorf("avccToAnnexB = %x, want %x", got, want)
	}
}

func TestAvccToAnnexB_Truncated(t *testing.T) {
	in := []byte{0, 0, 0, 1, 0x41, 0, 0, 0, 9, 0x01}
	want := []byte{0, 0, 0, 1, 0x41}
	if got := avccToAnnexB(in); !bytes.Equal(got, want) {
		t.Errorf("avccToAnnexB = %x, want %x", got, want)
	}
}

func TestParameterSets(t *testing.T) {
	got := parameterSets([][]byte{{0x67, 1}, {0x68, 2}})
	want := []byte{0, 0, 0, 1, 0x67, 1, 0, 0, 0, 1, 0x68, 2}
	if !bytes.Equal(got, want) {
		t.Errorf("parameterSets = %x, want %x", got, want)
	}
}

func TestSplitFrames(t *testing.T) {
	raw := []byte{
		1, 2, 3, 4, 5, 6,
		7, 8, 9, 10, 11, 12,
	}
	out := splitFrames(raw, 2, 1, 3)
	if len(out) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(out))
	}
	if out[2] != nil {
		t.Error("expected missing trailing frame to be nil")
	}
	r, g, b, _ := out[1].At(1, 0).RGBA()
	if r>>8 != 10 || g>>8 != 11 || b>>8 != 12 {
		t.Errorf("pixel = %d,%d,%d", r>>8, g>>8, b>>8)
	}
}

func TestDecodeGroup_NotInitialized(t *testing.T) {
	_, err := New().DecodeGroup([][]byte{{0}})
	if !errors.Is(err, ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestInit_UnknownSize(t *testing.T) {
	err := New().Init(ports.DecoderConfig{Codec: "avc1"})
	if !errors.Is(err, ErrUnknownSize) {
		t.Errorf("expected ErrUnknownSize, got %v", err)
	}
}

func TestFindFFmpeg_CustomPathMissing(t *testing.T) {
	SetFFmpegPath("/nonexistent/ffmpeg")
	defer SetFFmpegPath("")

	if _, err := FindFFmpeg(); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("expected ErrFFmpegNotFound, got %v", err)
	}
}
