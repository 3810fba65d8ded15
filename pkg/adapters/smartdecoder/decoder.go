// Package smartdecoder selects a sample decoder from the codec of a stream.
package smartdecoder

import (
	"errors"
	"fmt"

	"github.com/user/vidreader/pkg/adapters/codecdetect"
	"github.com/user/vidreader/pkg/adapters/h264decoder"
	"github.com/user/vidreader/pkg/adapters/jpegdecoder"
	"github.com/user/vidreader/pkg/ports"
)

// Codec represents the video codec family (re-exported from codecdetect).
type Codec = codecdetect.Codec

// Backend represents the decoding backend used.
type Backend string

const (
	// BackendFFmpeg decodes through an external ffmpeg process.
	BackendFFmpeg Backend = "ffmpeg"
	// BackendNative decodes in process with the Go standard image codecs.
	BackendNative Backend = "native"
	// BackendLibaom decodes AV1 in process through libaom.
	BackendLibaom Backend = "libaom"
)

// Info describes the decoder chosen for a stream.
type Info struct {
	Codec   Codec
	Backend Backend
}

// Options configures decoder selection.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
}

var (
	// ErrUnsupportedCodec is returned when no decoder exists for the codec.
	ErrUnsupportedCodec = errors.New("smartdecoder: unsupported codec")
	// ErrNoDecoderAvailable is returned when the decoder for the codec cannot run here.
	ErrNoDecoderAvailable = errors.New("smartdecoder: no decoder available")
)

// newAV1 is set when the AV1 decoder is compiled in.
var newAV1 func() ports.SampleDecoder

// NewForSampleEntry creates a decoder for an MP4 sample entry such as "avc1".
//
// The selection flow:
//   - Motion-JPEG: in-process JPEG decoder
//   - H.264: ffmpeg decoder, if ffmpeg can be found
//   - AV1: libaom decoder, if built with the "aom" tag
func NewForSampleEntry(entry string, opts Options) (ports.SampleDecoder, Info, error) {
	codec := codecdetect.FromSampleEntry(entry)

	switch codec {
	case codecdetect.CodecMJPEG:
		return jpegdecoder.New(), Info{Codec: codec, Backend: BackendNative}, nil

	case codecdetect.CodecH264:
		if opts.FFmpegPath != "" {
			h264decoder.SetFFmpegPath(opts.FFmpegPath)
		}
		if !h264decoder.IsAvailable() {
			return nil, Info{}, fmt.Errorf("%w: %s needs ffmpeg", ErrNoDecoderAvailable, entry)
		}
		return h264decoder.New(), Info{Codec: codec, Backend: BackendFFmpeg}, nil

	case codecdetect.CodecAV1:
		if newAV1 == nil {
			return nil, Info{}, fmt.Errorf("%w: %s needs libaom", ErrNoDecoderAvailable, entry)
		}
		return newAV1(), Info{Codec: codec, Backend: BackendLibaom}, nil

	default:
		return nil, Info{}, fmt.Errorf("%w: %q", ErrUnsupportedCodec, entry)
	}
}

// Factory returns a function that creates decoders by sample entry name,
// suitable for mp4engine.
func Factory(opts Options) func(entry string) (ports.SampleDecoder, error) {
	return func(entry string) (ports.SampleDecoder, error) {
		dec, _, err := NewForSampleEntry(entry, opts)
		return dec, err
	}
}
