// Package jpegdecoder decodes Motion-JPEG samples.
package jpegdecoder

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"

	"github.com/user/vidreader/pkg/ports"
)

// ErrNotInitialized is returned by DecodeGroup before Init.
var ErrNotInitialized = errors.New("jpegdecoder: decoder not initialized")

// Decoder implements ports.SampleDecoder for intra-only JPEG streams.
// Every sample is a keyframe, so decode order is presentation order.
type Decoder struct {
	initialized bool
}

// New creates a new JPEG sample decoder.
func New() *Decoder {
	return &Decoder{}
}

// Init prepares the decoder. JPEG samples carry their own tables, so the
// configuration is not needed.
func (d *Decoder) Init(cfg ports.DecoderConfig) error {
	d.initialized = true
	return nil
}

// DecodeGroup decodes each sample independently. Samples that fail to decode
// yield a nil entry.
func (d *Decoder) DecodeGroup(samples [][]byte) ([]image.Image, error) {
	if !d.initialized {
		return nil, ErrNotInitialized
	}
	out := make([]image.Image, len(samples))
	for i, s := range samples {
		img, err := jpeg.Decode(bytes.NewReader(s))
		if err != nil {
			continue
		}
		out[i] = img
	}
	return out, nil
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	d.initialized = false
}

// Ensure Decoder implements ports.SampleDecoder
var _ ports.SampleDecoder = (*Decoder)(nil)
