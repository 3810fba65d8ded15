package ports

import (
	"image"
)

// DecoderConfig carries the codec setup a sample decoder needs.
type DecoderConfig struct {
	Codec  string // Sample entry name (e.g. "avc1", "jpeg")
	Width  int
	Height int

	// ParameterSets holds out-of-band codec configuration such as H.264
	// SPS and PPS NAL units, without start codes.
	ParameterSets [][]byte

	Threads int
}

// SampleDecoder turns compressed samples into pixels.
// It is used by container engines that demux on their own.
type SampleDecoder interface {
	// Init prepares the decoder for the given stream configuration.
	Init(cfg DecoderConfig) error

	// DecodeGroup decodes one closed group of pictures given in decode order.
	// The result is in presentation order and has one entry per sample; a nil
	// entry marks a sample that could not be decoded.
	DecodeGroup(samples [][]byte) ([]image.Image, error)

	// Close releases decoder resources.
	Close()
}
