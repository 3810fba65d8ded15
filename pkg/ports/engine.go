package ports

import (
	"image"
)

// IOType selects how a codec engine reads container bytes.
type IOType int

const (
	// IOFile reads the container from a path on disk.
	IOFile IOType = iota
	// IOMemory reads the container from an in-memory byte buffer.
	IOMemory
)

// String returns the configuration name of the IO type.
func (t IOType) String() string {
	switch t {
	case IOFile:
		return "file"
	case IOMemory:
		return "memory"
	default:
		return "unknown"
	}
}

// ParseIOType parses a configuration name into an IOType.
// Unknown names fall back to IOFile.
func ParseIOType(s string) IOType {
	switch s {
	case "memory", "bytes":
		return IOMemory
	default:
		return IOFile
	}
}

// Source identifies the container to open.
// Path is used with IOFile, Data with IOMemory.
type Source struct {
	Path   string
	Data   []byte
	IOType IOType
}

// Rational is a fraction such as a stream time base or frame rate.
type Rational struct {
	Num int64
	Den int64
}

// Float64 returns the rational as a float, or 0 if the denominator is 0.
func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// StreamInfo describes one elementary stream of an opened container.
type StreamInfo struct {
	Index        int      // Container stream index
	Video        bool     // True for video streams
	Codec        string   // Codec or sample entry name (e.g. "avc1", "jpeg")
	Width        int      // Coded width in pixels (0 if unknown)
	Height       int      // Coded height in pixels (0 if unknown)
	TimeBase     Rational // Seconds per timestamp tick
	AvgFrameRate Rational // Declared average frame rate (0/0 if unknown)
	Rotation     float64  // Display rotation in degrees
	Duration     int64    // Stream duration in time base units (0 if unknown)
	NumFrames    int64    // Declared frame count (0 if unknown)
}

// Packet is one demuxed access unit of the selected stream.
type Packet struct {
	PTS      int64 // Presentation timestamp, NoTimestamp if unknown
	DTS      int64 // Decoding timestamp, NoTimestamp if unknown
	Duration int64 // Duration in time base units (0 if unknown)
	Keyframe bool  // Independently decodable
}

// NoTimestamp marks an unknown container timestamp.
const NoTimestamp int64 = -1 << 63

// PacketCursor iterates the packets of the selected stream in decode order.
type PacketCursor interface {
	// Next returns the next packet, or io.EOF after the last one.
	Next() (Packet, error)

	// Close releases the cursor.
	Close() error
}

// DecodedFrame is one frame produced by a codec engine.
type DecodedFrame struct {
	// Image holds the decoded pixels. It is nil when Err is set.
	Image image.Image

	// PTS is the presentation timestamp of the frame.
	PTS int64

	// Err is set when this frame could not be decoded but its slot in the
	// stream is known. It wraps ErrCorruptFrame.
	Err error
}

// EngineOptions configures a codec engine when it is opened.
type EngineOptions struct {
	// Threads is the decoder worker count (0 = engine default).
	Threads int
}

// CodecEngine abstracts demuxing and decoding of a video container.
//
// Frames come out of DecodeFrame in presentation order. An engine is owned by
// a single reader and driven by one goroutine at a time, except ScanPackets,
// which may run concurrently with decoding and must return a cursor that is
// independent of the decode position.
type CodecEngine interface {
	// Open opens the container described by src.
	Open(src Source, opts EngineOptions) error

	// Streams lists all streams of the opened container.
	Streams() []StreamInfo

	// SelectStream makes the given container stream the active one and
	// restarts decoding at its first packet. It fails with ErrNoSuchStream
	// if the stream does not exist or is not video.
	SelectStream(index int) error

	// ScanPackets returns a fresh cursor over the active stream's packets.
	ScanPackets() (PacketCursor, error)

	// SeekTimestamp repositions decoding at the last keyframe whose
	// timestamp is <= pts and discards any buffered decoder state.
	SeekTimestamp(pts int64) error

	// DecodeFrame returns the next decoded frame, or io.EOF at end of stream.
	DecodeFrame() (DecodedFrame, error)

	// Close releases all engine resources.
	Close() error
}
