package mocks

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"sync"

	"github.com/user/vidreader/pkg/ports"
)

// PTSStep is the timestamp distance between consecutive mock frames.
const PTSStep = 10

// Frame describes one frame of a synthetic stream.
type Frame struct {
	Keyframe bool
	Corrupt  bool // Decoded with ErrCorruptFrame
	Missing  bool // Listed by the demuxer but never output by the decoder
}

// Engine is a synthetic ports.CodecEngine. Frame i has PTS i*PTSStep unless
// Timestamps overrides it, and an image whose first pixel encodes i (see
// FrameIndex).
type Engine struct {
	mu sync.Mutex

	StreamList []ports.StreamInfo
	Frames     []Frame
	Width      int
	Height     int

	// SeekOvershoot makes the decoder resume that many frames after the
	// keyframe it was asked to seek to.
	SeekOvershoot int
	// SeekOvershootOnce limits SeekOvershoot to the first seek.
	SeekOvershootOnce bool

	// Timestamps overrides the PTS of frame i when non-nil. Values must be
	// non-decreasing.
	Timestamps []int64

	OpenErr  error
	SeekErr  error
	ScanErr  error
	DecodeFn func(pos int) (ports.DecodedFrame, error)

	OpenCalls   []ports.Source
	SeekCalls   []int64
	ScanCalls   int
	DecodeCalls int
	Selected    int
	Closed      bool

	next int
}

// NewEngine creates a single-stream engine of n frames with a keyframe every
// gop frames, 4x2 pixels.
func NewEngine(n, gop int) *Engine {
	frames := make([]Frame, n)
	for i := range frames {
		frames[i].Keyframe = i%gop == 0
	}
	return &Engine{
		StreamList: []ports.StreamInfo{
			{Index: 0, Video: false, Codec: "mp4a"},
			{
				Index:        1,
				Video:        true,
				Codec:        "mock",
				Width:        4,
				Height:       2,
				TimeBase:     ports.Rational{Num: 1, Den: 250},
				AvgFrameRate: ports.Rational{Num: 25, Den: 1},
				NumFrames:    int64(n),
			},
		},
		Frames:   frames,
		Width:    4,
		Height:   2,
		Selected: -1,
	}
}

// FrameIndex recovers the frame number from a packed RGB frame produced by Engine.
func FrameIndex(rgb []uint8) int {
	return int(rgb[0]) | int(rgb[1])<<8
}

// FrameImage returns the image Engine produces for frame i.
func FrameImage(i, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	c := color.RGBA{R: uint8(i & 0xff), G: uint8((i >> 8) & 0xff), B: 7, A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func (m *Engine) Open(src ports.Source, opts ports.EngineOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenCalls = append(m.OpenCalls, src)
	return m.OpenErr
}

func (m *Engine) Streams() []ports.StreamInfo {
	return m.StreamList
}

func (m *Engine) SelectStream(index int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.StreamList {
		if s.Index == index && s.Video {
			m.Selected = index
			m.next = 0
			return nil
		}
	}
	return fmt.Errorf("%w: %d", ports.ErrNoSuchStream, index)
}

func (m *Engine) ScanPackets() (ports.PacketCursor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ScanCalls++
	if m.ScanErr != nil {
		return nil, m.ScanErr
	}
	packets := make([]ports.Packet, len(m.Frames))
	for i, f := range m.Frames {
		packets[i] = ports.Packet{
			PTS:      m.pts(i),
			DTS:      m.pts(i),
			Duration: PTSStep,
			Keyframe: f.Keyframe,
		}
	}
	return &PacketCursor{Packets: packets}, nil
}

func (m *Engine) SeekTimestamp(pts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SeekCalls = append(m.SeekCalls, pts)
	if m.SeekErr != nil {
		return m.SeekErr
	}

	kf := 0
	for i := 0; i < len(m.Frames) && m.pts(i) <= pts; i++ {
		if m.Frames[i].Keyframe {
			kf = i
		}
	}
	m.next = min(kf+m.SeekOvershoot, len(m.Frames))
	if m.SeekOvershootOnce {
		m.SeekOvershoot = 0
	}
	return nil
}

func (m *Engine) DecodeFrame() (ports.DecodedFrame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DecodeCalls++

	for m.next < len(m.Frames) {
		i := m.next
		m.next++
		if m.DecodeFn != nil {
			return m.DecodeFn(i)
		}
		f := m.Frames[i]
		if f.Missing {
			continue
		}
		pts := m.pts(i)
		if f.Corrupt {
			return ports.DecodedFrame{PTS: pts, Err: fmt.Errorf("%w: frame %d", ports.ErrCorruptFrame, i)}, nil
		}
		return ports.DecodedFrame{PTS: pts, Image: FrameImage(i, m.Width, m.Height)}, nil
	}
	return ports.DecodedFrame{}, io.EOF
}

func (m *Engine) pts(i int) int64 {
	if m.Timestamps != nil {
		return m.Timestamps[i]
	}
	return int64(i * PTSStep)
}

func (m *Engine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Closed = true
	return nil
}

// Seeks returns a copy of the recorded seek timestamps.
func (m *Engine) Seeks() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]int64, len(m.SeekCalls))
	copy(out, m.SeekCalls)
	return out
}

// Scans returns the number of ScanPackets calls.
func (m *Engine) Scans() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ScanCalls
}

// IsClosed reports whether Close was called.
func (m *Engine) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Closed
}

var _ ports.CodecEngine = (*Engine)(nil)

// PacketCursor is a ports.PacketCursor over a fixed packet list.
type PacketCursor struct {
	Packets []ports.Packet
	Err     error // Returned after the packets instead of io.EOF
	pos     int
	Closed  bool
}

func (c *PacketCursor) Next() (ports.Packet, error) {
	if c.pos >= len(c.Packets) {
		if c.Err != nil {
			return ports.Packet{}, c.Err
		}
		return ports.Packet{}, io.EOF
	}
	p := c.Packets[c.pos]
	c.pos++
	return p, nil
}

func (c *PacketCursor) Close() error {
	c.Closed = true
	return nil
}

var _ ports.PacketCursor = (*PacketCursor)(nil)

// ErrMockSeek is a ready-made seek failure.
var ErrMockSeek = errors.New("mock: seek rejected")
