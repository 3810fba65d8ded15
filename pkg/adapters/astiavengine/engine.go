//go:build astiav

// Package astiavengine implements ports.CodecEngine on FFmpeg through
// go-astiav. It is built with the "astiav" build tag and needs the FFmpeg
// development libraries.
package astiavengine

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/asticode/go-astiav"

	"github.com/user/vidreader/pkg/ports"
)

var initOnce sync.Once

// globalInit configures process-wide FFmpeg state once.
func globalInit() {
	initOnce.Do(func() {
		astiav.SetLogLevel(astiav.LogLevelError)
	})
}

var (
	// ErrNotOpen is returned by operations that need an opened container.
	ErrNotOpen = errors.New("astiavengine: container not open")

	// ErrNoDecoder is returned when FFmpeg has no decoder for the stream.
	ErrNoDecoder = errors.New("astiavengine: no decoder for stream")
)

// Engine implements ports.CodecEngine.
type Engine struct {
	path    string
	tmpPath string
	threads int

	fc      *astiav.FormatContext
	streams []ports.StreamInfo

	stream *astiav.Stream
	cc     *astiav.CodecContext
	pkt    *astiav.Packet
	frame  *astiav.Frame
	eof    bool // demuxer exhausted, decoder drained with a nil packet
}

// New creates an FFmpeg engine.
func New() *Engine {
	globalInit()
	return &Engine{}
}

// Open opens the container. In-memory sources are spooled to a temporary file.
func (e *Engine) Open(src ports.Source, opts ports.EngineOptions) error {
	if e.fc != nil {
		return fmt.Errorf("astiavengine: already open")
	}
	e.threads = opts.Threads
	e.path = src.Path

	if src.IOType == ports.IOMemory {
		f, err := os.CreateTemp("", "vidreader_*")
		if err != nil {
			return fmt.Errorf("create spool file: %w", err)
		}
		_, werr := f.Write(src.Data)
		cerr := f.Close()
		if werr != nil || cerr != nil {
			os.Remove(f.Name())
			return fmt.Errorf("write spool file: %w", errors.Join(werr, cerr))
		}
		e.path, e.tmpPath = f.Name(), f.Name()
	}

	fc, err := openInput(e.path)
	if err != nil {
		e.Close()
		return err
	}
	e.fc = fc

	for _, s := range fc.Streams() {
		e.streams = append(e.streams, streamInfo(s))
	}
	e.pkt = astiav.AllocPacket()
	e.frame = astiav.AllocFrame()
	return nil
}

func openInput(path string) (*astiav.FormatContext, error) {
	fc := astiav.AllocFormatContext()
	if fc == nil {
		return nil, errors.New("astiavengine: alloc format context")
	}
	if err := fc.OpenInput(path, nil, nil); err != nil {
		fc.Free()
		return nil, fmt.Errorf("open input: %w", err)
	}
	if err := fc.FindStreamInfo(nil); err != nil {
		fc.CloseInput()
		fc.Free()
		return nil, fmt.Errorf("find stream info: %w", err)
	}
	return fc, nil
}

func streamInfo(s *astiav.Stream) ports.StreamInfo {
	cp := s.CodecParameters()
	info := ports.StreamInfo{
		Index:        s.Index(),
		Video:        cp.MediaType() == astiav.MediaTypeVideo,
		Codec:        cp.CodecID().Name(),
		TimeBase:     ports.Rational{Num: int64(s.TimeBase().Num()), Den: int64(s.TimeBase().Den())},
		AvgFrameRate: ports.Rational{Num: int64(s.AvgFrameRate().Num()), Den: int64(s.AvgFrameRate().Den())},
		Duration:     s.Duration(),
		NumFrames:    s.NbFrames(),
	}
	if info.Video {
		info.Width, info.Height = cp.Width(), cp.Height()
	}
	return info
}

// Streams lists all streams of the container.
func (e *Engine) Streams() []ports.StreamInfo {
	out := make([]ports.StreamInfo, len(e.streams))
	copy(out, e.streams)
	return out
}

// SelectStream opens a decoder for a video stream and rewinds to its start.
func (e *Engine) SelectStream(index int) error {
	if e.fc == nil {
		return ErrNotOpen
	}
	if index < 0 || index >= len(e.streams) || !e.streams[index].Video {
		return fmt.Errorf("%w: %d", ports.ErrNoSuchStream, index)
	}
	e.stream = e.fc.Streams()[index]
	if err := e.openDecoder(); err != nil {
		return err
	}
	return e.seek(e.stream.StartTime())
}

func (e *Engine) openDecoder() error {
	if e.cc != nil {
		e.cc.Free()
		e.cc = nil
	}
	cp := e.stream.CodecParameters()
	codec := astiav.FindDecoder(cp.CodecID())
	if codec == nil {
		return fmt.Errorf("%w: %s", ErrNoDecoder, cp.CodecID().Name())
	}
	cc := astiav.AllocCodecContext(codec)
	if cc == nil {
		return errors.New("astiavengine: alloc codec context")
	}
	if err := cp.ToCodecContext(cc); err != nil {
		cc.Free()
		return fmt.Errorf("codec parameters: %w", err)
	}
	if e.threads > 0 {
		cc.SetThreadCount(e.threads)
	}
	if err := cc.Open(codec, nil); err != nil {
		cc.Free()
		return fmt.Errorf("open codec: %w", err)
	}
	e.cc = cc
	e.eof = false
	return nil
}

// ScanPackets opens a second demuxer on the same input, so scanning never
// moves the decode position.
func (e *Engine) ScanPackets() (ports.PacketCursor, error) {
	if e.stream == nil {
		return nil, ErrNotOpen
	}
	fc, err := openInput(e.path)
	if err != nil {
		return nil, err
	}
	return &cursor{fc: fc, pkt: astiav.AllocPacket(), stream: e.stream.Index()}, nil
}

// SeekTimestamp seeks to the keyframe at or before pts and resets the decoder.
func (e *Engine) SeekTimestamp(pts int64) error {
	if e.stream == nil {
		return ErrNotOpen
	}
	if err := e.openDecoder(); err != nil {
		return err
	}
	return e.seek(pts)
}

func (e *Engine) seek(pts int64) error {
	if pts == astiav.NoPtsValue {
		pts = 0
	}
	flags := astiav.NewSeekFlags(astiav.SeekFlagBackward)
	if err := e.fc.SeekFrame(e.stream.Index(), pts, flags); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrSeekFailure, err)
	}
	return nil
}

// DecodeFrame returns the next frame of the selected stream.
func (e *Engine) DecodeFrame() (ports.DecodedFrame, error) {
	if e.cc == nil {
		return ports.DecodedFrame{}, ErrNotOpen
	}
	for {
		err := e.cc.ReceiveFrame(e.frame)
		switch {
		case err == nil:
			return e.takeFrame()
		case errors.Is(err, astiav.ErrEof):
			return ports.DecodedFrame{}, io.EOF
		case !errors.Is(err, astiav.ErrEagain):
			return ports.DecodedFrame{}, fmt.Errorf("receive frame: %w", err)
		}

		if e.eof {
			return ports.DecodedFrame{}, io.EOF
		}
		if pts, err := e.feed(); err != nil {
			return ports.DecodedFrame{PTS: pts, Err: fmt.Errorf("%w: %v", ports.ErrCorruptFrame, err)}, nil
		}
	}
}

// feed sends the next packet of the selected stream to the decoder, or the
// drain signal at end of input. It returns the PTS of the packet sent.
func (e *Engine) feed() (int64, error) {
	for {
		err := e.fc.ReadFrame(e.pkt)
		if errors.Is(err, astiav.ErrEof) {
			e.eof = true
			return ports.NoTimestamp, e.cc.SendPacket(nil)
		}
		if err != nil {
			return ports.NoTimestamp, err
		}
		if e.pkt.StreamIndex() != e.stream.Index() {
			e.pkt.Unref()
			continue
		}
		pts := timestamp(e.pkt.Pts())
		err = e.cc.SendPacket(e.pkt)
		e.pkt.Unref()
		return pts, err
	}
}

func (e *Engine) takeFrame() (ports.DecodedFrame, error) {
	defer e.frame.Unref()

	pts := timestamp(e.frame.Pts())
	img, err := e.frame.Data().GuessImageFormat()
	if err == nil {
		err = e.frame.Data().ToImage(img)
	}
	if err != nil {
		return ports.DecodedFrame{PTS: pts, Err: fmt.Errorf("%w: %v", ports.ErrCorruptFrame, err)}, nil
	}
	return ports.DecodedFrame{Image: img, PTS: pts}, nil
}

// Close releases all FFmpeg resources and removes the spool file.
func (e *Engine) Close() error {
	if e.cc != nil {
		e.cc.Free()
		e.cc = nil
	}
	if e.frame != nil {
		e.frame.Free()
		e.frame = nil
	}
	if e.pkt != nil {
		e.pkt.Free()
		e.pkt = nil
	}
	if e.fc != nil {
		e.fc.CloseInput()
		e.fc.Free()
		e.fc = nil
	}
	e.stream = nil
	if e.tmpPath != "" {
		os.Remove(e.tmpPath)
		e.tmpPath = ""
	}
	return nil
}

// Ensure Engine implements ports.CodecEngine
var _ ports.CodecEngine = (*Engine)(nil)

// cursor reads packets of one stream from a private demuxer.
type cursor struct {
	fc     *astiav.FormatContext
	pkt    *astiav.Packet
	stream int
}

func (c *cursor) Next() (ports.Packet, error) {
	for {
		err := c.fc.ReadFrame(c.pkt)
		if errors.Is(err, astiav.ErrEof) {
			return ports.Packet{}, io.EOF
		}
		if err != nil {
			return ports.Packet{}, fmt.Errorf("read packet: %w", err)
		}
		if c.pkt.StreamIndex() != c.stream {
			c.pkt.Unref()
			continue
		}
		p := ports.Packet{
			PTS:      timestamp(c.pkt.Pts()),
			DTS:      timestamp(c.pkt.Dts()),
			Duration: c.pkt.Duration(),
			Keyframe: c.pkt.Flags().Has(astiav.PacketFlagKey),
		}
		c.pkt.Unref()
		return p, nil
	}
}

func (c *cursor) Close() error {
	c.pkt.Free()
	c.fc.CloseInput()
	c.fc.Free()
	return nil
}

func timestamp(ts int64) int64 {
	if ts == astiav.NoPtsValue {
		return ports.NoTimestamp
	}
	return ts
}
