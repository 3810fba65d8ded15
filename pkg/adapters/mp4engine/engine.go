// Package mp4engine implements ports.CodecEngine for MP4 containers with
// mp4ff. Demuxing happens in process; pixels come from a pluggable
// ports.SampleDecoder chosen by sample entry.
package mp4engine

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/vidreader/pkg/ports"
)

var (
	// ErrNotOpen is returned by operations that need an opened container.
	ErrNotOpen = errors.New("mp4engine: container not open")

	// ErrNoStreamSelected is returned when decoding before SelectStream.
	ErrNoStreamSelected = errors.New("mp4engine: no stream selected")
)

// DecoderFactory creates a sample decoder for an MP4 sample entry name.
type DecoderFactory func(entry string) (ports.SampleDecoder, error)

// Engine implements ports.CodecEngine.
type Engine struct {
	newDecoder DecoderFactory

	rs      io.ReadSeeker
	closer  io.Closer
	tracks  []*track
	streams []ports.StreamInfo
	threads int

	active *track
	dec    ports.SampleDecoder
	next   int // next sample to decode, in decode order
	queue  []ports.DecodedFrame
}

// New creates an engine that decodes samples with decoders from newDecoder.
func New(newDecoder DecoderFactory) *Engine {
	return &Engine{newDecoder: newDecoder}
}

// Open parses the container. Sample payloads of progressive files are read
// lazily from the source.
func (e *Engine) Open(src ports.Source, opts ports.EngineOptions) error {
	if e.rs != nil {
		return fmt.Errorf("mp4engine: already open")
	}

	switch src.IOType {
	case ports.IOMemory:
		e.rs = bytes.NewReader(src.Data)
	default:
		f, err := os.Open(src.Path)
		if err != nil {
			return fmt.Errorf("open file: %w", err)
		}
		e.rs, e.closer = f, f
	}
	e.threads = opts.Threads

	file, err := mp4.DecodeFile(e.rs)
	if err != nil {
		e.Close()
		return fmt.Errorf("decode mp4: %w", err)
	}

	tracks, err := parseTracks(file)
	if err != nil {
		e.Close()
		return err
	}
	e.tracks = tracks
	e.streams = make([]ports.StreamInfo, len(tracks))
	for i, t := range tracks {
		e.streams[i] = t.info
	}
	return nil
}

// Streams lists all tracks of the container in moov order.
func (e *Engine) Streams() []ports.StreamInfo {
	out := make([]ports.StreamInfo, len(e.streams))
	copy(out, e.streams)
	return out
}

// SelectStream activates a video track and creates its sample decoder.
func (e *Engine) SelectStream(index int) error {
	if e.rs == nil {
		return ErrNotOpen
	}
	if index < 0 || index >= len(e.tracks) || !e.tracks[index].info.Video {
		return fmt.Errorf("%w: %d", ports.ErrNoSuchStream, index)
	}

	t := e.tracks[index]
	dec, err := e.newDecoder(t.info.Codec)
	if err != nil {
		return fmt.Errorf("create decoder for %s: %w", t.info.Codec, err)
	}
	if err := dec.Init(ports.DecoderConfig{
		Codec:         t.info.Codec,
		Width:         t.info.Width,
		Height:        t.info.Height,
		ParameterSets: t.params,
		Threads:       e.threads,
	}); err != nil {
		dec.Close()
		return fmt.Errorf("init decoder: %w", err)
	}

	if e.dec != nil {
		e.dec.Close()
	}
	e.active, e.dec = t, dec
	e.next, e.queue = 0, nil
	return nil
}

// ScanPackets returns a cursor over the sample table of the active track.
// It does not touch the decode position.
func (e *Engine) ScanPackets() (ports.PacketCursor, error) {
	if e.active == nil {
		return nil, ErrNoStreamSelected
	}
	return &cursor{samples: e.active.samples}, nil
}

// SeekTimestamp positions decoding at the last sync sample whose
// presentation time is <= pts, or at the first sample.
func (e *Engine) SeekTimestamp(pts int64) error {
	if e.active == nil {
		return ErrNoStreamSelected
	}
	start := 0
	for i, s := range e.active.samples {
		if s.sync && s.pts() <= pts {
			start = i
		}
	}
	e.next, e.queue = start, nil
	return nil
}

// DecodeFrame returns the next frame in presentation order, decoding one
// group of pictures at a time.
func (e *Engine) DecodeFrame() (ports.DecodedFrame, error) {
	if e.active == nil {
		return ports.DecodedFrame{}, ErrNoStreamSelected
	}
	if len(e.queue) == 0 {
		if e.next >= len(e.active.samples) {
			return ports.DecodedFrame{}, io.EOF
		}
		if err := e.decodeGroup(); err != nil {
			return ports.DecodedFrame{}, err
		}
	}
	f := e.queue[0]
	e.queue = e.queue[1:]
	return f, nil
}

// decodeGroup decodes samples from e.next up to the next sync sample.
func (e *Engine) decodeGroup() error {
	samples := e.active.samples
	end := e.next + 1
	for end < len(samples) && !samples[end].sync {
		end++
	}
	group := samples[e.next:end]
	e.next = end

	payloads := make([][]byte, len(group))
	pts := make([]int64, len(group))
	for i := range group {
		data, err := e.readSample(&group[i])
		if err != nil {
			return fmt.Errorf("read sample: %w", err)
		}
		payloads[i] = data
		pts[i] = group[i].pts()
	}
	sort.Slice(pts, func(a, b int) bool { return pts[a] < pts[b] })

	images, err := e.dec.DecodeGroup(payloads)
	if err != nil {
		images = nil
	}
	e.queue = make([]ports.DecodedFrame, len(group))
	for i := range e.queue {
		e.queue[i].PTS = pts[i]
		if i < len(images) && images[i] != nil {
			e.queue[i].Image = images[i]
			continue
		}
		cause := "no picture"
		if err != nil {
			cause = err.Error()
		}
		e.queue[i].Err = fmt.Errorf("%w: pts %d: %s", ports.ErrCorruptFrame, pts[i], cause)
	}
	return nil
}

func (e *Engine) readSample(s *sample) ([]byte, error) {
	if s.data != nil {
		return s.data, nil
	}
	if _, err := e.rs.Seek(int64(s.offset), io.SeekStart); err != nil {
		return nil, err
	}
	data := make([]byte, s.size)
	if _, err := io.ReadFull(e.rs, data); err != nil {
		return nil, err
	}
	return data, nil
}

// Close releases the decoder and the source file.
func (e *Engine) Close() error {
	if e.dec != nil {
		e.dec.Close()
		e.dec = nil
	}
	e.active, e.queue = nil, nil
	var err error
	if e.closer != nil {
		err = e.closer.Close()
		e.closer = nil
	}
	e.rs = nil
	return err
}

// Ensure Engine implements ports.CodecEngine
var _ ports.CodecEngine = (*Engine)(nil)
