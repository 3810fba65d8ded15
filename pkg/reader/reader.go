// Package reader decodes a video stream into addressable frames.
//
// A Reader owns a codec engine, a background decode pipeline and a pool of
// output buffers. It serves sequential reads (NextFrame), random-access
// batches (GetBatch), approximate and frame-accurate seeks, and substitutes
// the last good frame for undecodable ones within a configured tolerance.
//
// A Reader is not safe for concurrent use.
package reader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/user/vidreader/pkg/adapters/drawtransform"
	"github.com/user/vidreader/pkg/adapters/logger"
	"github.com/user/vidreader/pkg/bufpool"
	"github.com/user/vidreader/pkg/index"
	"github.com/user/vidreader/pkg/ndarray"
	"github.com/user/vidreader/pkg/pipeline"
	"github.com/user/vidreader/pkg/ports"
)

// State is the lifecycle state of a Reader.
type State int

const (
	StateUnopened State = iota
	StateStreamSelected
	StateStreaming
	StateEndOfStream
	StateClosed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateStreamSelected:
		return "stream-selected"
	case StateStreaming:
		return "streaming"
	case StateEndOfStream:
		return "end-of-stream"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// IndexSnapshot is read-only access to a reader's frame index.
type IndexSnapshot interface {
	FrameCount() int64
	KeyIndices() []int64
	FrameToTimestamp(pos int64) (index.FrameTimestamp, error)
	LocateKeyframe(pos int64) int64
	Degraded() bool
}

var _ IndexSnapshot = (*index.Index)(nil)

// decoded is a frame that came out of the pipeline but has not been consumed.
type decoded struct {
	pos   int64
	frame ports.DecodedFrame
}

// Reader reads frames from one video stream of a container.
type Reader struct {
	id          string
	engine      ports.CodecEngine
	opts        Options
	logger      ports.Logger
	metrics     ports.Metrics
	transformer ports.Transformer
	aug         *augmenter

	state   State
	streams []ports.StreamInfo
	stream  ports.StreamInfo
	ix      *index.Index
	pipe    *pipeline.Decode
	pool    *bufpool.Pool

	// Output geometry; zero until known.
	width  int
	height int

	current int64
	pending *decoded
	landing bool
	op      *ports.TransformOp

	fault     faultState
	cached    *ndarray.NDArray
	hasCached bool
}

// New opens src with engine and selects opts.Stream. The reader owns engine
// from here on and closes it in Close, or before returning an error.
func New(engine ports.CodecEngine, src ports.Source, opts Options) (*Reader, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	tol, _ := parseFaultTol(opts.FaultTol)

	if len(src.Data) > 0 {
		src.IOType = ports.IOMemory
	} else {
		src.IOType = opts.IOType
	}
	if src.IOType == ports.IOMemory && len(src.Data) == 0 {
		return nil, fmt.Errorf("%w: in-memory IO without data", ErrInvalidOption)
	}

	id := uuid.NewString()
	r := &Reader{
		id:          id,
		engine:      engine,
		opts:        opts,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		transformer: opts.Transformer,
		aug:         newAugmenter(opts.Augment, opts.Seed),
		state:       StateUnopened,
		fault:       newFaultState(tol),
	}
	if r.logger == nil {
		r.logger = logger.NewNoop()
	}
	r.logger = r.logger.WithComponent("reader " + id[:8])
	if r.metrics == nil {
		r.metrics = nopMetrics{}
	}
	if r.transformer == nil {
		r.transformer = drawtransform.New()
	}

	if err := engine.Open(src, ports.EngineOptions{Threads: opts.Threads}); err != nil {
		engine.Close()
		return nil, fmt.Errorf("open source: %w", err)
	}
	r.streams = engine.Streams()

	if err := r.SetVideoStream(opts.Stream); err != nil {
		engine.Close()
		return nil, err
	}
	r.logger.Info("Opened video stream %d: %s %dx%d", r.stream.Index, r.stream.Codec, r.stream.Width, r.stream.Height)
	return r, nil
}

// ID returns the reader's unique id, used to tag its log output.
func (r *Reader) ID() string {
	return r.id
}

// State returns the current lifecycle state.
func (r *Reader) State() State {
	return r.state
}

// SetVideoStream selects the container stream to read. -1 selects the first
// video stream. Selecting a stream resets position, index and fault state.
func (r *Reader) SetVideoStream(stream int) error {
	if r.state == StateClosed {
		return ErrClosed
	}

	info, ok := r.findStream(stream)
	if !ok {
		return fmt.Errorf("%w: %d", ErrNoSuchStream, stream)
	}

	// The decode worker must be gone before the engine switches decoders.
	if r.pipe != nil {
		r.pipe.Stop()
		r.pipe = nil
	}
	r.pending = nil
	if err := r.engine.SelectStream(info.Index); err != nil {
		// Frames queued by the stopped worker are gone; follow the engine.
		r.landing = true
		return fmt.Errorf("select stream %d: %w", info.Index, err)
	}

	if r.pool != nil {
		r.pool.Close()
		r.pool = nil
	}

	r.stream = info
	r.ix = nil
	r.current = 0
	r.pending = nil
	r.landing = false
	r.fault = newFaultState(r.fault.tol)
	r.cached = nil
	r.hasCached = false

	r.width, r.height = 0, 0
	switch {
	case r.opts.Width > 0 && r.opts.Height > 0:
		r.setGeometry(r.opts.Width, r.opts.Height)
	case info.Width > 0 && info.Height > 0:
		r.setGeometry(r.outputSize(info.Width, info.Height))
	}

	r.state = StateStreamSelected
	return nil
}

func (r *Reader) findStream(stream int) (ports.StreamInfo, bool) {
	for _, s := range r.streams {
		if !s.Video {
			continue
		}
		if stream < 0 || s.Index == stream {
			return s, true
		}
	}
	return ports.StreamInfo{}, false
}

// outputSize resolves the configured size against the native one. A single
// positive side is matched by the other at the native aspect ratio.
func (r *Reader) outputSize(nativeW, nativeH int) (width, height int) {
	w, h := r.opts.Width, r.opts.Height
	switch {
	case w > 0 && h > 0:
		return w, h
	case w > 0:
		return w, max(1, int(math.Round(float64(w)*float64(nativeH)/float64(nativeW))))
	case h > 0:
		return max(1, int(math.Round(float64(h)*float64(nativeW)/float64(nativeH)))), h
	default:
		return nativeW, nativeH
	}
}

func (r *Reader) setGeometry(width, height int) {
	r.width, r.height = width, height
	r.pool = bufpool.New(height, width, r.opts.PoolSize, r.opts.PoolSize)
}

// QueryStreams returns the number of video streams in the container.
func (r *Reader) QueryStreams() int {
	n := 0
	for _, s := range r.streams {
		if s.Video {
			n++
		}
	}
	return n
}

// Streams returns all streams of the container.
func (r *Reader) Streams() []ports.StreamInfo {
	out := make([]ports.StreamInfo, len(r.streams))
	copy(out, r.streams)
	return out
}

// StreamInfo returns the selected stream.
func (r *Reader) StreamInfo() ports.StreamInfo {
	return r.stream
}

// FrameShape returns the (height, width) of delivered frames, or zeros while
// the native size is not yet known.
func (r *Reader) FrameShape() (height, width int) {
	return r.height, r.width
}

// GetFrameCount returns the number of frames in the stream. The first call
// builds the frame index.
func (r *Reader) GetFrameCount() (int64, error) {
	if r.state == StateClosed {
		return 0, ErrClosed
	}
	if err := r.ensureIndex(); err != nil {
		return 0, err
	}
	return r.ix.FrameCount(), nil
}

// GetCurrentPosition returns the position of the frame the next read returns.
func (r *Reader) GetCurrentPosition() int64 {
	return r.current
}

// GetKeyIndices returns the keyframe positions in ascending order.
func (r *Reader) GetKeyIndices() ([]int64, error) {
	if r.state == StateClosed {
		return nil, ErrClosed
	}
	if err := r.ensureIndex(); err != nil {
		return nil, err
	}
	return r.ix.KeyIndices(), nil
}

// GetFramePTS returns the presentation timestamp of every frame.
func (r *Reader) GetFramePTS() ([]int64, error) {
	if r.state == StateClosed {
		return nil, ErrClosed
	}
	if err := r.ensureIndex(); err != nil {
		return nil, err
	}
	return r.ix.PTS(), nil
}

// GetFrameTimestamps returns the timing of the given positions.
func (r *Reader) GetFrameTimestamps(positions []int64) ([]index.FrameTimestamp, error) {
	if r.state == StateClosed {
		return nil, ErrClosed
	}
	if err := r.ensureIndex(); err != nil {
		return nil, err
	}
	return r.ix.FramesToTimestamps(positions)
}

// GetAverageFPS returns the declared average frame rate, or one derived
// from the index when the container declares none.
func (r *Reader) GetAverageFPS() float64 {
	if fps := r.stream.AvgFrameRate.Float64(); fps > 0 {
		return fps
	}
	if r.state == StateClosed || r.ensureIndex() != nil {
		return 0
	}
	if d := r.ix.Duration(); d > 0 {
		return float64(r.ix.FrameCount()) / d
	}
	return 0
}

// GetRotation returns the declared display rotation in degrees.
func (r *Reader) GetRotation() float64 {
	return r.stream.Rotation
}

// IndexSnapshot returns read-only access to the frame index, building it if
// needed.
func (r *Reader) IndexSnapshot() (IndexSnapshot, error) {
	if r.state == StateClosed {
		return nil, ErrClosed
	}
	if err := r.ensureIndex(); err != nil {
		return nil, err
	}
	return r.ix, nil
}

// NextFrame returns the frame at the current position and advances by one.
// The returned buffer comes from the reader's pool; pass it to Release when
// done. At the end of the stream it returns ErrEndOfStream.
func (r *Reader) NextFrame(ctx context.Context) (*ndarray.NDArray, error) {
	if r.state == StateClosed {
		return nil, ErrClosed
	}
	r.op = nil
	if err := r.ensureGeometry(ctx); err != nil {
		return nil, err
	}

	buf := r.pool.Get()
	if err := r.deliver(ctx, buf.Data); err != nil {
		r.pool.Put(buf)
		return nil, err
	}
	r.state = StateStreaming
	return buf, nil
}

// Release returns a buffer obtained from NextFrame to the pool.
func (r *Reader) Release(buf *ndarray.NDArray) {
	if r.pool != nil {
		r.pool.Put(buf)
	}
}

// Close stops decoding and releases the engine and pooled buffers. It is
// safe to call more than once.
func (r *Reader) Close() error {
	if r.state == StateClosed {
		return nil
	}
	if r.pipe != nil {
		r.pipe.Stop()
		r.pipe = nil
	}
	if r.pool != nil {
		r.pool.Close()
	}
	r.pending = nil
	r.cached = nil
	r.state = StateClosed
	r.logger.Debug("Reader closed")
	return r.engine.Close()
}

func (r *Reader) ensureIndex() error {
	if r.ix != nil {
		return nil
	}

	start := time.Now()
	cursor, err := r.engine.ScanPackets()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrIndex, err)
	}
	defer cursor.Close()

	ix, err := index.Build(cursor, r.stream.TimeBase, r.stream.AvgFrameRate.Float64())
	if err != nil {
		r.logger.Error("Failed to index stream: %s", err)
		return err
	}
	r.ix = ix

	keys := len(ix.KeyIndices())
	r.metrics.IndexBuilt(int(ix.FrameCount()), keys)
	r.logger.Info("Indexed %d frames, %d keyframes in %d ms", ix.FrameCount(), keys, time.Since(start).Milliseconds())
	if ix.Degraded() {
		r.logger.Warn("Stream has duplicate timestamps, index is best effort")
	}
	return nil
}

func (r *Reader) ensurePipeline() {
	if r.pipe != nil {
		return
	}
	r.pipe = pipeline.NewDecode(r.engine, r.opts.QueueSize)
	r.pipe.Start(context.Background())
}

// ensureGeometry learns the output size from the first decoded frame when
// neither the options nor the container declare it.
func (r *Reader) ensureGeometry(ctx context.Context) error {
	if r.width > 0 {
		return nil
	}
	pos, fr, err := r.nextDecoded(ctx)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEndOfStream
		}
		return r.decodeError(ctx, err)
	}
	r.pending = &decoded{pos: pos, frame: fr}
	if fr.Image == nil {
		return fmt.Errorf("%w: cannot determine frame size: %v", ErrDecode, fr.Err)
	}
	b := fr.Image.Bounds()
	r.setGeometry(r.outputSize(b.Dx(), b.Dy()))
	return nil
}

// nextDecoded returns the next frame from the pipeline and its position.
func (r *Reader) nextDecoded(ctx context.Context) (int64, ports.DecodedFrame, error) {
	if d := r.pending; d != nil {
		r.pending = nil
		return d.pos, d.frame, nil
	}

	r.ensurePipeline()
	fr, err := r.pipe.Pop(ctx)
	if err != nil {
		return 0, fr, err
	}

	pos := r.current
	if r.ix != nil {
		if p, ok := r.ix.ResolvePTS(fr.PTS, r.current); ok {
			pos = p
		} else {
			r.logger.Debug("Frame with pts %d is not in the index, assuming frame %d", fr.PTS, pos)
		}
	}
	return pos, fr, nil
}

// step consumes the frame at the current position and advances by one.
// A frame that could not be decoded yields a nil image and a non-nil cause;
// err is reserved for conditions that end the read.
func (r *Reader) step(ctx context.Context) (img image.Image, pos int64, cause error, err error) {
	for {
		if r.ix != nil && r.current >= r.ix.FrameCount() {
			r.state = StateEndOfStream
			return nil, 0, nil, ErrEndOfStream
		}

		p, fr, perr := r.nextDecoded(ctx)
		if errors.Is(perr, io.EOF) {
			if r.ix != nil && r.current < r.ix.FrameCount() {
				pos = r.current
				r.current++
				return nil, pos, fmt.Errorf("%w: frame %d missing at end of stream", ports.ErrCorruptFrame, pos), nil
			}
			r.state = StateEndOfStream
			return nil, 0, nil, ErrEndOfStream
		}
		if perr != nil {
			return nil, 0, nil, r.decodeError(ctx, perr)
		}

		if r.landing {
			r.landing = false
			if p > r.current {
				r.current = p
			}
		}

		switch {
		case p < r.current:
			r.metrics.FrameDiscarded()
			continue
		case p > r.current:
			r.pending = &decoded{pos: p, frame: fr}
			pos = r.current
			r.current++
			return nil, pos, fmt.Errorf("%w: frame %d was skipped by the decoder", ports.ErrCorruptFrame, pos), nil
		}

		r.current++
		if fr.Err != nil {
			return nil, p, fr.Err, nil
		}
		return fr.Image, p, nil, nil
	}
}

// deliver writes the frame at the current position into dst and advances.
func (r *Reader) deliver(ctx context.Context, dst []uint8) error {
	img, pos, cause, err := r.step(ctx)
	if err != nil {
		return err
	}
	r.metrics.FrameDecoded()
	if cause != nil {
		return r.fetchCachedFrame(dst, pos, cause)
	}
	if err := r.materialize(dst, img); err != nil {
		return fmt.Errorf("frame %d: %w", pos, err)
	}
	r.cacheFrame(dst)
	return nil
}

// materialize converts img to the output geometry with the augmentation
// planned for the current call.
func (r *Reader) materialize(dst []uint8, img image.Image) error {
	b := img.Bounds()
	if r.op == nil {
		op := r.aug.plan(b.Dx(), b.Dy(), r.width, r.height)
		r.op = &op
	}
	if isIdentity(*r.op, b.Dx(), b.Dy()) {
		return ndarray.WriteImage(dst, img)
	}
	out, err := r.transformer.Apply(img, *r.op)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	return ndarray.WriteImage(dst, out)
}

func (r *Reader) decodeError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(err, pipeline.ErrStopped) {
		return ErrClosed
	}
	return fmt.Errorf("%w: %v", ErrDecode, err)
}

type nopMetrics struct{}

func (nopMetrics) FrameDecoded()                  {}
func (nopMetrics) FrameDiscarded()                {}
func (nopMetrics) FrameSubstituted()              {}
func (nopMetrics) Seek(bool)                      {}
func (nopMetrics) BatchServed(int, time.Duration) {}
func (nopMetrics) IndexBuilt(int, int)            {}
