package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/user/vidreader/pkg/ports"
)

// DefaultQueueSize is the number of decoded frames buffered ahead of the consumer.
const DefaultQueueSize = 4

// ErrStopped is returned by Pop and Seek after the pipeline has been stopped.
var ErrStopped = errors.New("pipeline: stopped")

// Decoder is the part of a codec engine the decode pipeline drives.
type Decoder interface {
	DecodeFrame() (ports.DecodedFrame, error)
	SeekTimestamp(pts int64) error
}

// State is the lifecycle state of a decode pipeline.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateFlushing
	StateStopped
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFlushing:
		return "flushing"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

type result struct {
	frame ports.DecodedFrame
	err   error
	epoch uint64
}

type seekCommand struct {
	pts   int64
	epoch uint64
	ack   chan error
}

// Decode runs an engine on its own goroutine and hands decoded frames to a
// single consumer through a bounded queue.
//
// Seek is a flush barrier: results produced before the seek are never
// returned by a later Pop. Pop and Seek must be called from one goroutine.
type Decode struct {
	src       Decoder
	queueSize int

	out  chan result
	ctrl chan seekCommand
	done chan struct{}

	state  atomic.Int32
	cancel context.CancelFunc
	wg     sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	// Consumer side.
	epoch uint64
	term  error
}

// NewDecode creates a pipeline over src. A queueSize <= 0 uses DefaultQueueSize.
func NewDecode(src Decoder, queueSize int) *Decode {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Decode{
		src:       src,
		queueSize: queueSize,
		out:       make(chan result, queueSize),
		ctrl:      make(chan seekCommand),
		done:      make(chan struct{}),
	}
}

// Start launches the decode goroutine. It is a no-op after the first call.
func (d *Decode) Start(ctx context.Context) {
	d.startOnce.Do(func() {
		ctx, d.cancel = context.WithCancel(ctx)
		d.state.Store(int32(StateRunning))
		d.wg.Add(1)
		go d.run(ctx)
	})
}

// Stop terminates the decode goroutine and waits for it to exit.
// The engine is left untouched; closing it is the caller's job.
func (d *Decode) Stop() {
	d.stopOnce.Do(func() {
		started := true
		d.startOnce.Do(func() { started = false })
		if started {
			d.cancel()
			d.wg.Wait()
		} else {
			close(d.done)
		}
		d.state.Store(int32(StateStopped))
	})
}

// State returns the current lifecycle state.
func (d *Decode) State() State {
	return State(d.state.Load())
}

// QueueSize returns the capacity of the frame queue.
func (d *Decode) QueueSize() int {
	return d.queueSize
}

// Pop returns the next decoded frame. It returns io.EOF at end of stream and
// keeps returning it (or the fatal engine error) until the next Seek.
func (d *Decode) Pop(ctx context.Context) (ports.DecodedFrame, error) {
	if d.term != nil {
		return ports.DecodedFrame{}, d.term
	}
	for {
		select {
		case res := <-d.out:
			if res.epoch != d.epoch {
				continue
			}
			if res.err != nil {
				d.term = res.err
				return ports.DecodedFrame{}, res.err
			}
			return res.frame, nil
		case <-d.done:
			return ports.DecodedFrame{}, ErrStopped
		case <-ctx.Done():
			return ports.DecodedFrame{}, ctx.Err()
		}
	}
}

// Seek flushes queued frames and repositions the engine at the last keyframe
// at or before pts. Frames returned by Pop afterwards come from the new
// position.
func (d *Decode) Seek(ctx context.Context, pts int64) error {
	cmd := seekCommand{pts: pts, epoch: d.epoch + 1, ack: make(chan error, 1)}

	select {
	case d.ctrl <- cmd:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	// The worker owns the new epoch from here on.
	d.epoch = cmd.epoch
	d.term = nil

	select {
	case err := <-cmd.ack:
		return err
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Decode) run(ctx context.Context) {
	defer d.wg.Done()
	defer close(d.done)

	var epoch uint64
	idle := false

	for {
		if idle {
			select {
			case <-ctx.Done():
				return
			case cmd := <-d.ctrl:
				epoch = d.flush(cmd)
				idle = false
			}
			continue
		}

		select {
		case <-ctx.Done():
			return
		case cmd := <-d.ctrl:
			epoch = d.flush(cmd)
			continue
		default:
		}

		frame, err := d.src.DecodeFrame()
		// End of stream and fatal errors park the worker until the next seek.
		idle = err != nil

		select {
		case d.out <- result{frame: frame, err: err, epoch: epoch}:
		case cmd := <-d.ctrl:
			epoch = d.flush(cmd)
			idle = false
		case <-ctx.Done():
			return
		}
	}
}

func (d *Decode) flush(cmd seekCommand) uint64 {
	d.state.Store(int32(StateFlushing))
	for drained := false; !drained; {
		select {
		case <-d.out:
		default:
			drained = true
		}
	}
	err := d.src.SeekTimestamp(cmd.pts)
	d.state.Store(int32(StateRunning))
	cmd.ack <- err
	return cmd.epoch
}
