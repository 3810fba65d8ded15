package reader

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/user/vidreader/pkg/ndarray"
)

// batchSlot pairs a requested position with its slot in the output.
type batchSlot struct {
	pos  int64
	slot int
}

// GetBatch decodes the frames at indices into a (len(indices), H, W, 3)
// tensor whose slot i holds frame indices[i]. Indices may be unordered and
// repeated. If out is nil a new tensor is allocated; otherwise out must have
// exactly that shape.
//
// All indices are validated before any decoding. On error the content of
// out is undefined.
func (r *Reader) GetBatch(ctx context.Context, indices []int64, out *ndarray.NDArray) (*ndarray.NDArray, error) {
	if r.state == StateClosed {
		return nil, ErrClosed
	}
	if err := r.ensureIndex(); err != nil {
		return nil, err
	}
	count := r.ix.FrameCount()
	for i, pos := range indices {
		if pos < 0 || pos >= count {
			return nil, fmt.Errorf("%w: index %d at slot %d not in [0, %d)", ErrOutOfRange, pos, i, count)
		}
	}

	start := time.Now()
	r.op = nil
	if len(indices) > 0 {
		if err := r.ensureGeometry(ctx); err != nil {
			return nil, err
		}
	}

	n := len(indices)
	if out == nil {
		out = ndarray.NewBatch(n, r.height, r.width)
	} else if !out.SameShape(n, r.height, r.width, ndarray.Channels) {
		return nil, fmt.Errorf("%w: output %v, want %v", ErrShapeMismatch, out.Shape, []int{n, r.height, r.width, ndarray.Channels})
	}

	order := make([]batchSlot, n)
	for i, pos := range indices {
		order[i] = batchSlot{pos: pos, slot: i}
	}
	sort.SliceStable(order, func(i, j int) bool {
		return order[i].pos < order[j].pos
	})

	seeks := 0
	for i := 0; i < n; {
		target := order[i].pos
		seeked, err := r.reach(ctx, target)
		if err != nil {
			return nil, err
		}
		if seeked {
			seeks++
		}

		first := out.Slot(order[i].slot)
		if err := r.deliver(ctx, first); err != nil {
			return nil, err
		}
		j := i + 1
		for ; j < n && order[j].pos == target; j++ {
			copy(out.Slot(order[j].slot), first)
		}
		i = j
	}

	elapsed := time.Since(start)
	r.metrics.BatchServed(n, elapsed)
	r.logger.Debug("Batch of %d frames served with %d seeks in %d ms", n, seeks, elapsed.Milliseconds())
	if n > 0 {
		r.state = StateStreaming
	}
	return out, nil
}

// reach positions the reader so the next read returns target, decoding
// forward when that is cheaper than seeking. It reports whether it seeked.
func (r *Reader) reach(ctx context.Context, target int64) (bool, error) {
	if r.sequential(target) {
		return false, r.advanceTo(ctx, target)
	}
	return true, r.SeekAccurate(ctx, target)
}

// sequential reports whether target is reachable by decoding forward: it is
// ahead of the current position and either no keyframe lies in between or
// the gap is within MaxSkipGap.
func (r *Reader) sequential(target int64) bool {
	if r.landing || r.current > target {
		return false
	}
	if r.ix.LocateKeyframe(target) <= r.current {
		return true
	}
	return target-r.current <= r.opts.MaxSkipGap
}
