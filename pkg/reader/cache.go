package reader

import (
	"fmt"
	"sort"

	"github.com/user/vidreader/pkg/ndarray"
)

// faultState tracks substituted frames.
type faultState struct {
	tol      faultTolerance
	resolved bool
	limit    int64 // -1 = disabled
	failed   map[int64]struct{}
	warned   bool
}

func newFaultState(tol faultTolerance) faultState {
	fs := faultState{tol: tol, failed: make(map[int64]struct{})}
	if tol.ratio == 0 {
		fs.limit = tol.count
		fs.resolved = true
	}
	return fs
}

func (f *faultState) enabled() bool {
	return f.tol.ratio > 0 || f.tol.count >= 0
}

// cacheFrame keeps a copy of the last good output frame.
func (r *Reader) cacheFrame(frame []uint8) {
	if r.cached == nil || len(r.cached.Data) != len(frame) {
		r.cached = ndarray.NewFrame(r.height, r.width)
	}
	copy(r.cached.Data, frame)
	r.hasCached = true
}

// fetchCachedFrame fills dst with the cached frame in place of position pos,
// which failed with cause. It fails when substitution is disabled, nothing
// has been cached yet, or the tolerance is used up.
func (r *Reader) fetchCachedFrame(dst []uint8, pos int64, cause error) error {
	if !r.fault.enabled() {
		return fmt.Errorf("%w: frame %d: %v", ErrDecode, pos, cause)
	}
	if !r.fault.resolved {
		if err := r.ensureIndex(); err != nil {
			return err
		}
		r.fault.limit = r.fault.tol.threshold(r.ix.FrameCount())
		r.fault.resolved = true
	}
	if !r.hasCached {
		return fmt.Errorf("%w: frame %d has no earlier frame to substitute: %v", ErrDecode, pos, cause)
	}

	r.fault.failed[pos] = struct{}{}
	if n := int64(len(r.fault.failed)); n > r.fault.limit {
		r.logger.Error("Fault tolerance exceeded: %d substituted frames, limit %d", n, r.fault.limit)
		return fmt.Errorf("%w: %d frames failed, limit %d", ErrFaultToleranceExceeded, n, r.fault.limit)
	}
	if !r.fault.warned {
		r.fault.warned = true
		r.logger.Warn("Frame %d could not be decoded, substituting the previous frame: %s", pos, cause)
	}

	copy(dst, r.cached.Data)
	r.metrics.FrameSubstituted()
	return nil
}

// FailedPositions returns the sorted positions that were served from the
// frame cache.
func (r *Reader) FailedPositions() []int64 {
	out := make([]int64, 0, len(r.fault.failed))
	for pos := range r.fault.failed {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
