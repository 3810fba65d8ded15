// Package bufpool keeps reusable frame tensors so steady-state reads do not
// allocate.
package bufpool

import (
	"sync"

	"github.com/user/vidreader/pkg/ndarray"
)

// DefaultSoftCap is the number of idle buffers retained when no cap is given.
const DefaultSoftCap = 8

// Stats reports pool activity.
type Stats struct {
	Idle      int // Buffers waiting for reuse
	Allocated int // Buffers allocated over the pool's lifetime
	Reused    int // Get calls served from idle buffers
}

// Pool hands out (height, width, 3) frame buffers.
//
// A buffer returned by Get belongs to the caller until it is passed to Put.
// Content is not cleared between uses.
type Pool struct {
	mu      sync.Mutex
	height  int
	width   int
	softCap int
	idle    []*ndarray.NDArray
	closed  bool
	stats   Stats
}

// New creates a pool for frames of the given geometry and preallocates
// prealloc buffers. softCap bounds the number of idle buffers kept; Get
// still allocates past it.
func New(height, width, prealloc, softCap int) *Pool {
	if softCap <= 0 {
		softCap = DefaultSoftCap
	}
	if prealloc > softCap {
		prealloc = softCap
	}
	p := &Pool{
		height:  height,
		width:   width,
		softCap: softCap,
		idle:    make([]*ndarray.NDArray, 0, softCap),
	}
	for i := 0; i < prealloc; i++ {
		p.idle = append(p.idle, ndarray.NewFrame(height, width))
		p.stats.Allocated++
	}
	return p
}

// Shape returns the (height, width, channels) shape of pooled buffers.
func (p *Pool) Shape() []int {
	return []int{p.height, p.width, ndarray.Channels}
}

// Get borrows a buffer.
func (p *Pool) Get() *ndarray.NDArray {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.idle); n > 0 {
		buf := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.stats.Reused++
		return buf
	}
	p.stats.Allocated++
	return ndarray.NewFrame(p.height, p.width)
}

// Put returns a buffer for reuse. Buffers of a foreign shape, buffers beyond
// the soft cap, and buffers returned after Close are dropped.
func (p *Pool) Put(buf *ndarray.NDArray) {
	if buf == nil || !buf.SameShape(p.height, p.width, ndarray.Channels) {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.idle) >= p.softCap {
		return
	}
	p.idle = append(p.idle, buf)
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	s.Idle = len(p.idle)
	return s
}

// Close drops all idle buffers. The pool keeps serving Get afterwards but
// no longer retains returned buffers.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.idle = nil
	p.closed = true
}
