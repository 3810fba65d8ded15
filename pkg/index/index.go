// Package index builds the per-frame timestamp table and keyframe list of a
// video stream and answers position/timestamp lookups against it.
//
// Logical frame N is the Nth frame in presentation order. The index is built
// by one forward pass over the demuxed packets and is immutable afterwards.
package index

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/user/vidreader/pkg/ports"
)

// NoPTS marks an unknown timestamp.
const NoPTS = ports.NoTimestamp

// FrameTimestamp holds the timing of one decodable frame.
type FrameTimestamp struct {
	PTS   int64   `json:"pts"`   // Presentation timestamp in stream time base units
	DTS   int64   `json:"dts"`   // Decoding timestamp in stream time base units
	Start float64 `json:"start"` // Presentation start in seconds
	Stop  float64 `json:"stop"`  // Presentation end in seconds
}

// Index is the frame timeline, keyframe list and timestamp map of a stream.
type Index struct {
	frames     []FrameTimestamp
	keyframes  []int64
	ptsToFrame map[int64]int64
	degraded   bool
}

// record is one packet as seen during the scan.
type record struct {
	pts      int64
	dts      int64
	duration int64
	key      bool
}

// Build scans cursor once and constructs the index. fps is used for the
// stop time of frames without a known duration; pass 0 if unknown.
//
// Streams whose timestamps are not strictly increasing in presentation order
// still produce an index; Degraded reports it.
func Build(cursor ports.PacketCursor, timeBase ports.Rational, fps float64) (*Index, error) {
	var records []record
	prev := NoPTS
	var prevDur int64

	for {
		pkt, err := cursor.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: read packet %d: %v", ports.ErrIndex, len(records), err)
		}

		pts := pkt.PTS
		if pts == NoPTS {
			pts = pkt.DTS
		}
		if pts == NoPTS && prev != NoPTS {
			pts = prev + prevDur
		}
		if pts == NoPTS {
			pts = 0
		}

		records = append(records, record{
			pts:      pts,
			dts:      pkt.DTS,
			duration: pkt.Duration,
			key:      pkt.Keyframe,
		})
		prev, prevDur = pts, pkt.Duration
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("%w: stream has no decodable frames", ports.ErrIndex)
	}

	return fromRecords(records, timeBase, fps), nil
}

func fromRecords(records []record, timeBase ports.Rational, fps float64) *Index {
	// Presentation order; equal timestamps keep decode order.
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].pts < records[j].pts
	})

	tb := timeBase.Float64()
	ix := &Index{
		frames:     make([]FrameTimestamp, len(records)),
		ptsToFrame: make(map[int64]int64, len(records)),
	}

	for i, r := range records {
		start := float64(r.pts) * tb
		var stop float64
		switch {
		case r.duration > 0:
			stop = float64(r.pts+r.duration) * tb
		case i+1 < len(records) && records[i+1].pts > r.pts:
			stop = float64(records[i+1].pts) * tb
		case fps > 0:
			stop = start + 1/fps
		default:
			stop = start
		}

		ix.frames[i] = FrameTimestamp{PTS: r.pts, DTS: r.dts, Start: start, Stop: stop}

		if _, dup := ix.ptsToFrame[r.pts]; dup {
			ix.degraded = true
		} else {
			ix.ptsToFrame[r.pts] = int64(i)
		}
		if r.key {
			ix.keyframes = append(ix.keyframes, int64(i))
		}
	}

	if len(ix.keyframes) == 0 {
		ix.keyframes = []int64{0}
	}
	return ix
}

// FrameCount returns the number of decodable frames.
func (ix *Index) FrameCount() int64 {
	return int64(len(ix.frames))
}

// Degraded reports whether duplicate timestamps forced a best-effort index.
func (ix *Index) Degraded() bool {
	return ix.degraded
}

// FrameToTimestamp returns the timestamp record of frame pos.
func (ix *Index) FrameToTimestamp(pos int64) (FrameTimestamp, error) {
	if pos < 0 || pos >= int64(len(ix.frames)) {
		return FrameTimestamp{}, fmt.Errorf("%w: %d not in [0, %d)", ports.ErrOutOfRange, pos, len(ix.frames))
	}
	return ix.frames[pos], nil
}

// FramesToTimestamps looks up several positions at once.
func (ix *Index) FramesToTimestamps(positions []int64) ([]FrameTimestamp, error) {
	out := make([]FrameTimestamp, len(positions))
	for i, pos := range positions {
		ts, err := ix.FrameToTimestamp(pos)
		if err != nil {
			return nil, err
		}
		out[i] = ts
	}
	return out, nil
}

// FrameForPTS maps a container timestamp back to a logical position. For a
// timestamp shared by several frames it returns the first of them.
func (ix *Index) FrameForPTS(pts int64) (int64, bool) {
	pos, ok := ix.ptsToFrame[pts]
	return pos, ok
}

// ResolvePTS maps a decoded timestamp to a position, preferring expected
// when frame expected carries pts. Frames sharing a timestamp are thereby
// assigned in decode order.
func (ix *Index) ResolvePTS(pts, expected int64) (int64, bool) {
	if expected >= 0 && expected < int64(len(ix.frames)) && ix.frames[expected].PTS == pts {
		return expected, true
	}
	return ix.FrameForPTS(pts)
}

// LocateKeyframe returns the greatest keyframe position <= pos, or 0 if no
// keyframe precedes pos.
func (ix *Index) LocateKeyframe(pos int64) int64 {
	// First keyframe strictly after pos.
	i := sort.Search(len(ix.keyframes), func(i int) bool {
		return ix.keyframes[i] > pos
	})
	if i == 0 {
		return 0
	}
	return ix.keyframes[i-1]
}

// PreviousKeyframe returns the keyframe before the keyframe kf, or -1 if kf
// is the first one.
func (ix *Index) PreviousKeyframe(kf int64) int64 {
	i := sort.Search(len(ix.keyframes), func(i int) bool {
		return ix.keyframes[i] >= kf
	})
	if i == 0 {
		return -1
	}
	return ix.keyframes[i-1]
}

// KeyIndices returns a copy of the keyframe positions.
func (ix *Index) KeyIndices() []int64 {
	out := make([]int64, len(ix.keyframes))
	copy(out, ix.keyframes)
	return out
}

// PTS returns a copy of the presentation timestamp column.
func (ix *Index) PTS() []int64 {
	out := make([]int64, len(ix.frames))
	for i, f := range ix.frames {
		out[i] = f.PTS
	}
	return out
}

// Timestamps returns a copy of the full timeline.
func (ix *Index) Timestamps() []FrameTimestamp {
	out := make([]FrameTimestamp, len(ix.frames))
	copy(out, ix.frames)
	return out
}

// Duration returns the presentation span of the timeline in seconds.
func (ix *Index) Duration() float64 {
	if len(ix.frames) == 0 {
		return 0
	}
	return ix.frames[len(ix.frames)-1].Stop - ix.frames[0].Start
}
