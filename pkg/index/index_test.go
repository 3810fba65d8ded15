package index

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vidreader/pkg/ports"
)

type sliceCursor struct {
	packets []ports.Packet
	err     error
	pos     int
}

func (c *sliceCursor) Next() (ports.Packet, error) {
	if c.pos >= len(c.packets) {
		if c.err != nil {
			return ports.Packet{}, c.err
		}
		return ports.Packet{}, io.EOF
	}
	p := c.packets[c.pos]
	c.pos++
	return p, nil
}

func (c *sliceCursor) Close() error { return nil }

// gop builds n packets of duration 1 in presentation order with keyframes
// every interval frames.
func gop(n, interval int) []ports.Packet {
	out := make([]ports.Packet, n)
	for i := range out {
		out[i] = ports.Packet{
			PTS:      int64(i),
			DTS:      int64(i),
			Duration: 1,
			Keyframe: i%interval == 0,
		}
	}
	return out
}

var tb25 = ports.Rational{Num: 1, Den: 25}

func TestBuild_Basic(t *testing.T) {
	ix, err := Build(&sliceCursor{packets: gop(30, 10)}, tb25, 25)
	require.NoError(t, err)

	assert.Equal(t, int64(30), ix.FrameCount())
	assert.Equal(t, []int64{0, 10, 20}, ix.KeyIndices())
	assert.False(t, ix.Degraded())

	ts, err := ix.FrameToTimestamp(5)
	require.NoError(t, err)
	assert.Equal(t, int64(5), ts.PTS)
	assert.InDelta(t, 0.2, ts.Start, 1e-9)
	assert.InDelta(t, 0.24, ts.Stop, 1e-9)
}

func TestBuild_EmptyStream(t *testing.T) {
	_, err := Build(&sliceCursor{}, tb25, 25)
	assert.ErrorIs(t, err, ports.ErrIndex)
}

func TestBuild_ReadError(t *testing.T) {
	_, err := Build(&sliceCursor{packets: gop(3, 1), err: errors.New("boom")}, tb25, 25)
	assert.ErrorIs(t, err, ports.ErrIndex)
}

func TestBuild_ReordersToPresentation(t *testing.T) {
	// Decode order I P B B with presentation I B B P.
	packets := []ports.Packet{
		{PTS: 0, DTS: 0, Keyframe: true},
		{PTS: 3, DTS: 1},
		{PTS: 1, DTS: 2},
		{PTS: 2, DTS: 3},
	}
	ix, err := Build(&sliceCursor{packets: packets}, tb25, 25)
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 1, 2, 3}, ix.PTS())
	pos, ok := ix.FrameForPTS(3)
	assert.True(t, ok)
	assert.Equal(t, int64(3), pos)

	// Stop falls back to the next frame's start when no duration is given.
	ts, _ := ix.FrameToTimestamp(1)
	assert.InDelta(t, 2.0/25, ts.Stop, 1e-9)
	// The last frame uses the frame rate.
	ts, _ = ix.FrameToTimestamp(3)
	assert.InDelta(t, 4.0/25, ts.Stop, 1e-9)
}

func TestBuild_MissingPTSFallsBack(t *testing.T) {
	packets := []ports.Packet{
		{PTS: NoPTS, DTS: 0, Duration: 2, Keyframe: true},
		{PTS: NoPTS, DTS: NoPTS, Duration: 2},
		{PTS: NoPTS, DTS: NoPTS, Duration: 2},
	}
	ix, err := Build(&sliceCursor{packets: packets}, tb25, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 2, 4}, ix.PTS())
}

func TestBuild_DuplicateTimestampsDegraded(t *testing.T) {
	packets := []ports.Packet{
		{PTS: 0, Keyframe: true},
		{PTS: 1},
		{PTS: 1},
		{PTS: 2},
	}
	ix, err := Build(&sliceCursor{packets: packets}, tb25, 25)
	require.NoError(t, err)

	assert.True(t, ix.Degraded())
	assert.Equal(t, int64(4), ix.FrameCount())
	pos, ok := ix.FrameForPTS(1)
	assert.True(t, ok)
	assert.Equal(t, int64(1), pos, "first occurrence wins")
}

func TestResolvePTS_SharedTimestamp(t *testing.T) {
	packets := []ports.Packet{
		{PTS: 0, Keyframe: true},
		{PTS: 1},
		{PTS: 1},
		{PTS: 2},
	}
	ix, err := Build(&sliceCursor{packets: packets}, tb25, 25)
	require.NoError(t, err)

	tests := []struct {
		pts, expected int64
		want          int64
	}{
		{pts: 1, expected: 1, want: 1},
		{pts: 1, expected: 2, want: 2},
		{pts: 1, expected: 3, want: 1},
		{pts: 2, expected: 2, want: 3},
		{pts: 0, expected: -1, want: 0},
		{pts: 2, expected: 99, want: 3},
	}
	for _, tt := range tests {
		pos, ok := ix.ResolvePTS(tt.pts, tt.expected)
		assert.True(t, ok)
		assert.Equal(t, tt.want, pos, "pts %d expecting %d", tt.pts, tt.expected)
	}

	_, ok := ix.ResolvePTS(7, 0)
	assert.False(t, ok)
}

func TestBuild_NoKeyframes(t *testing.T) {
	packets := []ports.Packet{{PTS: 0}, {PTS: 1}}
	ix, err := Build(&sliceCursor{packets: packets}, tb25, 25)
	require.NoError(t, err)
	assert.Equal(t, []int64{0}, ix.KeyIndices())
}

func TestLocateKeyframe(t *testing.T) {
	ix, err := Build(&sliceCursor{packets: gop(30, 10)}, tb25, 25)
	require.NoError(t, err)

	tests := []struct {
		pos  int64
		want int64
	}{
		{0, 0},
		{9, 0},
		{10, 10},
		{11, 10},
		{29, 20},
		{1000, 20},
	}
	for _, tt := range tests {
		if got := ix.LocateKeyframe(tt.pos); got != tt.want {
			t.Errorf("LocateKeyframe(%d) = %d, want %d", tt.pos, got, tt.want)
		}
	}
}

func TestLocateKeyframe_FirstKeyframeLate(t *testing.T) {
	packets := gop(6, 100)
	packets[0].Keyframe = false
	packets[3].Keyframe = true
	ix, err := Build(&sliceCursor{packets: packets}, tb25, 25)
	require.NoError(t, err)

	assert.Equal(t, int64(0), ix.LocateKeyframe(2))
	assert.Equal(t, int64(3), ix.LocateKeyframe(5))
}

func TestPreviousKeyframe(t *testing.T) {
	ix, err := Build(&sliceCursor{packets: gop(30, 10)}, tb25, 25)
	require.NoError(t, err)

	assert.Equal(t, int64(10), ix.PreviousKeyframe(20))
	assert.Equal(t, int64(-1), ix.PreviousKeyframe(0))
}

func TestBuild_Idempotent(t *testing.T) {
	a, err := Build(&sliceCursor{packets: gop(12, 4)}, tb25, 25)
	require.NoError(t, err)
	b, err := Build(&sliceCursor{packets: gop(12, 4)}, tb25, 25)
	require.NoError(t, err)

	assert.Equal(t, a.Timestamps(), b.Timestamps())
	assert.Equal(t, a.KeyIndices(), b.KeyIndices())
}

func TestFrameToTimestamp_OutOfRange(t *testing.T) {
	ix, err := Build(&sliceCursor{packets: gop(3, 1)}, tb25, 25)
	require.NoError(t, err)

	_, err = ix.FrameToTimestamp(3)
	assert.ErrorIs(t, err, ports.ErrOutOfRange)
	_, err = ix.FrameToTimestamp(-1)
	assert.ErrorIs(t, err, ports.ErrOutOfRange)
	_, err = ix.FramesToTimestamps([]int64{0, 7})
	assert.ErrorIs(t, err, ports.ErrOutOfRange)
}

func TestKeyIndices_ReturnsCopy(t *testing.T) {
	ix, err := Build(&sliceCursor{packets: gop(10, 5)}, tb25, 25)
	require.NoError(t, err)

	keys := ix.KeyIndices()
	keys[0] = 99
	assert.Equal(t, []int64{0, 5}, ix.KeyIndices())
}
