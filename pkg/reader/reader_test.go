package reader

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vidreader/pkg/mocks"
	"github.com/user/vidreader/pkg/ndarray"
	"github.com/user/vidreader/pkg/ports"
)

func openReader(t *testing.T, eng *mocks.Engine, mutate func(*Options)) *Reader {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	r, err := New(eng, ports.Source{Path: "test.mp4"}, opts)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func nextIndex(t *testing.T, r *Reader) int {
	t.Helper()
	buf, err := r.NextFrame(context.Background())
	require.NoError(t, err)
	defer r.Release(buf)
	return mocks.FrameIndex(buf.Data)
}

func TestNew_SelectsFirstVideoStream(t *testing.T) {
	eng := mocks.NewEngine(10, 5)
	r := openReader(t, eng, nil)

	assert.Equal(t, 1, eng.Selected)
	assert.Equal(t, 1, r.QueryStreams())
	assert.Equal(t, StateStreamSelected, r.State())
	h, w := r.FrameShape()
	assert.Equal(t, 2, h)
	assert.Equal(t, 4, w)
	assert.Equal(t, ports.IOFile, eng.OpenCalls[0].IOType)
}

func TestNew_OpenFailureClosesEngine(t *testing.T) {
	eng := mocks.NewEngine(10, 5)
	eng.OpenErr = errors.New("no such file")

	_, err := New(eng, ports.Source{Path: "missing.mp4"}, DefaultOptions())
	require.Error(t, err)
	assert.True(t, eng.IsClosed())
}

func TestNew_InMemorySource(t *testing.T) {
	eng := mocks.NewEngine(10, 5)
	r, err := New(eng, ports.Source{Data: []byte{1, 2, 3}}, DefaultOptions())
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, ports.IOMemory, eng.OpenCalls[0].IOType)

	opts := DefaultOptions()
	opts.IOType = ports.IOMemory
	_, err = New(mocks.NewEngine(10, 5), ports.Source{Path: "x.mp4"}, opts)
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestNew_InvalidOptions(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Options)
		want   error
	}{
		{"gpu device", func(o *Options) { o.Device = "gpu:0" }, ErrInvalidOption},
		{"bad fault_tol", func(o *Options) { o.FaultTol = "many" }, ErrInvalidOption},
		{"fault_tol below -1", func(o *Options) { o.FaultTol = "-2" }, ErrInvalidOption},
		{"two crop modes", func(o *Options) {
			o.Augment.CenterCrop = true
			o.Augment.FixedCrop.Enabled = true
		}, ErrConflictingAugmentation},
		{"flip probability", func(o *Options) { o.Augment.HFlipProb = 1.5 }, ErrInvalidOption},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(&opts)
			_, err := New(mocks.NewEngine(4, 2), ports.Source{Path: "x.mp4"}, opts)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSetVideoStream(t *testing.T) {
	eng := mocks.NewEngine(10, 5)
	r := openReader(t, eng, nil)

	assert.ErrorIs(t, r.SetVideoStream(0), ErrNoSuchStream, "audio stream")
	assert.ErrorIs(t, r.SetVideoStream(7), ErrNoSuchStream)
	require.NoError(t, r.SetVideoStream(1))
	require.NoError(t, r.SetVideoStream(-1))
}

func TestSetVideoStream_AfterReading(t *testing.T) {
	eng := mocks.NewEngine(10, 5)
	r := openReader(t, eng, nil)

	for i := 0; i < 3; i++ {
		nextIndex(t, r)
	}
	require.NoError(t, r.SetVideoStream(-1))
	assert.Equal(t, StateStreamSelected, r.State())
	assert.Equal(t, int64(0), r.GetCurrentPosition())

	for i := 0; i < 10; i++ {
		assert.Equal(t, i, nextIndex(t, r))
	}
	assert.Empty(t, r.FailedPositions())
}

// dupEngine has frames 3 and 4 sharing one timestamp in both the packet
// table and the decoder output.
func dupEngine() *mocks.Engine {
	eng := mocks.NewEngine(10, 5)
	eng.Timestamps = []int64{0, 10, 20, 30, 30, 50, 60, 70, 80, 90}
	return eng
}

func TestNextFrame_DuplicateTimestamps(t *testing.T) {
	r := openReader(t, dupEngine(), nil)

	snap, err := r.IndexSnapshot()
	require.NoError(t, err)
	require.True(t, snap.Degraded())

	for i := 0; i < 10; i++ {
		assert.Equal(t, i, nextIndex(t, r))
	}
	assert.Empty(t, r.FailedPositions())
}

func TestGetBatch_DuplicateTimestamps(t *testing.T) {
	r := openReader(t, dupEngine(), nil)

	out, err := r.GetBatch(context.Background(), []int64{2, 3, 4, 5}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4, 5}, slotIndices(out))

	out, err = r.GetBatch(context.Background(), []int64{4, 3}, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{4, 3}, slotIndices(out))
	assert.Empty(t, r.FailedPositions())
}

func TestSeekAccurate_DuplicateTimestamps(t *testing.T) {
	r := openReader(t, dupEngine(), nil)
	ctx := context.Background()

	for _, pos := range []int64{4, 3, 6} {
		require.NoError(t, r.SeekAccurate(ctx, pos))
		assert.Equal(t, int(pos), nextIndex(t, r))
	}
}

func TestNextFrame_Sequential(t *testing.T) {
	eng := mocks.NewEngine(5, 5)
	r := openReader(t, eng, nil)

	for i := 0; i < 5; i++ {
		assert.Equal(t, i, nextIndex(t, r))
		assert.Equal(t, int64(i+1), r.GetCurrentPosition())
	}
	assert.Equal(t, StateStreaming, r.State())

	_, err := r.NextFrame(context.Background())
	assert.ErrorIs(t, err, ErrEndOfStream)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, StateEndOfStream, r.State())

	// Sequential playback from the start does not need the index.
	assert.Equal(t, 0, eng.Scans())
}

func TestNextFrame_BufferShape(t *testing.T) {
	r := openReader(t, mocks.NewEngine(3, 3), nil)

	buf, err := r.NextFrame(context.Background())
	require.NoError(t, err)
	assert.True(t, buf.SameShape(2, 4, 3))
	assert.Equal(t, uint8(7), buf.Data[2])
}

func TestNextFrame_ResizedOutput(t *testing.T) {
	r := openReader(t, mocks.NewEngine(3, 3), func(o *Options) {
		o.Width, o.Height = 8, 6
	})

	buf, err := r.NextFrame(context.Background())
	require.NoError(t, err)
	assert.True(t, buf.SameShape(6, 8, 3))
	assert.Equal(t, 0, mocks.FrameIndex(buf.Data))
	assert.InDelta(t, 7, int(buf.Data[len(buf.Data)-1]), 1)
}

func TestNextFrame_OneSidedSize(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"width only", 8, -1, 8, 4},
		{"height only", 0, 6, 12, 6},
		{"native", 0, 0, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := openReader(t, mocks.NewEngine(3, 3), func(o *Options) {
				o.Width, o.Height = tt.width, tt.height
			})
			h, w := r.FrameShape()
			assert.Equal(t, tt.wantH, h)
			assert.Equal(t, tt.wantW, w)

			buf, err := r.NextFrame(context.Background())
			require.NoError(t, err)
			defer r.Release(buf)
			assert.True(t, buf.SameShape(tt.wantH, tt.wantW, 3))
			assert.Equal(t, 0, mocks.FrameIndex(buf.Data))
		})
	}
}

func TestEndOfStream_SeekResumes(t *testing.T) {
	r := openReader(t, mocks.NewEngine(3, 1), nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		nextIndex(t, r)
	}
	_, err := r.NextFrame(ctx)
	require.ErrorIs(t, err, ErrEndOfStream)

	require.NoError(t, r.Seek(ctx, 1))
	assert.Equal(t, StateStreaming, r.State())
	assert.Equal(t, 1, nextIndex(t, r))
}

func TestSeekAccurate_EveryPosition(t *testing.T) {
	eng := mocks.NewEngine(30, 7)
	r := openReader(t, eng, nil)
	ctx := context.Background()

	pts, err := r.GetFramePTS()
	require.NoError(t, err)

	for pos := int64(29); pos >= 0; pos-- {
		require.NoError(t, r.SeekAccurate(ctx, pos))
		assert.Equal(t, pos, r.GetCurrentPosition())

		buf, err := r.NextFrame(ctx)
		require.NoError(t, err)
		got := mocks.FrameIndex(buf.Data)
		r.Release(buf)
		assert.Equal(t, pts[pos], int64(got*mocks.PTSStep), "frame at position %d", pos)
	}
}

func TestSeek_LandsOnKeyframe(t *testing.T) {
	eng := mocks.NewEngine(30, 10)
	r := openReader(t, eng, nil)
	ctx := context.Background()

	keys, err := r.GetKeyIndices()
	require.NoError(t, err)

	for _, pos := range []int64{0, 5, 10, 19, 29} {
		require.NoError(t, r.Seek(ctx, pos))
		cur := r.GetCurrentPosition()
		assert.LessOrEqual(t, cur, pos)
		assert.Contains(t, keys, cur)
		assert.Equal(t, int(cur), nextIndex(t, r))
	}
}

func TestSeek_OutOfRange(t *testing.T) {
	r := openReader(t, mocks.NewEngine(10, 5), nil)
	ctx := context.Background()

	assert.ErrorIs(t, r.Seek(ctx, 10), ErrOutOfRange)
	assert.ErrorIs(t, r.Seek(ctx, -1), ErrOutOfRange)
	assert.ErrorIs(t, r.SeekAccurate(ctx, 99), ErrOutOfRange)
}

func TestSeek_EngineRejects(t *testing.T) {
	eng := mocks.NewEngine(10, 5)
	eng.SeekErr = mocks.ErrMockSeek
	r := openReader(t, eng, nil)

	err := r.Seek(context.Background(), 7)
	assert.ErrorIs(t, err, ErrSeekFailure)
}

func TestSeek_FlushesStaleFrames(t *testing.T) {
	eng := mocks.NewEngine(40, 10)
	r := openReader(t, eng, func(o *Options) { o.QueueSize = 8 })
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		nextIndex(t, r)
	}
	require.NoError(t, r.SeekAccurate(ctx, 25))
	assert.Equal(t, 25, nextIndex(t, r))
	assert.Equal(t, 26, nextIndex(t, r))
}

func TestSeekAccurate_RetriesWhenEngineOvershoots(t *testing.T) {
	eng := mocks.NewEngine(30, 10)
	eng.SeekOvershoot = 3
	eng.SeekOvershootOnce = true
	r := openReader(t, eng, nil)
	ctx := context.Background()

	require.NoError(t, r.SeekAccurate(ctx, 12))
	assert.Equal(t, int64(12), r.GetCurrentPosition())
	assert.Equal(t, 12, nextIndex(t, r))

	// First attempt at keyframe 10, retry at keyframe 0.
	assert.Equal(t, []int64{100, 0}, eng.Seeks())
}

func TestSeekAccurate_FailsWhenEveryAttemptOvershoots(t *testing.T) {
	eng := mocks.NewEngine(30, 10)
	eng.SeekOvershoot = 3
	r := openReader(t, eng, nil)

	err := r.SeekAccurate(context.Background(), 1)
	assert.ErrorIs(t, err, ErrSeekFailure)
}

func TestSeek_AcceptsLateLanding(t *testing.T) {
	eng := mocks.NewEngine(30, 10)
	eng.SeekOvershoot = 2
	r := openReader(t, eng, nil)

	require.NoError(t, r.Seek(context.Background(), 15))
	assert.Equal(t, int64(10), r.GetCurrentPosition())
	assert.Equal(t, 12, nextIndex(t, r))
	assert.Equal(t, int64(13), r.GetCurrentPosition())
}

func TestSkipFrames(t *testing.T) {
	eng := mocks.NewEngine(10, 10)
	r := openReader(t, eng, nil)
	ctx := context.Background()

	require.NoError(t, r.SkipFrames(ctx, 3))
	assert.Equal(t, int64(3), r.GetCurrentPosition())
	assert.Equal(t, 3, nextIndex(t, r))
	assert.Empty(t, eng.Seeks())

	require.NoError(t, r.SkipFrames(ctx, 100))
	_, err := r.NextFrame(ctx)
	assert.ErrorIs(t, err, ErrEndOfStream)
}

func TestGetKeyIndices_IndexBuiltOnce(t *testing.T) {
	eng := mocks.NewEngine(25, 10)
	r := openReader(t, eng, nil)

	first, err := r.GetKeyIndices()
	require.NoError(t, err)
	ptsFirst, err := r.GetFramePTS()
	require.NoError(t, err)

	second, err := r.GetKeyIndices()
	require.NoError(t, err)
	ptsSecond, err := r.GetFramePTS()
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 10, 20}, first)
	assert.Equal(t, first, second)
	assert.Equal(t, ptsFirst, ptsSecond)
	assert.Equal(t, 1, eng.Scans())

	for i := 1; i < len(first); i++ {
		assert.Greater(t, first[i], first[i-1])
	}
}

func TestGetKeyIndices_FirstKeyframeLate(t *testing.T) {
	eng := mocks.NewEngine(10, 100)
	eng.Frames[0].Keyframe = false
	eng.Frames[2].Keyframe = true
	eng.Frames[6].Keyframe = true
	r := openReader(t, eng, nil)

	keys, err := r.GetKeyIndices()
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 6}, keys)

	kf, err := r.LocateKeyframe(1)
	require.NoError(t, err)
	assert.Equal(t, int64(0), kf)
}

func TestIndex_EmptyStream(t *testing.T) {
	eng := mocks.NewEngine(0, 1)
	r := openReader(t, eng, nil)

	_, err := r.GetFrameCount()
	assert.ErrorIs(t, err, ErrIndex)
	_, err = r.GetBatch(context.Background(), []int64{0}, nil)
	assert.ErrorIs(t, err, ErrIndex)
}

func TestMetadata(t *testing.T) {
	eng := mocks.NewEngine(25, 5)
	eng.StreamList[1].Rotation = 90
	r := openReader(t, eng, nil)

	n, err := r.GetFrameCount()
	require.NoError(t, err)
	assert.Equal(t, int64(25), n)
	assert.InDelta(t, 25.0, r.GetAverageFPS(), 1e-9)
	assert.InDelta(t, 90.0, r.GetRotation(), 1e-9)

	ts, err := r.GetFrameTimestamps([]int64{0, 5})
	require.NoError(t, err)
	assert.InDelta(t, 0.2, ts[1].Start, 1e-9)
	assert.InDelta(t, 0.24, ts[1].Stop, 1e-9)

	snap, err := r.IndexSnapshot()
	require.NoError(t, err)
	assert.Equal(t, int64(25), snap.FrameCount())
	assert.Equal(t, int64(20), snap.LocateKeyframe(24))
}

func TestGetAverageFPS_FromIndex(t *testing.T) {
	eng := mocks.NewEngine(50, 10)
	eng.StreamList[1].AvgFrameRate = ports.Rational{}
	r := openReader(t, eng, nil)

	assert.InDelta(t, 25.0, r.GetAverageFPS(), 1e-9)
}

func TestClose(t *testing.T) {
	eng := mocks.NewEngine(10, 5)
	r := openReader(t, eng, nil)
	nextIndex(t, r)

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.True(t, eng.IsClosed())
	assert.Equal(t, StateClosed, r.State())

	_, err := r.NextFrame(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = r.GetBatch(context.Background(), []int64{0}, nil)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, r.Seek(context.Background(), 0), ErrClosed)
}

func TestNextFrame_ContextCancelled(t *testing.T) {
	eng := mocks.NewEngine(10, 5)
	block := make(chan struct{})
	eng.DecodeFn = func(pos int) (ports.DecodedFrame, error) {
		<-block
		return ports.DecodedFrame{}, io.EOF
	}
	r := openReader(t, eng, nil)
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.NextFrame(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRelease_ReusesBuffers(t *testing.T) {
	r := openReader(t, mocks.NewEngine(4, 4), nil)

	buf, err := r.NextFrame(context.Background())
	require.NoError(t, err)
	r.Release(buf)

	again, err := r.NextFrame(context.Background())
	require.NoError(t, err)
	assert.Same(t, buf, again)
	assert.Equal(t, 1, mocks.FrameIndex(again.Data))
}

func TestOptionsBuilder(t *testing.T) {
	opts := NewOptionsBuilder().
		WithSize(32, 24).
		WithFaultTol("3").
		WithCenterCrop().
		WithFlip(0.5, 0).
		WithMaxSkipGap(8).
		Build()

	assert.Equal(t, 32, opts.Width)
	assert.Equal(t, 24, opts.Height)
	assert.Equal(t, "3", opts.FaultTol)
	assert.True(t, opts.Augment.CenterCrop)
	assert.Equal(t, int64(8), opts.MaxSkipGap)
	require.NoError(t, opts.Validate())

	bad := NewOptionsBuilder().WithCenterCrop().WithFixedCrop(1, 1).Build()
	assert.ErrorIs(t, bad.Validate(), ErrConflictingAugmentation)
}

func TestEmptyBatchShape(t *testing.T) {
	r := openReader(t, mocks.NewEngine(4, 4), nil)

	out, err := r.GetBatch(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.True(t, out.SameShape(0, 2, 4, ndarray.Channels))
}
