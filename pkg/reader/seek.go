package reader

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Seek moves to the keyframe at or before pos. The next read returns that
// keyframe rather than pos itself; use SeekAccurate to land exactly.
// If the engine resumes after the keyframe, the position follows it on the
// next read.
func (r *Reader) Seek(ctx context.Context, pos int64) error {
	if err := r.checkPosition(pos); err != nil {
		return err
	}
	kf := r.ix.LocateKeyframe(pos)
	if err := r.seekKeyframe(ctx, kf); err != nil {
		return err
	}
	r.landing = true
	r.metrics.Seek(false)
	r.logger.Debug("Seek to frame %d landed on keyframe %d", pos, kf)
	return nil
}

// SeekAccurate moves so that the next read returns exactly frame pos,
// decoding and discarding the frames between the preceding keyframe and pos.
// When the engine resumes past pos it retries from earlier keyframes and
// finally from frame 0 before failing with ErrSeekFailure.
func (r *Reader) SeekAccurate(ctx context.Context, pos int64) error {
	if err := r.checkPosition(pos); err != nil {
		return err
	}

	attempt := r.ix.LocateKeyframe(pos)
	for {
		if err := r.seekKeyframe(ctx, attempt); err != nil {
			return err
		}
		r.metrics.Seek(true)

		landed, err := r.peekPosition(ctx)
		if err != nil {
			return err
		}
		if landed <= pos {
			r.current = max(attempt, landed)
			break
		}

		if attempt == 0 {
			r.logger.Error("Seek to frame %d failed: decoder resumed at frame %d", pos, landed)
			return fmt.Errorf("%w: decoder resumed at frame %d after seeking to frame 0 for frame %d", ErrSeekFailure, landed, pos)
		}
		prev := max(r.ix.PreviousKeyframe(attempt), 0)
		r.logger.Debug("Seek to keyframe %d resumed at frame %d, retrying from %d", attempt, landed, prev)
		attempt = prev
	}

	if err := r.advanceTo(ctx, pos); err != nil {
		return err
	}
	r.logger.Debug("Accurate seek to frame %d from keyframe %d", pos, attempt)
	return nil
}

// SkipFrames decodes and discards n frames without seeking. It stops
// quietly at the end of the stream.
func (r *Reader) SkipFrames(ctx context.Context, n int64) error {
	if r.state == StateClosed {
		return ErrClosed
	}
	if n <= 0 {
		return nil
	}
	target := r.current + n
	if r.ix != nil {
		target = min(target, r.ix.FrameCount())
	}
	err := r.advanceTo(ctx, target)
	if errors.Is(err, ErrEndOfStream) {
		return nil
	}
	return err
}

// LocateKeyframe returns the greatest keyframe position <= pos.
func (r *Reader) LocateKeyframe(pos int64) (int64, error) {
	if err := r.checkPosition(pos); err != nil {
		return 0, err
	}
	return r.ix.LocateKeyframe(pos), nil
}

func (r *Reader) checkPosition(pos int64) error {
	if r.state == StateClosed {
		return ErrClosed
	}
	if err := r.ensureIndex(); err != nil {
		return err
	}
	if pos < 0 || pos >= r.ix.FrameCount() {
		return fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, pos, r.ix.FrameCount())
	}
	return nil
}

// seekKeyframe repositions the pipeline at keyframe kf. The position is
// reset even when the seek fails, since the engine state is then unknown
// and later frames are placed by their timestamps.
func (r *Reader) seekKeyframe(ctx context.Context, kf int64) error {
	ts, err := r.ix.FrameToTimestamp(kf)
	if err != nil {
		return err
	}

	r.ensurePipeline()
	err = r.pipe.Seek(ctx, ts.PTS)

	r.current = kf
	r.pending = nil
	r.landing = false
	r.state = StateStreaming

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		r.logger.Error("Seek to pts %d failed: %s", ts.PTS, err)
		return fmt.Errorf("%w: frame %d (pts %d): %v", ErrSeekFailure, kf, ts.PTS, err)
	}
	return nil
}

// peekPosition decodes the first frame after a seek, keeps it pending and
// returns its position. End of stream counts as landing past the last frame.
func (r *Reader) peekPosition(ctx context.Context) (int64, error) {
	pos, fr, err := r.nextDecoded(ctx)
	if errors.Is(err, io.EOF) {
		return r.ix.FrameCount(), nil
	}
	if err != nil {
		return 0, r.decodeError(ctx, err)
	}
	r.pending = &decoded{pos: pos, frame: fr}
	return pos, nil
}

// advanceTo decodes and discards frames until the current position is target.
func (r *Reader) advanceTo(ctx context.Context, target int64) error {
	for r.current < target {
		if _, _, _, err := r.step(ctx); err != nil {
			return err
		}
		r.metrics.FrameDiscarded()
	}
	return nil
}
