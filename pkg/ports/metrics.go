package ports

import "time"

// Metrics receives reader instrumentation events.
type Metrics interface {
	// FrameDecoded counts a frame delivered from the decode pipeline.
	FrameDecoded()

	// FrameDiscarded counts a frame decoded only to move the position forward.
	FrameDiscarded()

	// FrameSubstituted counts a cached frame returned in place of a failed one.
	FrameSubstituted()

	// Seek counts a container-level seek.
	Seek(accurate bool)

	// BatchServed records a completed batch request.
	BatchServed(frames int, elapsed time.Duration)

	// IndexBuilt records the frame and keyframe counts of a finished index.
	IndexBuilt(frames, keyframes int)
}
