// Package summarizer provides probe and extraction reports for videos.
package summarizer

import "time"

// Summary contains everything known about a probed or extracted video.
type Summary struct {
	// Metadata
	GeneratedAt time.Time `json:"generated_at"`

	Source     SourceInfo      `json:"source"`
	Stream     StreamInfo      `json:"stream"`
	Index      IndexInfo       `json:"index"`
	Settings   Settings        `json:"settings"`
	Extraction *ExtractionInfo `json:"extraction,omitempty"`
}

// SourceInfo describes the container file.
type SourceInfo struct {
	Path    string `json:"path"`
	Size    int64  `json:"size"`
	Streams int    `json:"streams"`
	Video   int    `json:"video_streams"`
}

// StreamInfo describes the selected video stream.
type StreamInfo struct {
	Index    int     `json:"index"`
	Codec    string  `json:"codec"`
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	FPS      float64 `json:"fps"`
	Rotation float64 `json:"rotation"`
	TimeBase string  `json:"time_base"`
}

// IndexInfo summarizes the frame index.
type IndexInfo struct {
	Frames    int64   `json:"frames"`
	Keyframes int     `json:"keyframes"`
	Duration  float64 `json:"duration"` // seconds
	MaxGOP    int64   `json:"max_gop"`
	Degraded  bool    `json:"degraded"`
}

// Settings contains the reader configuration used.
type Settings struct {
	Engine   string `json:"engine"`
	Decoder  string `json:"decoder"`
	IO       string `json:"io"`
	Threads  int    `json:"threads"`
	FaultTol string `json:"fault_tol"`
}

// ExtractionInfo describes the result of an extract run.
type ExtractionInfo struct {
	Frames      int     `json:"frames"`
	Failed      []int64 `json:"failed"`
	FrameWidth  int     `json:"frame_width"`
	FrameHeight int     `json:"frame_height"`
	SheetPath   string  `json:"sheet_path,omitempty"`
	SheetSize   int64   `json:"sheet_size,omitempty"`
	ElapsedMs   int64   `json:"elapsed_ms"`
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// MaxGOP returns the longest distance between consecutive keyframes, counting
// the tail after the last keyframe.
func MaxGOP(keys []int64, frames int64) int64 {
	var longest int64
	for i, k := range keys {
		next := frames
		if i+1 < len(keys) {
			next = keys[i+1]
		}
		longest = max(longest, next-k)
	}
	return longest
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSource sets container information.
func (b *Builder) WithSource(source SourceInfo) *Builder {
	b.summary.Source = source
	return b
}

// WithStream sets the selected stream.
func (b *Builder) WithStream(stream StreamInfo) *Builder {
	b.summary.Stream = stream
	return b
}

// WithIndex sets index statistics from the keyframe list.
func (b *Builder) WithIndex(frames int64, keys []int64, duration float64, degraded bool) *Builder {
	b.summary.Index = IndexInfo{
		Frames:    frames,
		Keyframes: len(keys),
		Duration:  duration,
		MaxGOP:    MaxGOP(keys, frames),
		Degraded:  degraded,
	}
	return b
}

// WithSettings sets reader settings.
func (b *Builder) WithSettings(settings Settings) *Builder {
	b.summary.Settings = settings
	return b
}

// WithExtraction sets extraction results.
func (b *Builder) WithExtraction(extraction ExtractionInfo) *Builder {
	b.summary.Extraction = &extraction
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
