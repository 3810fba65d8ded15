// Package h264decoder decodes H.264 groups of pictures with an external
// ffmpeg process.
package h264decoder

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"strconv"
	"sync"

	"github.com/user/vidreader/pkg/ports"
)

var (
	// ErrNotInitialized is returned when decoder methods are called before initialization.
	ErrNotInitialized = errors.New("h264decoder: decoder not initialized")

	// ErrDecodeFailed is returned when ffmpeg cannot decode a group.
	ErrDecodeFailed = errors.New("h264decoder: decode failed")

	// ErrFFmpegNotFound is returned when ffmpeg is not found.
	ErrFFmpegNotFound = errors.New("h264decoder: ffmpeg not found")

	// ErrUnknownSize is returned by Init when the stream dimensions are unknown.
	ErrUnknownSize = errors.New("h264decoder: frame size unknown")
)

// Decoder implements ports.SampleDecoder. Each group is piped through one
// ffmpeg invocation as an Annex B elementary stream and read back as rgb24.
type Decoder struct {
	mu          sync.Mutex
	ffmpegPath  string
	width       int
	height      int
	threads     int
	header      []byte // SPS and PPS in Annex B form
	initialized bool
}

// New creates a new H.264 decoder.
func New() *Decoder {
	return &Decoder{}
}

// IsAvailable reports whether ffmpeg can be found.
func IsAvailable() bool {
	_, err := FindFFmpeg()
	return err == nil
}

// Init locates ffmpeg and stores the stream parameters.
func (d *Decoder) Init(cfg ports.DecoderConfig) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if cfg.Width <= 0 || cfg.Height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrUnknownSize, cfg.Width, cfg.Height)
	}
	path, err := FindFFmpeg()
	if err != nil {
		return err
	}

	d.ffmpegPath = path
	d.width, d.height = cfg.Width, cfg.Height
	d.threads = cfg.Threads
	d.header = parameterSets(cfg.ParameterSets)
	d.initialized = true
	return nil
}

// DecodeGroup decodes length-prefixed (AVCC) samples of one group of pictures.
// ffmpeg emits frames in presentation order. Frames it could not produce are
// returned as nil entries at the end of the slice.
func (d *Decoder) DecodeGroup(samples [][]byte) ([]image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.initialized {
		return nil, ErrNotInitialized
	}
	if len(samples) == 0 {
		return nil, nil
	}

	var stream bytes.Buffer
	stream.Write(d.header)
	for _, s := range samples {
		stream.Write(avccToAnnexB(s))
	}

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "h264",
	}
	if d.threads > 0 {
		args = append(args, "-threads", strconv.Itoa(d.threads))
	}
	args = append(args,
		"-i", "pipe:0",
		"-vsync", "0",
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.Command(d.ffmpegPath, args...)
	cmd.Stdin = &stream
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	out := splitFrames(stdout.Bytes(), d.width, d.height, len(samples))
	if runErr != nil && out[0] == nil {
		return nil, fmt.Errorf("%w: %v: %s", ErrDecodeFailed, runErr, stderr.String())
	}
	return out, nil
}

// Close releases decoder resources.
func (d *Decoder) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.initialized = false
}

// splitFrames cuts packed rgb24 output into n RGBA images. Missing trailing
// frames are nil.
func splitFrames(raw []byte, w, h, n int) []image.Image {
	out := make([]image.Image, n)
	size := w * h * 3
	r := bytes.NewReader(raw)
	buf := make([]byte, size)
	for i := 0; i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			break
		}
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for p := 0; p < w*h; p++ {
			img.Pix[p*4] = buf[p*3]
			img.Pix[p*4+1] = buf[p*3+1]
			img.Pix[p*4+2] = buf[p*3+2]
			img.Pix[p*4+3] = 0xff
		}
		out[i] = img
	}
	return out
}

// Ensure Decoder implements ports.SampleDecoder
var _ ports.SampleDecoder = (*Decoder)(nil)
