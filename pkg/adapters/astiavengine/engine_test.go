//go:build astiav

package astiavengine

import (
	"errors"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/vidreader/pkg/ports"
)

// testVideo returns the path in VIDREADER_TEST_VIDEO or skips the test.
func testVideo(t *testing.T) string {
	t.Helper()
	path := os.Getenv("VIDREADER_TEST_VIDEO")
	if path == "" {
		t.Skip("VIDREADER_TEST_VIDEO not set")
	}
	return path
}

func firstVideo(t *testing.T, e *Engine) int {
	t.Helper()
	for _, s := range e.Streams() {
		if s.Video {
			return s.Index
		}
	}
	t.Fatal("no video stream")
	return -1
}

func TestEngine_DecodeAndSeek(t *testing.T) {
	e := New()
	require.NoError(t, e.Open(ports.Source{Path: testVideo(t)}, ports.EngineOptions{Threads: 2}))
	defer e.Close()
	require.NoError(t, e.SelectStream(firstVideo(t, e)))

	cur, err := e.ScanPackets()
	require.NoError(t, err)
	var packets int
	for {
		_, err := cur.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		packets++
	}
	require.NoError(t, cur.Close())
	assert.Greater(t, packets, 0)

	first, err := e.DecodeFrame()
	require.NoError(t, err)
	require.NoError(t, first.Err)
	assert.NotNil(t, first.Image)

	require.NoError(t, e.SeekTimestamp(first.PTS))
	again, err := e.DecodeFrame()
	require.NoError(t, err)
	assert.Equal(t, first.PTS, again.PTS)
}

func TestEngine_RejectsMissingStream(t *testing.T) {
	e := New()
	require.NoError(t, e.Open(ports.Source{Path: testVideo(t)}, ports.EngineOptions{}))
	defer e.Close()

	assert.ErrorIs(t, e.SelectStream(99), ports.ErrNoSuchStream)
}
