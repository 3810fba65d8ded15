package main

import (
	"bytes"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/user/vidreader/pkg/adapters/mp4engine"
	"github.com/user/vidreader/pkg/adapters/prommetrics"
	"github.com/user/vidreader/pkg/config"
)

func TestParsePositions(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []int64
		wantErr bool
	}{
		{name: "single", input: "7", want: []int64{7}},
		{name: "list", input: "3,10,25", want: []int64{3, 10, 25}},
		{name: "spaces and empty fields", input: " 1, ,4 ,", want: []int64{1, 4}},
		{name: "unsorted kept", input: "9,2", want: []int64{9, 2}},
		{name: "negative", input: "1,-2", wantErr: true},
		{name: "garbage", input: "1,x", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePositions(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMetricsRouter(t *testing.T) {
	met := prommetrics.New()
	met.Seek(true)
	srv := httptest.NewServer(newMetricsRouter(met))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok\n", string(body))

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `vidreader_seeks_total{kind="accurate"} 1`)

	resp, err = http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestNewEngine(t *testing.T) {
	eng, err := newEngine("mp4", config.Defaults())
	require.NoError(t, err)
	assert.IsType(t, &mp4engine.Engine{}, eng)

	_, err = newEngine("vlc", config.Defaults())
	assert.ErrorContains(t, err, "unknown engine")
	assert.Contains(t, engineNames(), "mp4")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	require.NoError(t, app.Run([]string{"vidreader", "version"}))
	assert.Contains(t, out.String(), version)
}

func extractContext(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	set := flag.NewFlagSet("extract", flag.ContinueOnError)
	for _, f := range extractCommand().Flags {
		require.NoError(t, f.Apply(set))
	}
	require.NoError(t, set.Parse(args))
	return cli.NewContext(newApp(), set, nil)
}

func TestApplyExtractFlags(t *testing.T) {
	cfg := config.Defaults()
	c := extractContext(t,
		"--count", "12",
		"--start", "30",
		"--format", "JPG",
		"--quality", "75",
		"--sheet", "out/sheet.jpg",
		"--columns", "6",
		"--no-labels",
		"-W", "320",
	)

	require.NoError(t, applyExtractFlags(c, &cfg))
	assert.Equal(t, 12, cfg.Count)
	assert.Equal(t, int64(30), cfg.Start)
	assert.Equal(t, "jpg", cfg.FrameFormat)
	assert.Equal(t, 75, cfg.FrameQuality)
	assert.Equal(t, "out/sheet.jpg", cfg.Sheet)
	assert.Equal(t, 6, cfg.Columns)
	assert.False(t, cfg.Labels)
	assert.Equal(t, 320, cfg.Width)

	// Untouched values keep their defaults.
	defaults := config.Defaults()
	assert.Equal(t, defaults.Every, cfg.Every)
	assert.Equal(t, defaults.OutputDir, cfg.OutputDir)
	assert.Equal(t, defaults.ThumbWidth, cfg.ThumbWidth)
}

func TestApplyExtractFlags_BadFormat(t *testing.T) {
	cfg := config.Defaults()
	c := extractContext(t, "--format", "gif")

	err := applyExtractFlags(c, &cfg)
	assert.Error(t, err)
	assert.Equal(t, "png", cfg.FrameFormat)
}
