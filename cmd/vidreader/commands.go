package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vidreader/pkg/adapters/codecdetect"
	"github.com/user/vidreader/pkg/adapters/filesink"
	"github.com/user/vidreader/pkg/adapters/ggrenderer"
	"github.com/user/vidreader/pkg/adapters/nullsink"
	"github.com/user/vidreader/pkg/config"
	"github.com/user/vidreader/pkg/orchestrator"
	"github.com/user/vidreader/pkg/ports"
	"github.com/user/vidreader/pkg/reader"
	"github.com/user/vidreader/pkg/stages/encode"
	"github.com/user/vidreader/pkg/stages/extract"
	"github.com/user/vidreader/pkg/stages/layout"
	"github.com/user/vidreader/pkg/stages/sheet"
	"github.com/user/vidreader/pkg/summarizer"
)

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     l10n.T("Show stream and index information"),
		ArgsUsage: "<video>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: l10n.T("Print JSON instead of Markdown")},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Write the report to a file instead of stdout")},
		},
		Action: func(c *cli.Context) error {
			path, err := videoArg(c)
			if err != nil {
				return err
			}
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			r, err := s.openReader(path)
			if err != nil {
				return err
			}
			defer r.Close()

			builder, err := s.describe(path, r)
			if err != nil {
				return err
			}
			return s.report(c, builder.Build(), c.String("output"), c.Bool("json"))
		},
	}
}

func keyframesCommand() *cli.Command {
	return &cli.Command{
		Name:      "keyframes",
		Usage:     l10n.T("List keyframe positions and timestamps"),
		ArgsUsage: "<video>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "json", Usage: l10n.T("Print JSON instead of a table")},
		},
		Action: func(c *cli.Context) error {
			path, err := videoArg(c)
			if err != nil {
				return err
			}
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			r, err := s.openReader(path)
			if err != nil {
				return err
			}
			defer r.Close()

			keys, err := r.GetKeyIndices()
			if err != nil {
				return err
			}
			stamps, err := r.GetFrameTimestamps(keys)
			if err != nil {
				return err
			}

			type keyframe struct {
				Position int64   `json:"position"`
				PTS      int64   `json:"pts"`
				Start    float64 `json:"start"`
			}
			rows := make([]keyframe, len(keys))
			for i, k := range keys {
				rows[i] = keyframe{Position: k, PTS: stamps[i].PTS, Start: stamps[i].Start}
			}

			w := c.App.Writer
			if c.Bool("json") {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			fmt.Fprintf(w, "%10s %14s %12s\n", "position", "pts", "start")
			for _, row := range rows {
				fmt.Fprintf(w, "%10d %14d %12.3f\n", row.Position, row.PTS, row.Start)
			}
			return nil
		},
	}
}

func extractCommand() *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     l10n.T("Extract frames and compose a contact sheet"),
		ArgsUsage: "<video>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "positions", Aliases: []string{"p"}, Usage: l10n.T("Comma separated frame positions"), Category: l10n.T("Selection")},
			&cli.BoolFlag{Name: "keyframes", Aliases: []string{"k"}, Usage: l10n.T("Select every keyframe"), Category: l10n.T("Selection")},
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Usage: l10n.T("Number of evenly spaced frames"), Category: l10n.T("Selection")},
			&cli.Int64Flag{Name: "every", Usage: l10n.T("Step between selected frames"), Category: l10n.T("Selection")},
			&cli.Int64Flag{Name: "start", Usage: l10n.T("First frame of the range"), Category: l10n.T("Selection")},
			&cli.Int64Flag{Name: "end", Usage: l10n.T("End of the range, exclusive (0 = end of stream)"), Category: l10n.T("Selection")},
			&cli.IntFlag{Name: "batch-size", Usage: l10n.T("Frames decoded per batch"), Category: l10n.T("Selection")},

			&cli.IntFlag{Name: "width", Aliases: []string{"W"}, Usage: l10n.T("Output frame width (0 = native)"), Category: l10n.T("Output")},
			&cli.IntFlag{Name: "height", Aliases: []string{"H"}, Usage: l10n.T("Output frame height (0 = native)"), Category: l10n.T("Output")},
			&cli.StringFlag{Name: "output-dir", Aliases: []string{"o"}, Usage: l10n.T("Directory for frame images and index.json"), Category: l10n.T("Output")},
			&cli.BoolFlag{Name: "no-frames", Usage: l10n.T("Do not write frame images"), Category: l10n.T("Output")},
			&cli.StringFlag{Name: "format", Usage: l10n.T("Frame image format (png, jpeg)"), Category: l10n.T("Output")},
			&cli.IntFlag{Name: "quality", Usage: l10n.T("JPEG quality (1-100)"), Category: l10n.T("Output")},
			&cli.StringFlag{Name: "summary", Usage: l10n.T("Write an execution summary (Markdown) to this file"), Category: l10n.T("Output")},

			&cli.StringFlag{Name: "sheet", Aliases: []string{"s"}, Usage: l10n.T("Contact sheet output path (.png or .jpg)"), Category: l10n.T("Contact Sheet")},
			&cli.IntFlag{Name: "columns", Usage: l10n.T("Contact sheet columns"), Category: l10n.T("Contact Sheet")},
			&cli.IntFlag{Name: "thumb-width", Usage: l10n.T("Thumbnail width in pixels"), Category: l10n.T("Contact Sheet")},
			&cli.BoolFlag{Name: "no-labels", Usage: l10n.T("Hide thumbnail labels"), Category: l10n.T("Contact Sheet")},
		},
		Action: runExtract,
	}
}

func runExtract(c *cli.Context) error {
	path, err := videoArg(c)
	if err != nil {
		return err
	}
	s, err := newSession(c)
	if err != nil {
		return err
	}
	defer s.close()

	if err := applyExtractFlags(c, &s.cfg); err != nil {
		return err
	}
	orchConfig := s.cfg.ToOrchestratorConfig()
	if c.IsSet("positions") {
		positions, err := parsePositions(c.String("positions"))
		if err != nil {
			return cli.Exit(err.Error(), 2)
		}
		orchConfig.Positions = positions
	}
	orchConfig.WriteIndex = s.cfg.OutputDir != ""

	ctx, cancel := s.signalContext(c.Context)
	defer cancel()

	r, err := s.openReader(path)
	if err != nil {
		return err
	}
	defer r.Close()

	renderer := ggrenderer.New()
	var sink ports.FrameSink = nullsink.New()
	if s.cfg.OutputDir != "" {
		if err := s.fs.MkdirAll(s.cfg.OutputDir); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
		fsink := filesink.New(s.cfg.OutputDir, s.fs, renderer)
		if s.cfg.ImageFormat() == ports.FormatJPEG {
			fsink.WithJPEG(s.cfg.FrameQuality)
		}
		sink = fsink
	}
	frameSink := sink
	if c.Bool("no-frames") {
		frameSink = nullsink.New()
	}

	orch := orchestrator.New(
		r,
		layout.NewStage(),
		extract.New(r, frameSink, s.log),
		sheet.NewStage(renderer, nullsink.New(), s.log, s.cfg.Workers),
		encode.NewStage(renderer, s.log),
		s.fs,
		sink,
		s.log,
	)

	result, err := orch.Run(ctx, orchConfig)
	if err != nil {
		return err
	}

	w := c.App.Writer
	fmt.Fprintln(w, l10n.F("Extracted %d of %d frames at %dx%d", result.Extracted, result.TotalFrames, result.FrameWidth, result.FrameHeight))
	if len(result.Failed) > 0 {
		fmt.Fprintln(w, l10n.F("Substituted frames: %v", result.Failed))
	}
	if result.SheetPath != "" {
		fmt.Fprintln(w, l10n.F("Contact sheet saved to %s", result.SheetPath))
	}

	if summaryPath := c.String("summary"); summaryPath != "" {
		builder, err := s.describe(path, r)
		if err != nil {
			return err
		}
		builder.WithExtraction(summarizer.ExtractionInfo{
			Frames:      result.Extracted,
			Failed:      result.Failed,
			FrameWidth:  result.FrameWidth,
			FrameHeight: result.FrameHeight,
			SheetPath:   result.SheetPath,
			SheetSize:   result.SheetFileSize,
			ElapsedMs:   result.Elapsed.Milliseconds(),
		})
		if err := s.report(c, builder.Build(), summaryPath, false); err != nil {
			return err
		}
	}
	return nil
}

// applyExtractFlags overrides the configuration with explicitly set flags.
func applyExtractFlags(c *cli.Context, cfg *config.Config) error {
	if c.IsSet("keyframes") {
		cfg.Keyframes = c.Bool("keyframes")
	}
	if c.IsSet("count") {
		cfg.Count = c.Int("count")
	}
	if c.IsSet("every") {
		cfg.Every = c.Int64("every")
	}
	if c.IsSet("start") {
		cfg.Start = c.Int64("start")
	}
	if c.IsSet("end") {
		cfg.End = c.Int64("end")
	}
	if c.IsSet("batch-size") {
		cfg.BatchSize = c.Int("batch-size")
	}
	if c.IsSet("width") {
		cfg.Width = c.Int("width")
	}
	if c.IsSet("height") {
		cfg.Height = c.Int("height")
	}
	if c.IsSet("output-dir") {
		cfg.OutputDir = c.String("output-dir")
	}
	if c.IsSet("format") {
		switch f := strings.ToLower(c.String("format")); f {
		case "png", "jpg", "jpeg":
			cfg.FrameFormat = f
		default:
			return cli.Exit(l10n.F("Unsupported frame format: %s", f), 2)
		}
	}
	if c.IsSet("quality") {
		cfg.FrameQuality = c.Int("quality")
	}
	if c.IsSet("sheet") {
		cfg.Sheet = c.String("sheet")
	}
	if c.IsSet("columns") {
		cfg.Columns = c.Int("columns")
	}
	if c.IsSet("thumb-width") {
		cfg.ThumbWidth = c.Int("thumb-width")
	}
	if c.IsSet("no-labels") {
		cfg.Labels = !c.Bool("no-labels")
	}
	return nil
}

func playCommand() *cli.Command {
	return &cli.Command{
		Name:      "play",
		Usage:     l10n.T("Decode frames sequentially and report throughput"),
		ArgsUsage: "<video>",
		Flags: []cli.Flag{
			&cli.Int64Flag{Name: "seek", Usage: l10n.T("Start at this frame (accurate seek)")},
			&cli.Int64Flag{Name: "limit", Usage: l10n.T("Stop after this many frames (0 = all)")},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: l10n.T("Print one line per frame")},
		},
		Action: func(c *cli.Context) error {
			path, err := videoArg(c)
			if err != nil {
				return err
			}
			s, err := newSession(c)
			if err != nil {
				return err
			}
			defer s.close()

			ctx, cancel := s.signalContext(c.Context)
			defer cancel()

			r, err := s.openReader(path)
			if err != nil {
				return err
			}
			defer r.Close()

			if c.IsSet("seek") {
				if err := r.SeekAccurate(ctx, c.Int64("seek")); err != nil {
					return err
				}
			}

			w := c.App.Writer
			limit := c.Int64("limit")
			start := time.Now()
			var frames int64
			for limit <= 0 || frames < limit {
				pos := r.GetCurrentPosition()
				buf, err := r.NextFrame(ctx)
				if errors.Is(err, reader.ErrEndOfStream) {
					break
				}
				if err != nil {
					return err
				}
				if c.Bool("verbose") {
					fmt.Fprintf(w, "%d %v\n", pos, buf.Shape)
				}
				r.Release(buf)
				frames++
			}

			elapsed := time.Since(start)
			fps := 0.0
			if elapsed > 0 {
				fps = float64(frames) / elapsed.Seconds()
			}
			fmt.Fprintln(w, l10n.F("Decoded %d frames in %d ms (%.1f fps)", frames, elapsed.Milliseconds(), fps))
			if failed := r.FailedPositions(); len(failed) > 0 {
				fmt.Fprintln(w, l10n.F("Substituted frames: %v", failed))
			}
			return nil
		},
	}
}

// describe collects the probe information shared by info and extract.
func (s *session) describe(path string, r *reader.Reader) (*summarizer.Builder, error) {
	snapshot, err := r.IndexSnapshot()
	if err != nil {
		return nil, err
	}
	size, err := s.fs.Size(path)
	if err != nil {
		return nil, err
	}

	streams := r.Streams()
	video := 0
	for _, st := range streams {
		if st.Video {
			video++
		}
	}

	count := snapshot.FrameCount()
	duration := 0.0
	if count > 0 {
		last, err := snapshot.FrameToTimestamp(count - 1)
		if err != nil {
			return nil, err
		}
		duration = last.Stop
	}

	st := r.StreamInfo()
	return summarizer.NewBuilder().
		WithSource(summarizer.SourceInfo{
			Path:    filepath.Clean(path),
			Size:    size,
			Streams: len(streams),
			Video:   video,
		}).
		WithStream(summarizer.StreamInfo{
			Index:    st.Index,
			Codec:    st.Codec,
			Width:    st.Width,
			Height:   st.Height,
			FPS:      r.GetAverageFPS(),
			Rotation: r.GetRotation(),
			TimeBase: fmt.Sprintf("%d/%d", st.TimeBase.Num, st.TimeBase.Den),
		}).
		WithIndex(count, snapshot.KeyIndices(), duration, snapshot.Degraded()).
		WithSettings(summarizer.Settings{
			Engine:   s.engine,
			Decoder:  string(codecdetect.FromSampleEntry(st.Codec)),
			IO:       strings.ToLower(ports.ParseIOType(s.cfg.IO).String()),
			Threads:  s.cfg.Threads,
			FaultTol: s.cfg.FaultTol,
		}), nil
}

// report renders a summary to stdout or, with a path, to a file.
func (s *session) report(c *cli.Context, summary *summarizer.Summary, path string, asJSON bool) error {
	var formatter summarizer.Formatter = summarizer.NewMarkdownFormatter()
	if asJSON {
		formatter = summarizer.JSONFormatter
	}
	if path == "" {
		_, err := fmt.Fprint(c.App.Writer, formatter.Format(summary))
		return err
	}
	if err := summarizer.NewWriter(formatter, s.fs).Write(path, summary); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	s.log.Info("Summary saved to %s", path)
	return nil
}

// parsePositions parses "3,10,25" into frame positions.
func parsePositions(s string) ([]int64, error) {
	var positions []int64
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		pos, err := strconv.ParseInt(field, 10, 64)
		if err != nil || pos < 0 {
			return nil, fmt.Errorf("invalid frame position %q", field)
		}
		positions = append(positions, pos)
	}
	if len(positions) == 0 {
		return nil, errors.New("no frame positions given")
	}
	return positions, nil
}
