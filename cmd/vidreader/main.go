// Package main provides the CLI entry point for vidreader.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/vidreader/pkg/adapters/logger"
	"github.com/user/vidreader/pkg/adapters/osfilesystem"
	"github.com/user/vidreader/pkg/adapters/prommetrics"
	"github.com/user/vidreader/pkg/config"
	"github.com/user/vidreader/pkg/ports"
	"github.com/user/vidreader/pkg/reader"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "vidreader",
		Usage:   l10n.T("Random access video frame reader"),
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Configuration")},
			&cli.StringFlag{Name: "engine", Value: "mp4", Usage: l10n.T("Codec engine (mp4, or astiav when built with it)"), Category: l10n.T("Configuration")},
			&cli.StringFlag{Name: "ffmpeg-path", Usage: l10n.T("Path to the ffmpeg executable used for H.264"), Category: l10n.T("Configuration")},
			&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T("Logging")},
			&cli.StringFlag{Name: "log-format", Usage: l10n.T("Log format (text, json, logfmt)"), Category: l10n.T("Logging")},
			&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: l10n.T("Suppress all log output"), Category: l10n.T("Logging")},
			&cli.StringFlag{Name: "metrics-addr", Usage: l10n.T("Serve Prometheus metrics on this address (e.g. :9090)"), Category: l10n.T("Logging")},
		},
		Commands: []*cli.Command{
			infoCommand(),
			keyframesCommand(),
			extractCommand(),
			playCommand(),
			{
				Name:  "version",
				Usage: l10n.T("Show version information"),
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, l10n.F("vidreader version %s", version))
					return nil
				},
			},
		},
	}
}

// session carries what every command needs: the merged configuration, the
// logger, metrics and a filesystem.
type session struct {
	cfg     config.Config
	engine  string
	log     ports.Logger
	metrics *prommetrics.Metrics
	fs      ports.FileSystem

	stopMetrics func()
}

// newSession merges defaults, the config file, the environment and global
// flags, in increasing priority.
func newSession(c *cli.Context) (*session, error) {
	if err := config.Load(); err != nil {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg.ApplyEnv()
	applyGlobalFlags(c, &cfg)

	s := &session{
		cfg:         cfg,
		engine:      c.String("engine"),
		log:         newLogger(cfg, c.Bool("quiet")),
		metrics:     prommetrics.New(),
		fs:          osfilesystem.New(),
		stopMetrics: func() {},
	}
	if cfg.MetricsAddr != "" {
		s.stopMetrics = startMetricsServer(cfg.MetricsAddr, s.metrics, s.log)
	}
	return s, nil
}

func applyGlobalFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.LogFormat = c.String("log-format")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
	if c.IsSet("ffmpeg-path") {
		cfg.FFmpegPath = c.String("ffmpeg-path")
	}
}

// newLogger keeps stdout free for command output.
func newLogger(cfg config.Config, quiet bool) ports.Logger {
	level := ports.ParseLogLevel(cfg.LogLevel)
	switch {
	case quiet:
		return logger.NewNoop()
	case cfg.LogFormat == "json":
		return logger.NewLogrus(level, logger.FormatJSON, os.Stderr)
	case cfg.LogFormat == "logfmt":
		return logger.NewLogrus(level, logger.FormatText, os.Stderr)
	default:
		return logger.NewConsoleTo(level, os.Stderr, os.Stderr)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func (s *session) signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			s.log.Warn("Interrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

// openReader opens path with the configured engine and reader options.
// In-memory IO reads the whole file first.
func (s *session) openReader(path string) (*reader.Reader, error) {
	opts, err := s.cfg.ToReaderOptions()
	if err != nil {
		return nil, err
	}
	opts.Logger = s.log
	opts.Metrics = s.metrics

	src := ports.Source{Path: path, IOType: opts.IOType}
	if opts.IOType == ports.IOMemory {
		data, err := s.fs.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		src.Data = data
	}

	engine, err := newEngine(s.engine, s.cfg)
	if err != nil {
		return nil, err
	}
	return reader.New(engine, src, opts)
}

func (s *session) close() {
	s.stopMetrics()
}

// videoArg returns the single positional video path.
func videoArg(c *cli.Context) (string, error) {
	if c.NArg() != 1 {
		return "", cli.Exit(l10n.T("Exactly one video argument is required"), 2)
	}
	return c.Args().First(), nil
}
