package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// EnvPrefix prefixes every environment variable read by ApplyEnv.
const EnvPrefix = "VIDREADER_"

// Load reads .env files into the process environment. With no paths, ".env"
// is used. Missing files are not an error.
func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// GetEnv returns the value of the environment variable named by key, or fallback
// if the variable is unset or empty.
func GetEnv(key, fallback string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return fallback
}

// GetEnvInt returns the integer value of the environment variable named by key,
// or fallback if the variable is unset, empty, or not a valid integer.
func GetEnvInt(key string, fallback int) int {
	if s := os.Getenv(key); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return fallback
}

// GetEnvBool returns the boolean value of the environment variable named by
// key, or fallback if the variable is unset or not a valid boolean.
func GetEnvBool(key string, fallback bool) bool {
	if s := os.Getenv(key); s != "" {
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
	}
	return fallback
}

// ApplyEnv overrides fields of c with VIDREADER_* environment variables.
func (c *Config) ApplyEnv() {
	c.Width = GetEnvInt(EnvPrefix+"WIDTH", c.Width)
	c.Height = GetEnvInt(EnvPrefix+"HEIGHT", c.Height)
	c.Threads = GetEnvInt(EnvPrefix+"THREADS", c.Threads)
	c.IO = GetEnv(EnvPrefix+"IO", c.IO)
	c.FaultTol = GetEnv(EnvPrefix+"FAULT_TOL", c.FaultTol)
	c.Stream = GetEnvInt(EnvPrefix+"STREAM", c.Stream)
	c.BatchSize = GetEnvInt(EnvPrefix+"BATCH_SIZE", c.BatchSize)
	c.OutputDir = GetEnv(EnvPrefix+"OUTPUT_DIR", c.OutputDir)
	c.Labels = GetEnvBool(EnvPrefix+"LABELS", c.Labels)
	c.LogLevel = GetEnv(EnvPrefix+"LOG_LEVEL", c.LogLevel)
	c.LogFormat = GetEnv(EnvPrefix+"LOG_FORMAT", c.LogFormat)
	c.MetricsAddr = GetEnv(EnvPrefix+"METRICS_ADDR", c.MetricsAddr)
	c.FFmpegPath = GetEnv(EnvPrefix+"FFMPEG_PATH", c.FFmpegPath)
}
