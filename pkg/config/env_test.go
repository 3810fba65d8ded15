package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestApplyEnv(t *testing.T) {
	t.Setenv("VIDREADER_WIDTH", "320")
	t.Setenv("VIDREADER_FAULT_TOL", "5")
	t.Setenv("VIDREADER_IO", "memory")
	t.Setenv("VIDREADER_LABELS", "false")
	t.Setenv("VIDREADER_THREADS", "not-a-number")
	t.Setenv("VIDREADER_METRICS_ADDR", ":9100")

	cfg := Defaults()
	cfg.ApplyEnv()

	if cfg.Width != 320 || cfg.FaultTol != "5" || cfg.IO != "memory" || cfg.MetricsAddr != ":9100" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.Labels {
		t.Error("expected labels disabled")
	}
	if cfg.Threads != 0 {
		t.Errorf("invalid integer should keep default, got %d", cfg.Threads)
	}
	if cfg.Height != -1 {
		t.Errorf("unset variable should keep default, got %d", cfg.Height)
	}
}

func TestLoad_DotEnv(t *testing.T) {
	const key = "VIDREADER_TEST_DOTENV_LEVEL"
	t.Cleanup(func() { os.Unsetenv(key) })

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte(key+"=debug\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := GetEnv(key, "info"); got != "debug" {
		t.Errorf("expected debug, got %q", got)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Errorf("missing .env should be ignored, got %v", err)
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("VIDREADER_TEST_INT", "42")
	t.Setenv("VIDREADER_TEST_BOOL", "true")

	if GetEnvInt("VIDREADER_TEST_INT", 1) != 42 {
		t.Error("GetEnvInt failed")
	}
	if GetEnvInt("VIDREADER_TEST_UNSET", 7) != 7 {
		t.Error("GetEnvInt fallback failed")
	}
	if !GetEnvBool("VIDREADER_TEST_BOOL", false) {
		t.Error("GetEnvBool failed")
	}
	if GetEnv("VIDREADER_TEST_UNSET", "x") != "x" {
		t.Error("GetEnv fallback failed")
	}
}
