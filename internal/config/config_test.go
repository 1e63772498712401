package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.toml")

	cfg, resolved, exists, err := Load(missing)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if resolved != missing {
		t.Fatalf("resolved path = %q, want %q", resolved, missing)
	}
	if cfg.Logging.Level != "info" {
		t.Fatalf("default log level = %q, want info", cfg.Logging.Level)
	}
	if cfg.FFmpeg.DefaultPreset != "audiobook" {
		t.Fatalf("default preset = %q, want audiobook", cfg.FFmpeg.DefaultPreset)
	}
}

func TestLoadParsesAndExpands(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
staging_dir = "` + dir + `/staging"
log_dir = "` + dir + `/logs"

[logging]
level = "DEBUG"
format = "JSON"

[ffmpeg]
default_preset = "High-Quality"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("format = %q, want json", cfg.Logging.Format)
	}
	if cfg.FFmpeg.DefaultPreset != "high-quality" {
		t.Fatalf("preset = %q, want high-quality", cfg.FFmpeg.DefaultPreset)
	}
	if !filepath.IsAbs(cfg.Paths.StagingDir) {
		t.Fatalf("staging dir not absolute: %q", cfg.Paths.StagingDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "bad format",
			content: "[logging]\nformat = \"xml\"\n",
			want:    "unsupported log format",
		},
		{
			name:    "bad preset",
			content: "[ffmpeg]\ndefault_preset = \"lossless\"\n",
			want:    "unknown default preset",
		},
		{
			name:    "negative max age",
			content: "[staging]\nmax_age_hours = -1\n",
			want:    "max_age_hours",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatal(err)
			}
			_, _, _, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.Paths.StagingDir = filepath.Join(dir, "staging")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.History.Path = filepath.Join(dir, "state", "history.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, d := range []string{cfg.Paths.StagingDir, cfg.Paths.LogDir, filepath.Join(dir, "state")} {
		info, err := os.Stat(d)
		if err != nil || !info.IsDir() {
			t.Fatalf("directory %q missing", d)
		}
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/bindery")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "bindery") {
		t.Fatalf("ExpandPath = %q", got)
	}
}

func TestSampleConfigParsesCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(SampleConfig()), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, _, exists, err := Load(path)
	if err != nil {
		t.Fatalf("sample config failed to load: %v", err)
	}
	if !exists {
		t.Fatal("expected exists=true")
	}
	if cfg.Staging.MaxAgeHours != 24 {
		t.Fatalf("max_age_hours = %d, want 24", cfg.Staging.MaxAgeHours)
	}
}
