package preflight

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"bindery/internal/config"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckFreeSpace(t *testing.T) {
	dir := t.TempDir()

	result := CheckFreeSpace("space", dir, 1)
	if !result.Passed {
		t.Fatalf("expected at least 1 MB free in %s: %s", dir, result.Detail)
	}

	// An absurd requirement must fail.
	result = CheckFreeSpace("space", dir, 1<<40)
	if result.Passed {
		t.Fatal("expected failure for impossible free-space requirement")
	}
}

func TestCheckFreeSpaceMissingPath(t *testing.T) {
	result := CheckFreeSpace("space", filepath.Join(t.TempDir(), "nope"), 1)
	if result.Passed {
		t.Fatal("expected failure for missing path")
	}
}

func TestRunAllCoversDirectoriesAndBinaries(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(dir, "staging")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.Staging.MinFreeMB = 1
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}

	results := RunAll(context.Background(), &cfg)
	names := make(map[string]bool, len(results))
	for _, result := range results {
		names[result.Name] = true
	}
	for _, want := range []string{"Staging directory", "Log directory", "Staging free space", "FFmpeg", "FFprobe"} {
		if !names[want] {
			t.Errorf("RunAll missing check %q: %+v", want, results)
		}
	}
}

func TestPassed(t *testing.T) {
	if !Passed([]Result{{Passed: true}, {Passed: true}}) {
		t.Fatal("expected Passed=true")
	}
	if Passed([]Result{{Passed: true}, {Passed: false}}) {
		t.Fatal("expected Passed=false")
	}
	if !Passed(nil) {
		t.Fatal("expected Passed=true for empty results")
	}
}
