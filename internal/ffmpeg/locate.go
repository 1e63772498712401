// Package ffmpeg locates the ffmpeg binary and understands its wire
// formats: the concat demuxer input list and the machine-readable
// progress stream emitted with -progress.
package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// ErrBinaryNotFound is returned when no usable ffmpeg binary exists.
var ErrBinaryNotFound = errors.New("ffmpeg binary not found")

// commandContext is a test seam for command construction.
var commandContext = exec.CommandContext

// commonPaths are checked after PATH resolution fails. Package
// managers on headless boxes sometimes install ffmpeg without
// touching the service user's PATH.
var commonPaths = []string{
	"/usr/bin/ffmpeg",
	"/usr/local/bin/ffmpeg",
	"/opt/homebrew/bin/ffmpeg",
}

// Locate resolves the ffmpeg binary to execute. Lookup order: the
// configured path if set, a copy bundled next to the running
// executable, PATH, then common install locations.
func Locate(configured string) (string, error) {
	configured = strings.TrimSpace(configured)
	if configured != "" {
		if resolved, err := exec.LookPath(configured); err == nil {
			return resolved, nil
		}
		if isExecutableFile(configured) {
			return configured, nil
		}
		return "", fmt.Errorf("%w: configured binary %q is not executable", ErrBinaryNotFound, configured)
	}

	if bundled, ok := bundledCandidate(); ok {
		return bundled, nil
	}

	if resolved, err := exec.LookPath("ffmpeg"); err == nil {
		return resolved, nil
	}

	for _, candidate := range commonPaths {
		if isExecutableFile(candidate) {
			return candidate, nil
		}
	}

	return "", ErrBinaryNotFound
}

func bundledCandidate() (string, bool) {
	self, err := os.Executable()
	if err != nil {
		return "", false
	}
	name := "ffmpeg"
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	candidate := filepath.Join(filepath.Dir(self), name)
	if isExecutableFile(candidate) {
		return candidate, true
	}
	return "", false
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

// Version runs the binary with -version and returns the first line of
// output, e.g. "ffmpeg version 7.1".
func Version(ctx context.Context, binary string) (string, error) {
	cmd := commandContext(ctx, binary, "-version")
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("ffmpeg version: %w", err)
	}
	line, _, _ := strings.Cut(string(output), "\n")
	line = strings.TrimSpace(line)
	if line == "" {
		return "", errors.New("ffmpeg version: empty output")
	}
	return line, nil
}
