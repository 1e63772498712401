// Package staging manages the temporary workspace for merge runs. Each
// run works inside an isolated session directory so concurrent runs and
// crash leftovers never interfere with each other.
package staging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// ConcatFileName is the concat demuxer input list inside a session
	// directory.
	ConcatFileName = "concat.txt"
	// MergedFileName is the in-progress output inside a session
	// directory. It is moved to its destination only after a
	// successful run.
	MergedFileName = "merged.m4b"
)

// SessionDir returns the workspace path for a session without creating it.
func SessionDir(root, sessionID string) string {
	return filepath.Join(root, sessionID)
}

// EnsureSessionDir creates and returns the workspace for a session.
func EnsureSessionDir(root, sessionID string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("staging root not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", fmt.Errorf("session id required")
	}
	dir := SessionDir(root, sessionID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create session directory: %w", err)
	}
	return dir, nil
}

// ConcatPath returns the concat list path inside a session directory.
func ConcatPath(sessionDir string) string {
	return filepath.Join(sessionDir, ConcatFileName)
}

// MergedPath returns the in-progress output path inside a session
// directory.
func MergedPath(sessionDir string) string {
	return filepath.Join(sessionDir, MergedFileName)
}
