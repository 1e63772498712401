// Package guard provides scope-bound cleanup for the merge pipeline:
// a temp-file guard that removes registered paths when a run ends, and
// a process guard that makes sure a spawned ffmpeg never outlives its
// session. Both are built for use with defer so that early returns and
// failures still release their resources.
package guard

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"

	"bindery/internal/logging"
)

// Cleanup removes a set of filesystem paths when the guarded scope
// ends. Paths are deduplicated on registration. Cleanup is safe for
// concurrent use.
type Cleanup struct {
	mu       sync.Mutex
	paths    []string
	seen     map[string]struct{}
	disabled bool
	logger   *slog.Logger
}

// NewCleanup returns an empty guard. A nil logger suppresses output.
func NewCleanup(logger *slog.Logger) *Cleanup {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Cleanup{
		seen:   make(map[string]struct{}),
		logger: logger,
	}
}

// AddPath registers a path for removal. Duplicate registrations are
// ignored so a path is only ever removed once.
func (c *Cleanup) AddPath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, dup := c.seen[path]; dup {
		return
	}
	c.seen[path] = struct{}{}
	c.paths = append(c.paths, path)
}

// AddPaths registers several paths at once.
func (c *Cleanup) AddPaths(paths []string) {
	for _, path := range paths {
		c.AddPath(path)
	}
}

// RemovePath unregisters a path so it survives cleanup. Used when an
// output file graduates from temporary to final artifact.
func (c *Cleanup) RemovePath(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seen[path]; !ok {
		return
	}
	delete(c.seen, path)
	for i, p := range c.paths {
		if p == path {
			c.paths = append(c.paths[:i], c.paths[i+1:]...)
			break
		}
	}
}

// PathCount returns the number of currently registered paths.
func (c *Cleanup) PathCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.paths)
}

// Disable turns the guard off; Close and CleanupNow become no-ops
// until Enable is called. Used when staged files must be kept for
// inspection after a failure.
func (c *Cleanup) Disable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = true
}

// Enable re-arms a disabled guard.
func (c *Cleanup) Enable() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = false
}

// CleanupNow removes every registered path immediately and drains the
// tracked set, leaving the guard empty whether or not every removal
// succeeded. A path that no longer exists counts as already clean.
// Removal continues past failures; each one is logged and the first
// error encountered is returned after all paths have been attempted.
func (c *Cleanup) CleanupNow() error {
	c.mu.Lock()
	if c.disabled {
		c.mu.Unlock()
		return nil
	}
	pending := c.paths
	c.paths = nil
	c.seen = make(map[string]struct{})
	c.mu.Unlock()

	var firstErr error
	for _, path := range pending {
		if err := removePath(path); err != nil {
			c.logger.Warn("failed to remove staged path",
				logging.String("path", path),
				logging.Error(err))
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %q: %w", path, err)
			}
		}
	}
	return firstErr
}

// Close runs cleanup for the defer path. Errors are logged and
// swallowed; a guard firing during unwind must never mask the error
// that triggered it.
func (c *Cleanup) Close() {
	if err := c.CleanupNow(); err != nil {
		c.logger.Warn("cleanup guard finished with errors", logging.Error(err))
	}
}

func removePath(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return os.RemoveAll(path)
	}
	return os.Remove(path)
}
