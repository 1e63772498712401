package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"bindery/internal/config"
	"bindery/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes all preflight checks for the given config. The merge
// command runs these before touching any input; failing fast beats
// discovering a full disk an hour into an encode.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Staging directory", cfg.Paths.StagingDir))
	results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	if cfg.Staging.MinFreeMB > 0 {
		results = append(results, CheckFreeSpace("Staging free space", cfg.Paths.StagingDir, int64(cfg.Staging.MinFreeMB)))
	}

	for _, status := range deps.CheckBinaries(deps.Requirements(cfg)) {
		result := Result{Name: status.Name, Passed: status.Available, Detail: status.Command}
		if !status.Available {
			result.Detail = status.Detail
		}
		results = append(results, result)
	}

	return results
}

// Passed reports whether every required check in results succeeded.
func Passed(results []Result) bool {
	for _, result := range results {
		if !result.Passed {
			return false
		}
	}
	return true
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least
// minFreeMB megabytes available to the current user.
func CheckFreeSpace(name, path string, minFreeMB int64) Result {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: statfs: %v)", path, err)}
	}
	freeMB := int64(stat.Bavail) * stat.Bsize / (1024 * 1024)
	if freeMB < minFreeMB {
		return Result{Name: name, Detail: fmt.Sprintf("%d MB free, need %d MB", freeMB, minFreeMB)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%d MB free", freeMB)}
}
