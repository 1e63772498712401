// Package deps reports the availability of the external binaries
// bindery drives. The status command renders these results; the merge
// command refuses to start when a required binary is missing.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"bindery/internal/config"
	"bindery/internal/ffmpeg"
)

// Requirement defines an external dependency bindery relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements returns the binaries a merge needs, with ffmpeg resolved
// through its full lookup chain (configured path, bundled sidecar,
// PATH, common locations).
func Requirements(cfg *config.Config) []Requirement {
	ffmpegCommand := ""
	if resolved, err := ffmpeg.Locate(cfg.FFmpeg.Binary); err == nil {
		ffmpegCommand = resolved
	}
	return []Requirement{
		{
			Name:        "FFmpeg",
			Command:     ffmpegCommand,
			Description: "Required for audio conversion",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.ProbeBinary(),
			Description: "Required for input analysis",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Available = false
			status.Detail = "command not configured or not found"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Available = false
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}
