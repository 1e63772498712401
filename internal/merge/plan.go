package merge

import (
	"fmt"
	"strconv"
)

// Plan is a fully resolved merge ready for execution: inputs analyzed,
// sample rate decided, workspace paths assigned.
type Plan struct {
	Binary       string
	ConcatFile   string
	StagedOutput string
	InputPaths   []string
	Settings     Settings
	// TotalDurationSeconds is the summed input duration, used to turn
	// encoder positions into percentages. Zero means unknown.
	TotalDurationSeconds float64
}

// Args builds the encoder argument list. The concat demuxer stitches
// the inputs, -vn drops embedded cover-art video streams, and metadata
// from the first input carries over to the output container. Progress
// is requested on the stderr pipe so a single scanner sees both the
// machine-readable stream and any diagnostics.
func (p Plan) Args() []string {
	args := []string{
		"-f", "concat",
		"-safe", "0",
		"-i", p.ConcatFile,
		"-vn",
		"-map", "0:a",
		"-map_metadata", "0",
		"-c:a", p.Settings.Codec,
		"-b:a", fmt.Sprintf("%dk", p.Settings.BitrateKbps),
	}
	if p.Settings.SampleRateHz > 0 {
		args = append(args, "-ar", strconv.Itoa(p.Settings.SampleRateHz))
	}
	if p.Settings.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(p.Settings.Channels))
	}
	args = append(args,
		"-progress", "pipe:2",
		"-nostats",
		"-y",
		p.StagedOutput,
	)
	return args
}
