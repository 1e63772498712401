package ffmpeg

import (
	"regexp"
	"strconv"
	"strings"
)

// ProgressKind classifies a line of ffmpeg -progress output.
type ProgressKind int

const (
	// ProgressNone means the line carried no position information.
	ProgressNone ProgressKind = iota
	// ProgressTime means the line carried an output position.
	ProgressTime
	// ProgressEnd means ffmpeg reported the run complete.
	ProgressEnd
)

var statsTimePattern = regexp.MustCompile(`time=(\d+):(\d{2}):(\d{2})(?:\.(\d+))?`)

// ParseProgress extracts the output position from one line of ffmpeg
// progress output. It understands the key=value stream produced by
// -progress (out_time_us and the progress terminator) and falls back
// to the time= field of the human-readable stats line for builds that
// do not emit microsecond positions.
func ParseProgress(line string) (seconds float64, kind ProgressKind) {
	trimmed := strings.TrimSpace(line)

	if value, ok := strings.CutPrefix(trimmed, "out_time_us="); ok {
		micros, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil || micros < 0 {
			return 0, ProgressNone
		}
		return float64(micros) / 1e6, ProgressTime
	}

	if value, ok := strings.CutPrefix(trimmed, "progress="); ok {
		if strings.TrimSpace(value) == "end" {
			return 0, ProgressEnd
		}
		return 0, ProgressNone
	}

	if match := statsTimePattern.FindStringSubmatch(trimmed); match != nil {
		hours, _ := strconv.ParseFloat(match[1], 64)
		minutes, _ := strconv.ParseFloat(match[2], 64)
		secs, _ := strconv.ParseFloat(match[3], 64)
		total := hours*3600 + minutes*60 + secs
		if match[4] != "" {
			frac, _ := strconv.ParseFloat("0."+match[4], 64)
			total += frac
		}
		return total, ProgressTime
	}

	return 0, ProgressNone
}

// ParseSpeed extracts the encode speed multiplier from a "speed=1.23x"
// field, if the line carries one.
func ParseSpeed(line string) (float64, bool) {
	idx := strings.Index(line, "speed=")
	if idx < 0 {
		return 0, false
	}
	fields := strings.Fields(line[idx+len("speed="):])
	if len(fields) == 0 {
		return 0, false
	}
	value := strings.TrimSuffix(fields[0], "x")
	speed, err := strconv.ParseFloat(value, 64)
	if err != nil || speed <= 0 {
		return 0, false
	}
	return speed, true
}

// fatalMarkers identify stderr lines that mean the run cannot succeed
// and should be aborted without waiting for the exit code.
var fatalMarkers = []string{
	"No such file",
	"Invalid data",
}

// IsFatalLine reports whether a stderr line indicates an unrecoverable
// input problem.
func IsFatalLine(line string) bool {
	for _, marker := range fatalMarkers {
		if strings.Contains(line, marker) {
			return true
		}
	}
	return false
}

// IsErrorLine reports whether a stderr line should be collected as
// diagnostic context. Stream-mapping banners mention "Output" and
// "Input" and routinely contain the word "error" in codec names, so
// they are excluded.
func IsErrorLine(line string) bool {
	lowered := strings.ToLower(line)
	if !strings.Contains(lowered, "error") {
		return false
	}
	if strings.Contains(line, "Output") || strings.Contains(line, "Input") {
		return false
	}
	return true
}
