package merge

import (
	"fmt"
	"time"
)

// Metrics summarize a completed merge run.
type Metrics struct {
	InputCount           int
	TotalInputBytes      int64
	OutputBytes          int64
	InputDurationSeconds float64
	Elapsed              time.Duration
}

// RealtimeFactor is how many seconds of audio were processed per second
// of wall time. Zero when either side is unknown.
func (m Metrics) RealtimeFactor() float64 {
	if m.Elapsed <= 0 || m.InputDurationSeconds <= 0 {
		return 0
	}
	return m.InputDurationSeconds / m.Elapsed.Seconds()
}

// CompressionRatio is input size over output size. Zero when unknown.
func (m Metrics) CompressionRatio() float64 {
	if m.OutputBytes <= 0 || m.TotalInputBytes <= 0 {
		return 0
	}
	return float64(m.TotalInputBytes) / float64(m.OutputBytes)
}

// Summary renders a one-line report for logs and notifications.
func (m Metrics) Summary() string {
	return fmt.Sprintf("%d files, %.1f MB in, %.1f MB out (%.1fx compression) in %s (%.1fx realtime)",
		m.InputCount,
		float64(m.TotalInputBytes)/(1024*1024),
		float64(m.OutputBytes)/(1024*1024),
		m.CompressionRatio(),
		m.Elapsed.Round(time.Second),
		m.RealtimeFactor(),
	)
}
