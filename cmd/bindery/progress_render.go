package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"bindery/internal/progress"
)

var titleCaser = cases.Title(language.Und)

// formatStageLabel turns "writing_metadata" into "Writing Metadata".
func formatStageLabel(stage progress.Stage) string {
	raw := strings.TrimSpace(string(stage))
	if raw == "" {
		return "Working"
	}
	parts := strings.FieldsFunc(raw, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(parts) == 0 {
		return "Working"
	}
	for i, part := range parts {
		parts[i] = titleCaser.String(part)
	}
	return strings.Join(parts, " ")
}

// progressRenderer writes merge progress events to a terminal. On a TTY
// it rewrites a single line in place; otherwise it prints a plain line
// whenever the stage changes or the percentage advances a whole point.
type progressRenderer struct {
	mu        sync.Mutex
	out       io.Writer
	tty       bool
	lastStage progress.Stage
	lastWhole int
	lineOpen  bool
}

func newProgressRenderer(out io.Writer) *progressRenderer {
	return &progressRenderer{out: out, tty: shouldColorize(out), lastWhole: -1}
}

func (r *progressRenderer) Notify(event progress.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := r.formatEvent(event)
	if r.tty {
		fmt.Fprintf(r.out, "\r\x1b[2K%s", line)
		r.lineOpen = true
		if terminalStage(event.Stage) {
			fmt.Fprintln(r.out)
			r.lineOpen = false
		}
		r.lastStage = event.Stage
		r.lastWhole = int(event.Percent)
		return
	}

	whole := int(event.Percent)
	if event.Stage == r.lastStage && whole == r.lastWhole {
		return
	}
	fmt.Fprintln(r.out, line)
	r.lastStage = event.Stage
	r.lastWhole = whole
}

// Finish closes any in-place line so later output starts fresh.
func (r *progressRenderer) Finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lineOpen {
		fmt.Fprintln(r.out)
		r.lineOpen = false
	}
}

func (r *progressRenderer) formatEvent(event progress.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %5.1f%%", formatStageLabel(event.Stage), event.Percent)
	if event.ETASeconds != nil {
		fmt.Fprintf(&b, "  ETA %s", progress.FormatETA(*event.ETASeconds))
	}
	if event.CurrentFile != "" {
		fmt.Fprintf(&b, "  %s", event.CurrentFile)
	} else if event.Message != "" {
		fmt.Fprintf(&b, "  %s", event.Message)
	}
	return b.String()
}

func terminalStage(stage progress.Stage) bool {
	switch stage {
	case progress.StageCompleted, progress.StageFailed, progress.StageCancelled:
		return true
	}
	return false
}
