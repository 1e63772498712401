package merge

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"bindery/internal/ffmpeg"
	"bindery/internal/guard"
	"bindery/internal/logging"
	"bindery/internal/progress"
	"bindery/internal/session"
)

// commandContext is a test seam for command construction.
var commandContext = exec.CommandContext

const (
	// minProgressUpdates gates duration estimation: the first few
	// encoder positions are too jumpy to extrapolate from.
	minProgressUpdates = 5
	// initialEstimateMultiplier sizes the first total-duration guess
	// when the inputs could not be measured. Deliberately pessimistic
	// so the percentage starts low and only climbs.
	initialEstimateMultiplier = 10
	// cancelPollInterval is how often a quiet encode is checked for a
	// cancellation request.
	cancelPollInterval = 100 * time.Millisecond
	// errorTailSize bounds the stderr diagnostics attached to a
	// failure.
	errorTailSize = 8
)

// Run bundles the per-run collaborators a processor reports through.
type Run struct {
	Session *session.Session
	Emitter *progress.Emitter
	Logger  *slog.Logger
}

// Processor executes a resolved merge plan.
type Processor interface {
	Execute(ctx context.Context, plan Plan, run Run) error
}

// ShellProcessor drives a real ffmpeg process and translates its
// progress stream into emitter updates.
type ShellProcessor struct {
	logger *slog.Logger
}

// NewShellProcessor returns a processor logging through logger. A nil
// logger suppresses output.
func NewShellProcessor(logger *slog.Logger) *ShellProcessor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ShellProcessor{logger: logger}
}

// Execute runs the encoder to completion, or until the run's session is
// cancelled. Cancellation kills the process and returns ErrCancelled;
// every other abnormal end returns an error wrapping ErrConversion.
func (p *ShellProcessor) Execute(ctx context.Context, plan Plan, run Run) error {
	logger := run.Logger
	if logger == nil {
		logger = p.logger
	}

	cmd := commandContext(ctx, plan.Binary, plan.Args()...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: stderr pipe: %v", ErrConversion, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: start %s: %v", ErrConversion, plan.Binary, err)
	}

	proc := guard.NewPipedProcess(cmd, logger)
	defer proc.Close()

	// A silent encoder produces no lines to check cancellation on, so
	// a watcher polls the session and kills the process out of band.
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		ticker := time.NewTicker(cancelPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-watcherDone:
				return
			case <-ctx.Done():
				_ = proc.Terminate()
				return
			case <-ticker.C:
				if run.Session != nil && run.Session.IsCancelled() {
					_ = proc.Terminate()
					return
				}
			}
		}
	}()

	monitor := newMonitor(plan, run.Emitter)
	var errorTail []string
	var fatalLine string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()

		if cancelled(run.Session) {
			_ = proc.Terminate()
			break
		}

		if ffmpeg.IsFatalLine(line) {
			logger.Error("encoder reported fatal input error", logging.String("line", line))
			fatalLine = strings.TrimSpace(line)
			_ = proc.Terminate()
			break
		}
		if ffmpeg.IsErrorLine(line) {
			errorTail = appendTail(errorTail, strings.TrimSpace(line))
		}

		monitor.observe(line)
	}
	scanErr := scanner.Err()

	// The scanner is done with the pipe, so exit collection is safe now.
	waitErr := proc.Wait()

	if cancelled(run.Session) {
		return ErrCancelled
	}
	if fatalLine != "" {
		return fmt.Errorf("%w: %s", ErrConversion, fatalLine)
	}
	if scanErr != nil {
		return fmt.Errorf("%w: read progress: %v", ErrConversion, scanErr)
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrConversion, ctx.Err())
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			detail := strings.Join(errorTail, "; ")
			if detail == "" {
				detail = "no diagnostics captured"
			}
			return fmt.Errorf("%w: encoder exited with code %d: %s",
				ErrConversion, exitErr.ExitCode(), detail)
		}
		return fmt.Errorf("%w: %v", ErrConversion, waitErr)
	}
	return nil
}

func cancelled(sess *session.Session) bool {
	return sess != nil && sess.IsCancelled()
}

func appendTail(tail []string, line string) []string {
	tail = append(tail, line)
	if len(tail) > errorTailSize {
		tail = tail[len(tail)-errorTailSize:]
	}
	return tail
}

// monitor converts raw encoder output lines into converting-stage
// emitter updates.
type monitor struct {
	emitter *progress.Emitter
	total   float64

	updates      int
	estimated    float64
	lastSpeed    float64
	lastPosition float64
}

func newMonitor(plan Plan, emitter *progress.Emitter) *monitor {
	return &monitor{emitter: emitter, total: plan.TotalDurationSeconds}
}

func (m *monitor) observe(line string) {
	if m.emitter == nil {
		return
	}
	if speed, ok := ffmpeg.ParseSpeed(line); ok {
		m.lastSpeed = speed
	}

	seconds, kind := ffmpeg.ParseProgress(line)
	switch kind {
	case ffmpeg.ProgressEnd:
		// The boundary jump to the next stage belongs to the pipeline.
	case ffmpeg.ProgressTime:
		// Only positions that advanced count as updates; repeated
		// identical positions would otherwise pace the fallback creep.
		if seconds <= m.lastPosition {
			return
		}
		m.lastPosition = seconds
		m.updates++
		fraction, ok := m.fraction(seconds)
		if !ok {
			m.emitter.ConvertingFallback(m.updates, "converting audio")
			return
		}
		m.emitter.Converting(fraction, "converting audio", "", m.eta(seconds))
	}
}

func (m *monitor) fraction(position float64) (float64, bool) {
	if m.total > 0 {
		return position / m.total, true
	}
	if m.updates <= minProgressUpdates {
		return 0, false
	}
	if estimate := position * initialEstimateMultiplier; estimate > m.estimated {
		m.estimated = estimate
	}
	if m.estimated <= 0 {
		return 0, false
	}
	return position / m.estimated, true
}

// eta estimates remaining wall time from the last reported speed. It
// returns nil when nothing remains or no basis for an estimate exists;
// an absent ETA reads better than a lingering zero.
func (m *monitor) eta(position float64) *float64 {
	total := m.total
	if total <= 0 {
		total = m.estimated
	}
	if total <= 0 || m.lastSpeed <= 0 {
		return nil
	}
	remaining := total - position
	if remaining <= 0 {
		return nil
	}
	eta := remaining / m.lastSpeed
	return &eta
}
