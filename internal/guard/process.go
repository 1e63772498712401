package guard

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"bindery/internal/logging"
)

// ErrProcessConsumed is returned when Wait is called on a process whose
// exit status has already been collected.
var ErrProcessConsumed = errors.New("process already consumed")

const (
	terminatePollAttempts = 20
	terminatePollInterval = 100 * time.Millisecond
)

// Process supervises a started external command. Exactly one caller may
// collect its exit status through Wait; Terminate and Close provide the
// forced-shutdown paths for cancellation and scope exit.
type Process struct {
	cmd     *exec.Cmd
	done    chan struct{}
	release chan struct{}
	relOnce sync.Once
	logger  *slog.Logger

	mu        sync.Mutex
	waitErr   error
	finished  bool
	consumed  bool
	disabled  bool
	abandoned bool
}

// NewProcess wraps cmd, which must already have been started. The guard
// immediately begins collecting the exit status so it is never lost,
// even when the caller abandons the process. Use NewPipedProcess when
// the caller streams the command's stdout or stderr.
func NewProcess(cmd *exec.Cmd, logger *slog.Logger) *Process {
	p := NewPipedProcess(cmd, logger)
	p.FinishReads()
	return p
}

// NewPipedProcess wraps a started cmd whose pipes the caller is still
// reading. Exit collection is held back until FinishReads (or Wait)
// because the runtime closes pipe read ends when the status is
// collected, which would truncate in-flight output.
func NewPipedProcess(cmd *exec.Cmd, logger *slog.Logger) *Process {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Process{
		cmd:     cmd,
		done:    make(chan struct{}),
		release: make(chan struct{}),
		logger:  logger,
	}
	go func() {
		<-p.release
		err := cmd.Wait()
		p.mu.Lock()
		p.waitErr = err
		p.finished = true
		p.mu.Unlock()
		close(p.done)
	}()
	return p
}

// FinishReads signals that the caller has drained the process's pipes
// and exit collection may proceed. Safe to call more than once.
func (p *Process) FinishReads() {
	p.relOnce.Do(func() { close(p.release) })
}

// Wait blocks until the process exits and returns its wait error. The
// caller must have finished reading any pipes first; Wait releases exit
// collection itself. The exit status can be collected only once; later
// calls return ErrProcessConsumed.
func (p *Process) Wait() error {
	p.mu.Lock()
	if p.consumed {
		p.mu.Unlock()
		return ErrProcessConsumed
	}
	p.consumed = true
	p.mu.Unlock()

	p.FinishReads()
	<-p.done

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Running reports whether the process is still alive.
func (p *Process) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.finished
}

// Terminate kills the process. When exit collection has been released
// it also waits for the status to be reaped, polling for a bounded
// interval; a process that outlives the budget is logged and abandoned
// so later calls are no-ops. Terminating a process that already exited
// returns nil.
func (p *Process) Terminate() error {
	p.mu.Lock()
	if p.finished || p.abandoned {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill process: %w", err)
	}

	select {
	case <-p.release:
	default:
		// Pipes are still being drained. The kill closes the child's
		// end, the reader hits EOF shortly, and Wait collects the exit.
		return nil
	}

	for attempt := 0; attempt < terminatePollAttempts; attempt++ {
		select {
		case <-p.done:
			return nil
		case <-time.After(terminatePollInterval):
		}
	}

	p.mu.Lock()
	p.abandoned = true
	p.mu.Unlock()
	p.logger.Warn("process did not exit after kill; abandoning",
		logging.Int("pid", p.cmd.Process.Pid),
		logging.Duration("budget", time.Duration(terminatePollAttempts)*terminatePollInterval))
	return nil
}

// Disable turns the guard off so Close leaves the process alone.
func (p *Process) Disable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled = true
}

// Enable re-arms a disabled guard.
func (p *Process) Enable() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled = false
}

// Close is the defer path: it terminates the process if it is still
// running and the guard is armed. Errors are logged, never returned.
func (p *Process) Close() {
	p.mu.Lock()
	disabled := p.disabled
	finished := p.finished
	p.mu.Unlock()
	if disabled || finished {
		return
	}
	p.logger.Warn("terminating abandoned process",
		logging.Int("pid", p.cmd.Process.Pid))
	p.FinishReads()
	if err := p.Terminate(); err != nil {
		p.logger.Error("failed to terminate process", logging.Error(err))
	}
}
