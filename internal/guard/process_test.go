package guard

import (
	"errors"
	"io"
	"os/exec"
	"testing"
	"time"
)

func startCommand(t *testing.T, name string, args ...string) *exec.Cmd {
	t.Helper()
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start %s: %v", name, err)
	}
	return cmd
}

func TestProcessWaitConsumesOnce(t *testing.T) {
	cmd := startCommand(t, "true")
	p := NewProcess(cmd, nil)

	if err := p.Wait(); err != nil {
		t.Fatalf("first Wait: %v", err)
	}
	if err := p.Wait(); !errors.Is(err, ErrProcessConsumed) {
		t.Fatalf("second Wait = %v, want ErrProcessConsumed", err)
	}
}

func TestProcessWaitReturnsExitError(t *testing.T) {
	cmd := startCommand(t, "false")
	p := NewProcess(cmd, nil)

	err := p.Wait()
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("Wait = %v, want *exec.ExitError", err)
	}
}

func TestProcessTerminateKillsRunningProcess(t *testing.T) {
	cmd := startCommand(t, "sleep", "30")
	p := NewProcess(cmd, nil)

	if !p.Running() {
		t.Fatal("process reported not running immediately after start")
	}
	start := time.Now()
	if err := p.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("Terminate took %s", elapsed)
	}
	if p.Running() {
		t.Fatal("process still running after Terminate")
	}
	// Idempotent on a dead process.
	if err := p.Terminate(); err != nil {
		t.Fatalf("second Terminate: %v", err)
	}
}

func TestPipedProcessKeepsPipeOpenUntilReadsFinish(t *testing.T) {
	cmd := exec.Command("sh", "-c", `head -c 200000 /dev/zero | tr '\0' a 1>&2`)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.Fatalf("stderr pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start sh: %v", err)
	}
	p := NewPipedProcess(cmd, nil)

	// Read deliberately slowly; exit collection must not close the pipe
	// underneath the reader even after the process exits.
	total := 0
	buf := make([]byte, 16384)
	for {
		n, readErr := stderr.Read(buf)
		total += n
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			t.Fatalf("read stderr after %d bytes: %v", total, readErr)
		}
		time.Sleep(5 * time.Millisecond)
	}
	if total != 200000 {
		t.Fatalf("read %d of 200000 bytes", total)
	}
	if err := p.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
}

func TestPipedProcessTerminateDoesNotBlockOnPendingReads(t *testing.T) {
	cmd := exec.Command("sh", "-c", `sleep 30 1>&2`)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.Fatalf("stderr pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start sh: %v", err)
	}
	p := NewPipedProcess(cmd, nil)

	start := time.Now()
	if err := p.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Terminate blocked for %s with reads pending", elapsed)
	}

	if _, err := io.ReadAll(stderr); err != nil {
		t.Fatalf("drain stderr: %v", err)
	}
	var exitErr *exec.ExitError
	if err := p.Wait(); !errors.As(err, &exitErr) {
		t.Fatalf("Wait = %v, want *exec.ExitError from the kill", err)
	}
}

func TestProcessCloseTerminatesAbandonedProcess(t *testing.T) {
	cmd := startCommand(t, "sleep", "30")
	p := NewProcess(cmd, nil)

	p.Close()
	if p.Running() {
		t.Fatal("process still running after Close")
	}
}

func TestProcessDisableLeavesProcessAlone(t *testing.T) {
	cmd := startCommand(t, "sleep", "2")
	p := NewProcess(cmd, nil)

	p.Disable()
	p.Close()
	if !p.Running() {
		t.Fatal("disabled guard terminated the process")
	}

	p.Enable()
	p.Close()
	if p.Running() {
		t.Fatal("re-enabled guard did not terminate the process")
	}
}
