package merge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bindery/internal/config"
	"bindery/internal/progress"
	"bindery/internal/session"
	"bindery/internal/staging"
)

// writeScript creates an executable shell script in dir.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

const probeJSON = `{
  "streams": [{"codec_type": "audio", "codec_name": "mp3", "sample_rate": "44100", "channels": 1}],
  "format": {"duration": "30.0", "size": "1000"}
}`

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StagingDir = filepath.Join(dir, "staging")
	cfg.Paths.LogDir = filepath.Join(dir, "logs")
	cfg.FFmpeg.Binary = writeScript(t, dir, "ffmpeg", "exit 0\n")
	cfg.FFmpeg.ProbeBinary = writeScript(t, dir, "ffprobe", "cat <<'JSON'\n"+probeJSON+"\nJSON\n")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatal(err)
	}
	return &cfg
}

func newInputs(t *testing.T, count int) []string {
	t.Helper()
	dir := t.TempDir()
	inputs := make([]string, 0, count)
	for i := 0; i < count; i++ {
		path := filepath.Join(dir, "ch"+string(rune('1'+i))+".mp3")
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			t.Fatal(err)
		}
		inputs = append(inputs, path)
	}
	return inputs
}

// fakeProcessor stands in for the encoder: it records the plan and
// produces the staged output file.
type fakeProcessor struct {
	plan Plan
	err  error
}

func (f *fakeProcessor) Execute(ctx context.Context, plan Plan, run Run) error {
	f.plan = plan
	if f.err != nil {
		return f.err
	}
	run.Emitter.Converting(0.5, "converting audio", "", nil)
	return os.WriteFile(plan.StagedOutput, []byte("merged audio"), 0o644)
}

func TestPipelineRunHappyPath(t *testing.T) {
	cfg := newTestConfig(t)
	inputs := newInputs(t, 2)
	output := filepath.Join(t.TempDir(), "book.m4b")

	proc := &fakeProcessor{}
	pipeline, err := New(cfg, nil, WithProcessor(proc))
	if err != nil {
		t.Fatal(err)
	}

	sink := &eventSink{}
	sess := session.New()
	settings := Settings{BitrateKbps: 64, Channels: 1, OutputPath: output}

	result, err := pipeline.Run(context.Background(), sess, inputs, settings, sink)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	data, err := os.ReadFile(output)
	if err != nil || string(data) != "merged audio" {
		t.Fatalf("output not moved into place: %v", err)
	}

	// The staged workspace must be gone.
	sessionDir := staging.SessionDir(cfg.Paths.StagingDir, sess.ID())
	if _, err := os.Stat(sessionDir); !os.IsNotExist(err) {
		t.Fatalf("session directory %q survived the run", sessionDir)
	}

	// The plan fed to the processor reflects the analysis.
	if proc.plan.TotalDurationSeconds != 60 {
		t.Fatalf("plan total duration = %v, want 60", proc.plan.TotalDurationSeconds)
	}
	if proc.plan.Settings.SampleRateHz != 44100 {
		t.Fatalf("auto sample rate = %d, want 44100", proc.plan.Settings.SampleRateHz)
	}
	if proc.plan.ConcatFile != staging.ConcatPath(sessionDir) {
		t.Fatalf("concat file = %q", proc.plan.ConcatFile)
	}

	if result.Metrics.InputCount != 2 || result.Metrics.OutputBytes == 0 {
		t.Fatalf("metrics = %+v", result.Metrics)
	}

	stages := sink.stages()
	last := stages[len(stages)-1]
	if last != progress.StageCompleted {
		t.Fatalf("final stage = %v, want completed", last)
	}
	finalPercent := sink.events[len(sink.events)-1].Percent
	if finalPercent != 100 {
		t.Fatalf("final percent = %v, want 100", finalPercent)
	}
	if sess.IsProcessing() {
		t.Fatal("session still marked processing after run")
	}
}

func TestPipelineRunRejectsInvalidSettings(t *testing.T) {
	cfg := newTestConfig(t)
	pipeline, err := New(cfg, nil, WithProcessor(&fakeProcessor{}))
	if err != nil {
		t.Fatal(err)
	}

	sink := &eventSink{}
	settings := Settings{BitrateKbps: 999, Channels: 1, OutputPath: "/out/book.m4b"}
	_, err = pipeline.Run(context.Background(), session.New(), newInputs(t, 1), settings, sink)
	if !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("err = %v, want ErrInvalidSettings", err)
	}
	if stages := sink.stages(); len(stages) == 0 || stages[len(stages)-1] != progress.StageFailed {
		t.Fatalf("stages = %v, want trailing failed event", stages)
	}
}

func TestPipelineRunCleansUpOnFailure(t *testing.T) {
	cfg := newTestConfig(t)
	inputs := newInputs(t, 1)

	proc := &fakeProcessor{err: errors.New("boom")}
	pipeline, err := New(cfg, nil, WithProcessor(proc))
	if err != nil {
		t.Fatal(err)
	}

	sink := &eventSink{}
	sess := session.New()
	settings := Settings{BitrateKbps: 64, Channels: 1, OutputPath: filepath.Join(t.TempDir(), "book.m4b")}

	_, err = pipeline.Run(context.Background(), sess, inputs, settings, sink)
	if err == nil {
		t.Fatal("expected error")
	}

	sessionDir := staging.SessionDir(cfg.Paths.StagingDir, sess.ID())
	if _, statErr := os.Stat(sessionDir); !os.IsNotExist(statErr) {
		t.Fatalf("session directory %q survived the failure", sessionDir)
	}
	if stages := sink.stages(); stages[len(stages)-1] != progress.StageFailed {
		t.Fatalf("final stage = %v, want failed", stages[len(stages)-1])
	}
}

func TestPipelineRunCancelledBeforeStart(t *testing.T) {
	cfg := newTestConfig(t)
	pipeline, err := New(cfg, nil, WithProcessor(&fakeProcessor{}))
	if err != nil {
		t.Fatal(err)
	}

	sess := session.New()
	sess.SetProcessing(true)
	sess.Cancel()

	sink := &eventSink{}
	settings := Settings{BitrateKbps: 64, Channels: 1, OutputPath: filepath.Join(t.TempDir(), "book.m4b")}
	_, err = pipeline.Run(context.Background(), sess, newInputs(t, 1), settings, sink)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if stages := sink.stages(); stages[len(stages)-1] != progress.StageCancelled {
		t.Fatalf("final stage = %v, want cancelled", stages[len(stages)-1])
	}
}

func TestPipelineRunCancelledDuringConversion(t *testing.T) {
	cfg := newTestConfig(t)
	pipeline, err := New(cfg, nil, WithProcessor(&fakeProcessor{err: ErrCancelled}))
	if err != nil {
		t.Fatal(err)
	}

	sink := &eventSink{}
	settings := Settings{BitrateKbps: 64, Channels: 1, OutputPath: filepath.Join(t.TempDir(), "book.m4b")}
	_, err = pipeline.Run(context.Background(), session.New(), newInputs(t, 1), settings, sink)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("err = %v, want ErrCancelled", err)
	}
	if stages := sink.stages(); stages[len(stages)-1] != progress.StageCancelled {
		t.Fatalf("final stage = %v, want cancelled", stages[len(stages)-1])
	}
}

func TestPipelineRunEmitsMonotonicStages(t *testing.T) {
	cfg := newTestConfig(t)
	pipeline, err := New(cfg, nil, WithProcessor(&fakeProcessor{}))
	if err != nil {
		t.Fatal(err)
	}

	sink := &eventSink{}
	settings := Settings{BitrateKbps: 64, Channels: 1, OutputPath: filepath.Join(t.TempDir(), "book.m4b")}
	if _, err := pipeline.Run(context.Background(), session.New(), newInputs(t, 2), settings, sink); err != nil {
		t.Fatal(err)
	}

	last := 0.0
	for i, event := range sink.events {
		if event.Percent < last {
			t.Fatalf("event %d (%s) percent %v regressed below %v", i, event.Stage, event.Percent, last)
		}
		last = event.Percent
	}
}
