// Package merge implements the audiobook merge pipeline: validate
// settings, analyze inputs, drive the encoder with live progress, and
// move the finished file into place. A run is isolated in a per-session
// staging directory and every temporary artifact is guarded so
// failures and cancellations leave nothing behind.
package merge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"bindery/internal/config"
	"bindery/internal/ffmpeg"
	"bindery/internal/guard"
	"bindery/internal/logging"
	"bindery/internal/medialist"
	"bindery/internal/progress"
	"bindery/internal/session"
	"bindery/internal/staging"
)

// BookMeta is the metadata embedded into the merged container.
type BookMeta struct {
	Title  string
	Author string
	Album  string
}

// Tagger writes book metadata into a finished container. The encoder
// already copies tags from the first input; a Tagger refines them.
type Tagger interface {
	WriteTags(ctx context.Context, path string, meta BookMeta) error
}

// Result reports a completed run.
type Result struct {
	OutputPath string
	Analysis   medialist.Analysis
	Metrics    Metrics
}

// Option configures a pipeline.
type Option func(*Pipeline)

// WithProcessor injects a custom processor (primarily for tests).
func WithProcessor(processor Processor) Option {
	return func(p *Pipeline) {
		if processor != nil {
			p.processor = processor
		}
	}
}

// WithTagger enables metadata refinement after encoding.
func WithTagger(tagger Tagger) Option {
	return func(p *Pipeline) {
		p.tagger = tagger
	}
}

// Pipeline executes merge runs against a fixed configuration.
type Pipeline struct {
	cfg       *config.Config
	logger    *slog.Logger
	processor Processor
	tagger    Tagger
}

// New constructs a pipeline.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		return nil, errors.New("merge: config required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:       cfg,
		logger:    logger,
		processor: NewShellProcessor(logger),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Run merges inputs into settings.OutputPath, reporting progress
// through notifier. The session's cancellation flag is honored at every
// stage boundary and continuously while the encoder runs. Run returns
// ErrCancelled for a cancelled run; other failures wrap the stage that
// caused them.
func (p *Pipeline) Run(ctx context.Context, sess *session.Session, inputs []string, settings Settings, notifier progress.Notifier) (Result, error) {
	emitter := progress.NewEmitter(notifier)
	logger := p.logger.With(logging.String(logging.FieldSession, sess.ID()))

	if settings.Codec == "" {
		settings.Codec = "aac"
	}
	if err := settings.Validate(); err != nil {
		emitter.Failed(err.Error())
		return Result{}, err
	}

	sess.SetProcessing(true)
	defer sess.Reset()

	started := time.Now()
	result, err := p.run(ctx, sess, inputs, settings, emitter, logger)
	if err != nil {
		if errors.Is(err, ErrCancelled) {
			logger.Info("merge cancelled")
			emitter.Cancelled("merge cancelled")
		} else {
			logger.Error("merge failed", logging.Error(err))
			emitter.Failed(err.Error())
		}
		return Result{}, err
	}

	result.Metrics.Elapsed = time.Since(started)
	logger.Info("merge completed",
		logging.String("output", result.OutputPath),
		logging.String("summary", result.Metrics.Summary()))
	emitter.Complete(result.Metrics.Summary())
	return result, nil
}

func (p *Pipeline) run(ctx context.Context, sess *session.Session, inputs []string, settings Settings, emitter *progress.Emitter, logger *slog.Logger) (Result, error) {
	if err := checkpoint(ctx, sess); err != nil {
		return Result{}, err
	}

	emitter.Analyzing(0, "analyzing inputs")
	analysis, err := medialist.Analyze(ctx, p.cfg.ProbeBinary(), inputs, func(done, total int) {
		emitter.Analyzing(float64(done)/float64(total), fmt.Sprintf("analyzed %d of %d files", done, total))
	})
	if err != nil {
		if ctx.Err() != nil && cancelled(sess) {
			return Result{}, ErrCancelled
		}
		return Result{}, fmt.Errorf("analyze inputs: %w", err)
	}
	if settings.SampleRateHz == 0 {
		settings.SampleRateHz = analysis.DominantSampleRate()
		logger.Debug("auto-selected sample rate", logging.Int("sample_rate", settings.SampleRateHz))
	}

	binary, err := ffmpeg.Locate(p.cfg.FFmpeg.Binary)
	if err != nil {
		return Result{}, err
	}

	if err := checkpoint(ctx, sess); err != nil {
		return Result{}, err
	}

	sessionDir, err := staging.EnsureSessionDir(p.cfg.Paths.StagingDir, sess.ID())
	if err != nil {
		return Result{}, err
	}
	cleanup := guard.NewCleanup(logger)
	cleanup.AddPath(sessionDir)
	defer cleanup.Close()

	concatPath := staging.ConcatPath(sessionDir)
	if err := ffmpeg.WriteConcatFile(concatPath, inputs); err != nil {
		return Result{}, err
	}

	plan := Plan{
		Binary:               binary,
		ConcatFile:           concatPath,
		StagedOutput:         staging.MergedPath(sessionDir),
		InputPaths:           inputs,
		Settings:             settings,
		TotalDurationSeconds: analysis.TotalDurationSeconds,
	}

	logger.Info("starting conversion",
		logging.Int("inputs", len(inputs)),
		logging.Float64("total_duration_s", analysis.TotalDurationSeconds),
		logging.String("binary", binary))
	if err := p.processor.Execute(ctx, plan, Run{Session: sess, Emitter: emitter, Logger: logger}); err != nil {
		return Result{}, err
	}

	if err := checkpoint(ctx, sess); err != nil {
		return Result{}, err
	}

	emitter.WritingMetadata("writing metadata")
	if p.tagger != nil {
		if err := p.tagger.WriteTags(ctx, plan.StagedOutput, bookMeta(analysis)); err != nil {
			return Result{}, fmt.Errorf("write metadata: %w", err)
		}
	}

	emitter.Finalizing("moving output into place")
	if err := os.MkdirAll(filepath.Dir(settings.OutputPath), 0o755); err != nil {
		return Result{}, fmt.Errorf("create output directory: %w", err)
	}
	if err := moveFile(plan.StagedOutput, settings.OutputPath); err != nil {
		return Result{}, err
	}

	emitter.Cleanup("removing session workspace")
	if err := cleanup.CleanupNow(); err != nil {
		logger.Warn("session workspace not fully removed", logging.Error(err))
	}

	metrics := Metrics{
		InputCount:           len(analysis.Files),
		TotalInputBytes:      analysis.TotalSizeBytes,
		InputDurationSeconds: analysis.TotalDurationSeconds,
	}
	if info, err := os.Stat(settings.OutputPath); err == nil {
		metrics.OutputBytes = info.Size()
	}

	return Result{
		OutputPath: settings.OutputPath,
		Analysis:   analysis,
		Metrics:    metrics,
	}, nil
}

func checkpoint(ctx context.Context, sess *session.Session) error {
	if cancelled(sess) {
		return ErrCancelled
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("merge aborted: %w", err)
	}
	return nil
}

func bookMeta(analysis medialist.Analysis) BookMeta {
	meta := BookMeta{}
	for _, file := range analysis.Files {
		if meta.Album == "" {
			meta.Album = file.Album
		}
		if meta.Author == "" {
			meta.Author = file.Artist
		}
	}
	meta.Title = meta.Album
	return meta
}

// moveFile renames src to dest, copying across filesystems when the
// staging directory and the destination live on different devices.
func moveFile(src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open staged output: %w", err)
	}
	defer in.Close()

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dest)
		return fmt.Errorf("copy output: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return os.Remove(src)
}
