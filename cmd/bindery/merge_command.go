package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"bindery/internal/config"
	"bindery/internal/history"
	"bindery/internal/logging"
	"bindery/internal/medialist"
	"bindery/internal/merge"
	"bindery/internal/notifications"
	"bindery/internal/preflight"
	"bindery/internal/session"
)

// audioExtensions are the input formats accepted when a directory is
// given instead of explicit files.
var audioExtensions = map[string]bool{
	".aac":  true,
	".flac": true,
	".m4a":  true,
	".m4b":  true,
	".mp3":  true,
	".ogg":  true,
	".opus": true,
	".wav":  true,
	".wma":  true,
}

type mergeFlags struct {
	output     string
	preset     string
	bitrate    int
	channels   int
	sampleRate int
	title      string
	noSort     bool
}

func newMergeCommand(ctx *commandContext) *cobra.Command {
	flags := &mergeFlags{}

	cmd := &cobra.Command{
		Use:   "merge [files or directory...]",
		Short: "Merge audio files into a single audiobook",
		Long: `Merge audio files into a single M4B audiobook.

Inputs may be individual audio files or directories, which are expanded
to the audio files they contain. Inputs are merged in natural filename
order unless --no-sort is given, in which case the argument order is
used as-is.

Press Ctrl-C once to cancel a running merge cleanly.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMerge(cmd, ctx, flags, args)
		},
	}

	cmd.Flags().StringVarP(&flags.output, "output", "o", "", "Output file path (.m4b, required)")
	cmd.Flags().StringVar(&flags.preset, "preset", "", fmt.Sprintf("Encoding preset (%s)", strings.Join(merge.PresetNames(), ", ")))
	cmd.Flags().IntVar(&flags.bitrate, "bitrate", 0, fmt.Sprintf("Audio bitrate in kbps (%d-%d)", merge.MinBitrateKbps, merge.MaxBitrateKbps))
	cmd.Flags().IntVar(&flags.channels, "channels", 0, "Output channels (1 or 2)")
	cmd.Flags().IntVar(&flags.sampleRate, "sample-rate", 0, "Output sample rate in Hz (0 = pick from inputs)")
	cmd.Flags().StringVar(&flags.title, "title", "", "Book title used in notifications")
	cmd.Flags().BoolVar(&flags.noSort, "no-sort", false, "Merge inputs in the order given instead of filename order")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

func runMerge(cmd *cobra.Command, ctx *commandContext, flags *mergeFlags, args []string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger := ctx.ensureLogger()

	inputs, err := collectInputs(args)
	if err != nil {
		return err
	}
	if !flags.noSort {
		medialist.SortPaths(inputs)
	}

	settings, err := buildSettings(cfg.FFmpeg.DefaultPreset, flags)
	if err != nil {
		return err
	}

	results := preflight.RunAll(cmd.Context(), cfg)
	if !preflight.Passed(results) {
		out := cmd.ErrOrStderr()
		colorize := shouldColorize(out)
		for _, result := range results {
			kind := statusOK
			if !result.Passed {
				kind = statusError
			}
			fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
		}
		return errors.New("preflight checks failed")
	}

	sess := session.New()
	runCtx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stopSignals := watchInterrupts(sess, cancel, cmd.ErrOrStderr())
	defer stopSignals()

	renderer := newProgressRenderer(cmd.OutOrStdout())
	defer renderer.Finish()

	title := bookTitle(flags.title, settings.OutputPath)
	notifier := notifications.NewService(cfg)
	if err := notifier.NotifyMergeStarted(runCtx, title, len(inputs)); err != nil {
		logger.Warn("start notification failed", logging.Error(err))
	}

	pipeline, err := merge.New(cfg, logger)
	if err != nil {
		return err
	}

	result, runErr := pipeline.Run(runCtx, sess, inputs, settings, renderer)
	renderer.Finish()
	stopSignals()

	recordHistory(cmd.Context(), cfg, logger, sess.ID(), settings.OutputPath, len(inputs), result, runErr)

	// Outcome notifications use a fresh context; the run context may
	// already be cancelled.
	notifyCtx := context.Background()
	switch {
	case runErr == nil:
		if err := notifier.NotifyMergeCompleted(notifyCtx, title, result.Metrics.Summary()); err != nil {
			logger.Warn("completion notification failed", logging.Error(err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Merged %s\n%s\n", result.OutputPath, result.Metrics.Summary())
		return nil
	case errors.Is(runErr, merge.ErrCancelled):
		if err := notifier.NotifyMergeCancelled(notifyCtx, title); err != nil {
			logger.Warn("cancellation notification failed", logging.Error(err))
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Merge cancelled.")
		return nil
	default:
		if err := notifier.NotifyMergeFailed(notifyCtx, title, runErr); err != nil {
			logger.Warn("failure notification failed", logging.Error(err))
		}
		return runErr
	}
}

// watchInterrupts requests cooperative cancellation on the first
// interrupt and hard-cancels the context on the second. The returned
// stop function releases the signal handler.
func watchInterrupts(sess *session.Session, cancel context.CancelFunc, out io.Writer) func() {
	signals := make(chan os.Signal, 2)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		interrupted := false
		for {
			select {
			case <-done:
				return
			case <-signals:
				if !interrupted {
					interrupted = true
					sess.Cancel()
					fmt.Fprintln(out, "\nCancelling... press Ctrl-C again to force quit")
					continue
				}
				cancel()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(signals)
			close(done)
		})
	}
}

func collectInputs(args []string) ([]string, error) {
	var inputs []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("input %q: %w", arg, err)
		}
		if !info.IsDir() {
			inputs = append(inputs, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("read directory %q: %w", arg, err)
		}
		found := 0
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if audioExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
				inputs = append(inputs, filepath.Join(arg, entry.Name()))
				found++
			}
		}
		if found == 0 {
			return nil, fmt.Errorf("directory %q contains no audio files", arg)
		}
	}
	if len(inputs) == 0 {
		return nil, errors.New("no input files")
	}
	return inputs, nil
}

// buildSettings starts from a preset and applies explicit flag
// overrides on top.
func buildSettings(defaultPreset string, flags *mergeFlags) (merge.Settings, error) {
	preset := strings.TrimSpace(flags.preset)
	if preset == "" {
		preset = defaultPreset
	}
	settings, err := merge.PresetSettings(preset)
	if err != nil {
		return merge.Settings{}, err
	}
	if flags.bitrate != 0 {
		settings.BitrateKbps = flags.bitrate
	}
	if flags.channels != 0 {
		settings.Channels = flags.channels
	}
	if flags.sampleRate != 0 {
		settings.SampleRateHz = flags.sampleRate
	}
	settings.OutputPath = flags.output
	return settings, nil
}

func bookTitle(flag, outputPath string) string {
	if title := strings.TrimSpace(flag); title != "" {
		return title
	}
	base := filepath.Base(outputPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// recordHistory persists the run outcome when history is enabled.
// Recording failures are logged, never surfaced: the merge result
// matters more than the bookkeeping.
func recordHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger, sessionID, outputPath string, inputCount int, result merge.Result, runErr error) {
	if !cfg.History.Enabled {
		return
	}
	store, err := history.Open(cfg.History.Path)
	if err != nil {
		logger.Warn("history unavailable", logging.Error(err))
		return
	}
	defer store.Close()

	record := history.Record{
		SessionID:  sessionID,
		OutputPath: outputPath,
		Status:     history.StatusCompleted,
		InputCount: inputCount,
	}
	switch {
	case runErr == nil:
		record.InputBytes = result.Metrics.TotalInputBytes
		record.OutputBytes = result.Metrics.OutputBytes
		record.DurationSeconds = result.Metrics.InputDurationSeconds
		record.ElapsedSeconds = result.Metrics.Elapsed.Seconds()
	case errors.Is(runErr, merge.ErrCancelled):
		record.Status = history.StatusCancelled
	default:
		record.Status = history.StatusFailed
		record.ErrorMessage = runErr.Error()
	}

	if _, err := store.Add(ctx, record); err != nil {
		logger.Warn("history record not written", logging.Error(err))
	}
}
