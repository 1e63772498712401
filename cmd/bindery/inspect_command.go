package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"bindery/internal/medialist"
)

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var noSort bool

	cmd := &cobra.Command{
		Use:   "inspect [files or directory...]",
		Short: "Show stream details and tags for audio files",
		Long: `Inspect audio files without merging them.

Prints one row per file with its duration, sample rate, channel count,
codec, and size, plus totals and the sample rate a merge would pick
automatically.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			inputs, err := collectInputs(args)
			if err != nil {
				return err
			}
			if !noSort {
				medialist.SortPaths(inputs)
			}

			analysis, err := medialist.Analyze(cmd.Context(), cfg.ProbeBinary(), inputs, nil)
			if err != nil {
				return err
			}

			headers := []string{"File", "Duration", "Rate", "Ch", "Codec", "Size"}
			aligns := []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignLeft, alignRight}
			rows := make([][]string, 0, len(analysis.Files))
			for _, file := range analysis.Files {
				rows = append(rows, []string{
					filepath.Base(file.Path),
					formatDuration(file.DurationSeconds),
					fmt.Sprintf("%d Hz", file.SampleRateHz),
					fmt.Sprintf("%d", file.Channels),
					file.Codec,
					formatSize(file.SizeBytes),
				})
			}
			footer := []string{
				fmt.Sprintf("%d files", len(analysis.Files)),
				formatDuration(analysis.TotalDurationSeconds),
				"", "", "",
				formatSize(analysis.TotalSizeBytes),
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(headers, rows, footer, aligns))
			fmt.Fprintf(out, "Auto sample rate: %d Hz\n", analysis.DominantSampleRate())
			return nil
		},
	}

	cmd.Flags().BoolVar(&noSort, "no-sort", false, "List inputs in the order given instead of filename order")

	return cmd
}

// formatDuration renders seconds as H:MM:SS.
func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}

func formatSize(bytes int64) string {
	const mib = 1024 * 1024
	return fmt.Sprintf("%.1f MB", float64(bytes)/mib)
}
