package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bindery/internal/staging"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var (
		maxAgeHours int
		list        bool
	)

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale session directories from the staging area",
		Long: `Remove leftover session directories from crashed or killed runs.

Only directories older than the age threshold are removed; a live merge
keeps touching its session directory, so age is a safe signal. Use
--list to see what is in the staging area without removing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if list {
				dirs, err := staging.ListDirectories(cfg.Paths.StagingDir)
				if err != nil {
					return err
				}
				if len(dirs) == 0 {
					fmt.Fprintln(out, "Staging area is empty.")
					return nil
				}
				headers := []string{"Session", "Age", "Size"}
				aligns := []columnAlignment{alignLeft, alignRight, alignRight}
				rows := make([][]string, 0, len(dirs))
				for _, dir := range dirs {
					rows = append(rows, []string{
						dir.Name,
						time.Since(dir.ModTime).Round(time.Minute).String(),
						formatSize(dir.Size),
					})
				}
				fmt.Fprintln(out, renderTable(headers, rows, nil, aligns))
				return nil
			}

			hours := maxAgeHours
			if !cmd.Flags().Changed("max-age") {
				hours = cfg.Staging.MaxAgeHours
			}
			maxAge := time.Duration(hours) * time.Hour

			result := staging.CleanStale(cmd.Context(), cfg.Paths.StagingDir, maxAge, ctx.ensureLogger())
			for _, removed := range result.Removed {
				fmt.Fprintf(out, "removed %s\n", removed)
			}
			for _, failure := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "failed to remove %s: %v\n", failure.Path, failure.Error)
			}
			fmt.Fprintf(out, "Removed %d stale session directories.\n", len(result.Removed))
			if len(result.Errors) > 0 {
				return fmt.Errorf("%d directories could not be removed", len(result.Errors))
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxAgeHours, "max-age", 24, "Age threshold in hours")
	cmd.Flags().BoolVar(&list, "list", false, "List session directories instead of removing them")

	return cmd
}
