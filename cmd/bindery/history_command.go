package main

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"bindery/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent merge runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				fmt.Fprintln(cmd.OutOrStdout(), "History is disabled; enable it in the [history] config section.")
				return nil
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No merge runs recorded yet.")
				return nil
			}

			headers := []string{"When", "Status", "Output", "Files", "Size", "Elapsed"}
			aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight}
			rows := make([][]string, 0, len(records))
			for _, record := range records {
				size := ""
				if record.OutputBytes > 0 {
					size = formatSize(record.OutputBytes)
				}
				elapsed := ""
				if record.ElapsedSeconds > 0 {
					elapsed = time.Duration(record.ElapsedSeconds * float64(time.Second)).Round(time.Second).String()
				}
				rows = append(rows, []string{
					record.CreatedAt.Local().Format("2006-01-02 15:04"),
					record.Status,
					filepath.Base(record.OutputPath),
					fmt.Sprintf("%d", record.InputCount),
					size,
					elapsed,
				})
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderTable(headers, rows, nil, aligns))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")

	return cmd
}
