package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bindery/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration and environment health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			fmt.Fprintln(out, renderStatusLine("Staging directory", statusInfo, cfg.Paths.StagingDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Log directory", statusInfo, cfg.Paths.LogDir, colorize))
			fmt.Fprintln(out, renderStatusLine("Default preset", statusInfo, cfg.FFmpeg.DefaultPreset, colorize))
			fmt.Fprintln(out, renderStatusLine("History", statusInfo, historyDetail(cfg.History.Enabled, cfg.History.Path), colorize))
			fmt.Fprintln(out, renderStatusLine("Notifications", statusInfo, yesNo(cfg.Notifications.NtfyTopic != ""), colorize))
			fmt.Fprintln(out)

			for _, line := range renderSectionHeader("Environment", colorize) {
				fmt.Fprintln(out, line)
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, result := range results {
				kind := statusOK
				if !result.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(result.Name, kind, result.Detail, colorize))
			}

			if !preflight.Passed(results) {
				return fmt.Errorf("one or more checks failed")
			}
			return nil
		},
	}
}

func historyDetail(enabled bool, path string) string {
	if !enabled {
		return "disabled"
	}
	return path
}
