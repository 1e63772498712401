package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"bindery/internal/ffmpeg"
)

// version is stamped at build time via -ldflags.
var version = "0.1.0"

func newVersionCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show bindery and ffmpeg versions",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "bindery %s\n", version)

			// Config is best-effort here; without one the default
			// ffmpeg lookup still works.
			var configured string
			if cfg, err := ctx.ensureConfig(); err == nil && cfg != nil {
				configured = cfg.FFmpeg.Binary
			}
			binary, err := ffmpeg.Locate(configured)
			if err != nil {
				fmt.Fprintln(out, "ffmpeg: not found")
				return nil
			}
			if banner, err := ffmpeg.Version(cmd.Context(), binary); err == nil {
				fmt.Fprintln(out, banner)
			} else {
				fmt.Fprintf(out, "ffmpeg: %s\n", binary)
			}
			return nil
		},
	}
}
