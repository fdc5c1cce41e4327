package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"glovecap/internal/config"
	"glovecap/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, the data root lock and the serial port",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			printPreflight(cmd.OutOrStdout(), results)
			if blocking := preflight.Blocking(results); len(blocking) > 0 {
				return fmt.Errorf("%d check(s) failed", len(blocking))
			}
			return nil
		},
	}
}

func printPreflight(out io.Writer, results []preflight.Result) {
	for _, r := range results {
		mark := "✓"
		switch {
		case r.Passed:
		case r.Optional:
			mark = "!"
		default:
			mark = "✗"
		}
		fmt.Fprintf(out, "%s %-16s %s\n", mark, r.Name, r.Detail)
	}
}

// requirePreflight creates the configured directories and refuses to start
// a session while a blocking check fails.
func requirePreflight(ctx context.Context, cfg *config.Config) error {
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}
	blocking := preflight.Blocking(preflight.RunAll(ctx, cfg))
	if len(blocking) == 0 {
		return nil
	}
	parts := make([]string, 0, len(blocking))
	for _, r := range blocking {
		parts = append(parts, r.Name+": "+r.Detail)
	}
	return fmt.Errorf("preflight failed (run glovecap doctor): %s", strings.Join(parts, "; "))
}
