package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"glovecap/internal/serialport"
)

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Recount episode files and repair the progress cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			col, err := ctx.openCollector(cmd.Context(), logger, nil, nil)
			if err != nil {
				return err
			}
			defer col.Close()

			before := col.Progress().TotalEpisodes
			changed, err := col.Reconcile(cmd.Context())
			if err != nil {
				return fmt.Errorf("reconcile: %w", err)
			}
			after := col.Progress().TotalEpisodes
			out := cmd.OutOrStdout()
			if changed {
				fmt.Fprintf(out, "Progress updated: %d -> %d episodes\n", before, after)
			} else {
				fmt.Fprintf(out, "Progress already matches disk: %d episodes\n", after)
			}
			return nil
		},
	}
}

func newResetCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every collected episode and zero progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprintf(out, "This deletes every episode file under %s. Continue? [y/N] ", cfg.Paths.DataDir)
				ok, err := readConfirmation(cmd.InOrStdin())
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Reset cancelled")
					return nil
				}
			}

			logger, err := ctx.newLogger()
			if err != nil {
				return err
			}
			col, err := ctx.openCollector(cmd.Context(), logger, nil, nil)
			if err != nil {
				return err
			}
			defer col.Close()

			res, err := col.ResetProgress(true)
			if err != nil {
				return fmt.Errorf("reset: %w", err)
			}
			fmt.Fprintf(out, "Removed %d episode files and %d empty directories\n", res.FilesRemoved, res.DirsRemoved)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}

func readConfirmation(in io.Reader) (bool, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func newPortsCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "ports",
		Short:       "List serial ports that look like the glove",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ports, err := serialport.Candidates()
			if err != nil {
				return fmt.Errorf("scan ports: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(ports) == 0 {
				fmt.Fprintln(out, "No candidate ports found")
				return nil
			}
			rows := make([][]string, 0, len(ports))
			for i, p := range ports {
				rows = append(rows, []string{fmt.Sprintf("%d", i+1), p, yesNo(i == 0)})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Port", "Default"}, rows, []columnAlignment{alignRight, alignLeft, alignLeft}, nil))
			return nil
		},
	}
}
