package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"glovecap/internal/config"
	"glovecap/internal/logging"
	"glovecap/internal/progress"
)

func newProgressCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	var classFlag string

	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show collected episode counts per class and type",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ctx.openStore(cmd.Context(), logging.NewNop())
			if err != nil {
				return fmt.Errorf("open progress: %w", err)
			}

			classes := store.Classes()
			if class := strings.TrimSpace(classFlag); class != "" {
				class = config.NormalizeLabel(class)
				if cfg.ClassIndex(class) < 0 {
					return fmt.Errorf("unknown class %q", class)
				}
				classes = []string{class}
			}

			if jsonOut {
				return writeJSON(cmd, progressView(store, classes))
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderProgress(cfg, store, classes))
			snap := store.Snapshot()
			fmt.Fprintf(out, "%s of %s episodes collected · updated %s\n",
				humanize.Comma(int64(snap.TotalEpisodes)),
				humanize.Comma(int64(len(store.Classes())*len(store.Types())*store.Quota())),
				humanize.Time(snap.LastUpdated),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print progress as JSON")
	cmd.Flags().StringVar(&classFlag, "class", "", "Only show one class")
	return cmd
}

type progressJSON struct {
	progress.Snapshot
	Quota   int                      `json:"quota"`
	Classes []progress.ClassProgress `json:"classes"`
}

func progressView(store *progress.Store, classes []string) progressJSON {
	view := progressJSON{
		Snapshot: store.Snapshot(),
		Quota:    store.Quota(),
		Classes:  make([]progress.ClassProgress, 0, len(classes)),
	}
	for _, class := range classes {
		view.Classes = append(view.Classes, store.QueryClass(class))
	}
	return view
}

func renderProgress(cfg *config.Config, store *progress.Store, classes []string) string {
	types := store.Types()
	headers := []string{"Class", "Category"}
	aligns := []columnAlignment{alignLeft, alignLeft}
	for _, t := range types {
		headers = append(headers, "Type "+t)
		aligns = append(aligns, alignRight)
	}
	headers = append(headers, "Total", "Status")
	aligns = append(aligns, alignRight, alignLeft)

	typeTotals := make([]int, len(types))
	grand := 0
	rows := make([][]string, 0, len(classes))
	for _, class := range classes {
		cp := store.QueryClass(class)
		row := []string{class, cfg.CategoryOf(class)}
		for i, t := range types {
			n := cp.PerType[t]
			typeTotals[i] += n
			row = append(row, fmt.Sprintf("%d/%d", n, store.Quota()))
		}
		status := "pending"
		if cp.Complete() {
			status = "complete"
		}
		row = append(row, fmt.Sprintf("%d/%d", cp.Total, cp.Target), status)
		rows = append(rows, row)
		grand += cp.Total
	}

	footer := []string{"Total", ""}
	for _, n := range typeTotals {
		footer = append(footer, strconv.Itoa(n))
	}
	footer = append(footer, strconv.Itoa(grand), "")
	return renderTable(headers, rows, aligns, footer)
}
