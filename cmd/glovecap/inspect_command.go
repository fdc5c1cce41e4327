package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"glovecap/internal/sample"
	"glovecap/internal/storage"
)

func newInspectCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "inspect <episode-file>",
		Short:       "Summarize a saved episode in either format",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			format, ok := storage.FormatOf(info.Name())
			if !ok {
				return fmt.Errorf("%s is not an episode file", path)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "File:     %s (%s, %s)\n", path, format, humanize.Bytes(uint64(info.Size())))

			var readings []sample.Reading
			switch format {
			case storage.FormatCSV:
				readings, err = storage.ReadCSV(path)
				if err != nil {
					return err
				}
			case storage.FormatContainer:
				c, err := storage.ReadContainer(cmd.Context(), path)
				if err != nil {
					return err
				}
				readings = c.Readings
				printContainer(out, c)
			}
			printReadingSummary(out, readings)
			return nil
		},
	}
}

func printContainer(out io.Writer, c *storage.Container) {
	m := c.Meta
	fmt.Fprintf(out, "Class:    %s (%s, label_idx %d) type %s\n", m.Class, m.Category, m.LabelIndex, m.EpisodeType)
	fmt.Fprintf(out, "Device:   %s · session %s\n", m.DeviceID, m.SessionID)
	if !m.StartedAt.IsZero() {
		fmt.Fprintf(out, "Started:  %s (%s)\n", m.StartedAt.Local().Format(time.DateTime), humanize.Time(m.StartedAt))
	}
	rows := make([][]string, 0, len(c.Datasets))
	for _, ds := range c.Datasets {
		rows = append(rows, []string{ds.Name, ds.DType, strconv.Itoa(ds.Rows), strconv.Itoa(ds.Cols)})
	}
	fmt.Fprintln(out, renderTable([]string{"Dataset", "Type", "Rows", "Cols"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight}, nil))
}

func printReadingSummary(out io.Writer, readings []sample.Reading) {
	fmt.Fprintf(out, "Samples:  %d\n", len(readings))
	if len(readings) == 0 {
		return
	}
	first, last := readings[0], readings[len(readings)-1]
	span := time.Duration(last.DeviceMillis-first.DeviceMillis) * time.Millisecond
	fmt.Fprintf(out, "Span:     %s (device clock)\n", span)
	fmt.Fprintf(out, "Rate:     %.1f Hz average\n", storage.AverageRate(readings))
}
