package main

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"glovecap/internal/episode"
)

func newAutoCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags
	var allClasses bool

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Collect every pending episode type, auto-chaining until quotas are met",
		Long: "auto walks the episode types of one class (or every class with --all) in order. " +
			"Before each type it waits for Enter so the signer can take the new hand shape; " +
			"episodes then chain automatically until that type's quota is met.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if allClasses && strings.TrimSpace(flags.class) != "" {
				return fmt.Errorf("--all and --class are mutually exclusive")
			}
			return runInteractive(cmd, ctx, flags, func(runCtx context.Context, s *session, poller commandPoller) error {
				restrict := s.class
				if allClasses {
					restrict = ""
				}
				return s.runAuto(runCtx, poller, restrict)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&allClasses, "all", false, "Walk every class in taxonomy order")
	return cmd
}

// runAuto collects every pending pair for restrict (or every class when
// empty) and returns once nothing is pending.
func (s *session) runAuto(ctx context.Context, poller commandPoller, restrict string) error {
	for {
		class, episodeType, ok := s.col.NextPending(restrict)
		if !ok {
			fmt.Fprintln(s.out, "All quotas met.")
			return nil
		}
		if class != s.class {
			s.setClass(class)
		}
		current, target, _ := s.col.QueryPair(class, episodeType)
		fmt.Fprintf(s.out, "Next: %s/%s (%d/%d). Press Enter to start, q to quit.\n", class, episodeType, current, target)

		if err := s.waitForStart(ctx, poller); err != nil {
			return err
		}
		if err := s.col.StartEpisode(ctx, class, episodeType); err != nil {
			return err
		}
		fmt.Fprintf(s.out, "● recording %s/%s until %d episodes\n", class, episodeType, target)

		// Stopping early returns to the prompt for the same pair.
		err := s.loop(ctx, poller, func() bool {
			return s.col.Status().Recorder.State == episode.StateIdle
		})
		if err != nil {
			return err
		}
	}
}

// waitForStart blocks until the operator presses Enter. Other commands are
// handled in between so progress and posture checks stay available.
func (s *session) waitForStart(ctx context.Context, poller commandPoller) error {
	var start bool
	err := s.loop(ctx, &startFilter{commandPoller: poller, start: &start, types: s.cfg.TypeIDs(), out: s.out}, func() bool {
		return start
	})
	return err
}

// startFilter turns Enter into the start signal and rejects type keys, which
// auto mode chooses itself.
type startFilter struct {
	commandPoller
	start *bool
	types []string
	out   io.Writer
}

func (f *startFilter) TryReadCommand() (string, bool) {
	for {
		cmd, ok := f.commandPoller.TryReadCommand()
		if !ok {
			return "", false
		}
		name, _, _ := strings.Cut(cmd, " ")
		switch {
		case cmd == "enter":
			*f.start = true
			return "", false
		case slices.Contains(f.types, name):
			fmt.Fprintln(f.out, "auto mode picks the type; press Enter to start")
		default:
			return cmd, true
		}
	}
}
