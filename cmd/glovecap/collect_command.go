package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"glovecap/internal/config"
	"glovecap/internal/logging"
	"glovecap/internal/serialport"
)

const displayInterval = 30 * time.Millisecond

type sessionFlags struct {
	class       string
	wait        bool
	metricsAddr string
	echo        bool
}

func (f *sessionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.class, "class", "", "Class label to collect (defaults to the first class)")
	cmd.Flags().BoolVar(&f.wait, "wait", false, "Wait for the glove to be plugged in")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	cmd.Flags().BoolVar(&f.echo, "echo", false, "Start with realtime echo enabled")
}

func newCollectCommand(ctx *commandContext) *cobra.Command {
	var flags sessionFlags

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Interactive collection session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInteractive(cmd, ctx, flags, func(runCtx context.Context, s *session, poller commandPoller) error {
				s.printHelp()
				return s.loop(runCtx, poller, nil)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

// runInteractive opens the collector, connects to the glove and hands the
// live session to body. The collector is closed, saving any open episode,
// when body returns.
func runInteractive(cmd *cobra.Command, cctx *commandContext, flags sessionFlags, body func(context.Context, *session, commandPoller) error) error {
	cfg, err := cctx.ensureConfig()
	if err != nil {
		return err
	}
	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger, err := cctx.newLogger()
	if err != nil {
		return err
	}

	class := strings.TrimSpace(flags.class)
	if class == "" {
		class = cfg.Classes()[0]
	}
	class = config.NormalizeLabel(class)
	if cfg.ClassIndex(class) < 0 {
		return fmt.Errorf("unknown class %q", class)
	}

	out := cmd.OutOrStdout()
	if flags.wait && cfg.Serial.Port == "" && cctx.dialer == nil {
		fmt.Fprintln(out, "Waiting for the glove to be plugged in...")
		port, err := serialport.WaitForPort(runCtx, logger)
		if err != nil {
			return err
		}
		cfg.Serial.Port = port
	}

	if err := requirePreflight(runCtx, cfg); err != nil {
		return err
	}

	s := newSession(cfg, out, class)
	s.echo = flags.echo
	var rawEcho func(string)
	if cfg.Serial.RawEcho {
		rawEcho = func(line string) { fmt.Fprintf(out, "RAW: %s\n", line) }
	}

	col, err := cctx.openCollector(runCtx, logger, rawEcho, s.onEvent)
	if err != nil {
		return err
	}
	defer func() {
		if err := col.Close(); err != nil {
			logging.WarnWithContext(logger, "close collector", "collector_close_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "serial port may need to be reopened"),
			)
		}
		s.pump()
	}()
	s.col = col

	addr, closeMetrics, err := serveMetrics(runCtx, logger, col.Registry(), flags.metricsAddr)
	if err != nil {
		return fmt.Errorf("metrics endpoint: %w", err)
	}
	defer closeMetrics()
	if addr != "" {
		fmt.Fprintf(out, "Metrics at http://%s/metrics\n", addr)
	}

	if err := col.Connect(runCtx); err != nil {
		return err
	}
	st := col.Status()
	fmt.Fprintf(out, "Connected to %s · session %s · class %s\n", st.Port, st.SessionID, class)

	poller := newCommandPoller(cmd.InOrStdin())
	defer poller.Close()
	if !poller.Keystrokes() {
		fmt.Fprintln(out, "Type a command and press Enter.")
	}

	err = body(runCtx, s, poller)
	if errors.Is(err, context.Canceled) || errors.Is(err, errQuit) {
		return nil
	}
	return err
}

// loop dispatches commands and refreshes the display until quit, signal or
// connection loss. done, when non-nil, ends the loop once it returns true.
func (s *session) loop(ctx context.Context, poller commandPoller, done func() bool) error {
	ticker := time.NewTicker(displayInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		for {
			cmd, ok := poller.TryReadCommand()
			if !ok {
				break
			}
			quit, err := s.handle(ctx, cmd)
			if err != nil {
				return err
			}
			if quit {
				return errQuit
			}
		}
		s.pump()
		if !s.col.Connected() {
			err := s.col.Status().LastError
			if err == nil {
				err = serialport.ErrClosed
			}
			return fmt.Errorf("glove disconnected: %w", err)
		}
		if done != nil && done() {
			return nil
		}
	}
}

var errQuit = errors.New("quit requested")
