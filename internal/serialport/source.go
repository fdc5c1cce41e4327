package serialport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"glovecap/internal/logging"
)

// Defaults for the connection sequence.
const (
	DefaultBaud              = 115200
	DefaultSettleDelay       = 2 * time.Second
	DefaultInitialWait       = 500 * time.Millisecond
	DefaultHandshakePolls    = 3
	DefaultHandshakeInterval = 300 * time.Millisecond

	maxLineBytes = 4096
	readChunk    = 1024
)

// Device commands understood by the glove firmware.
const (
	CommandHeader  = "header"
	CommandRecal   = "recal"
	CommandYawZero = "yawzero"
	CommandZero    = "zero"
)

// commandSettle is how long the firmware needs after each command.
var commandSettle = map[string]time.Duration{
	CommandRecal:   time.Second,
	CommandYawZero: 200 * time.Millisecond,
	CommandZero:    200 * time.Millisecond,
}

// Options configures Open.
type Options struct {
	Port              string
	Baud              int
	SettleDelay       time.Duration
	InitialWait       time.Duration
	HandshakePolls    int
	HandshakeInterval time.Duration
	// RawEcho receives every raw line before filtering, for diagnostics.
	RawEcho func(line string)
	Logger  *slog.Logger
	// Sleep waits for d or until ctx is done. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

func (o *Options) applyDefaults() {
	if o.Baud <= 0 {
		o.Baud = DefaultBaud
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	} else if o.SettleDelay == 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.InitialWait <= 0 {
		o.InitialWait = DefaultInitialWait
	}
	if o.HandshakePolls <= 0 {
		o.HandshakePolls = DefaultHandshakePolls
	}
	if o.HandshakeInterval <= 0 {
		o.HandshakeInterval = DefaultHandshakeInterval
	}
	if o.Sleep == nil {
		o.Sleep = sleepContext
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Source yields lines from a connected glove.
type Source struct {
	mu      sync.Mutex
	port    Port
	name    string
	opts    Options
	pending []byte
	closed  bool
	logger  *slog.Logger
}

// Open resolves, opens and handshakes the glove port.
func Open(ctx context.Context, opts Options) (*Source, error) {
	opts.applyDefaults()
	name := strings.TrimSpace(opts.Port)
	if name == "" {
		found, err := Discover()
		if err != nil {
			return nil, err
		}
		name = found
	}

	p, err := openTTY(name, opts.Baud)
	if err != nil {
		return nil, &ConnectionError{Port: name, Op: "open", Err: err}
	}
	src := NewSource(p, name, opts)
	if err := src.Handshake(ctx); err != nil {
		_ = src.Close()
		return nil, err
	}
	return src, nil
}

// NewSource wraps an already-open port. Open uses it after configuring the tty.
func NewSource(p Port, name string, opts Options) *Source {
	opts.applyDefaults()
	return &Source{
		port:   p,
		name:   name,
		opts:   opts,
		logger: logging.NewComponentLogger(opts.Logger, "serial").With(logging.String(logging.FieldPort, name)),
	}
}

// Name returns the device path.
func (s *Source) Name() string { return s.name }

// Handshake waits for the device to settle, requests the header and accepts
// the device once a reply mentions both "timestamp" and "flex".
func (s *Source) Handshake(ctx context.Context) error {
	if err := s.opts.Sleep(ctx, s.opts.SettleDelay); err != nil {
		return &ConnectionError{Port: s.name, Op: "handshake", Err: err}
	}

	s.mu.Lock()
	if err := s.port.Flush(); err != nil {
		s.logger.Debug("flush before handshake failed", logging.Error(err))
	}
	s.pending = s.pending[:0]
	s.mu.Unlock()

	if err := s.WriteCommand(CommandHeader); err != nil {
		return &ConnectionError{Port: s.name, Op: "handshake", Err: err}
	}
	if err := s.opts.Sleep(ctx, s.opts.InitialWait); err != nil {
		return &ConnectionError{Port: s.name, Op: "handshake", Err: err}
	}

	for poll := 0; poll < s.opts.HandshakePolls; poll++ {
		for {
			line, ok, err := s.readRawLine()
			if err != nil {
				return &ConnectionError{Port: s.name, Op: "handshake", Err: err}
			}
			if !ok {
				break
			}
			lower := strings.ToLower(line)
			if strings.Contains(lower, "timestamp") && strings.Contains(lower, "flex") {
				s.logger.Info("glove connected",
					logging.String(logging.FieldEventType, "serial_connected"),
					logging.String("header", line),
				)
				return nil
			}
		}
		if poll < s.opts.HandshakePolls-1 {
			if err := s.opts.Sleep(ctx, s.opts.HandshakeInterval); err != nil {
				return &ConnectionError{Port: s.name, Op: "handshake", Err: err}
			}
		}
	}
	return &ConnectionError{Port: s.name, Op: "handshake", Err: ErrHandshakeTimeout}
}

// Initialize sends optional post-connect commands (recal, yawzero, zero) and
// waits for each to settle. Write failures are logged and skipped.
func (s *Source) Initialize(ctx context.Context, commands []string) error {
	for _, cmd := range commands {
		if err := s.WriteCommand(cmd); err != nil {
			logging.WarnWithContext(s.logger, "device command failed", "serial_command_failed",
				logging.String("command", cmd),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "reconnect the glove and retry"),
				logging.String(logging.FieldImpact, "sensor calibration unchanged"),
			)
			continue
		}
		s.logger.Info("device command sent",
			logging.String(logging.FieldEventType, "serial_command_sent"),
			logging.String("command", cmd),
		)
		if err := s.opts.Sleep(ctx, commandSettle[cmd]); err != nil {
			return err
		}
	}
	return nil
}

// WriteCommand sends cmd followed by a newline.
func (s *Source) WriteCommand(cmd string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, err := s.port.Write([]byte(cmd + "\n")); err != nil {
		return fmt.Errorf("write %q: %w", cmd, err)
	}
	return nil
}

// ReadLine returns one trimmed data line without blocking. ok is false when
// no complete line is buffered, or when the line was empty or a "#" comment.
// Invalid UTF-8 is replaced rather than rejected.
func (s *Source) ReadLine() (string, bool, error) {
	line, ok, err := s.readRawLine()
	if err != nil || !ok {
		return "", false, err
	}
	if line == "" || strings.HasPrefix(line, "#") {
		return "", false, nil
	}
	return line, true, nil
}

func (s *Source) readRawLine() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, ErrClosed
	}

	if bytes.IndexByte(s.pending, '\n') < 0 {
		if err := s.fill(); err != nil {
			return "", false, err
		}
	}

	idx := bytes.IndexByte(s.pending, '\n')
	if idx < 0 {
		if len(s.pending) > maxLineBytes {
			s.pending = s.pending[:0]
		}
		return "", false, nil
	}
	raw := string(s.pending[:idx])
	s.pending = append(s.pending[:0], s.pending[idx+1:]...)

	line := strings.TrimSpace(strings.ToValidUTF8(raw, "\uFFFD"))
	if s.opts.RawEcho != nil {
		s.opts.RawEcho(line)
	}
	return line, true, nil
}

// fill reads whatever the port has waiting. Callers hold s.mu.
func (s *Source) fill() error {
	waiting, err := s.port.Buffered()
	if err != nil {
		s.markClosedLocked()
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	if waiting <= 0 {
		return nil
	}
	buf := make([]byte, min(max(waiting, 1), readChunk))
	n, err := s.port.Read(buf)
	if err != nil {
		s.markClosedLocked()
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	s.pending = append(s.pending, buf[:n]...)
	return nil
}

func (s *Source) markClosedLocked() {
	if s.closed {
		return
	}
	s.closed = true
	_ = s.port.Close()
	logging.WarnWithContext(s.logger, "serial port lost", "serial_port_lost",
		logging.String(logging.FieldErrorHint, "check the USB cable, then reconnect"),
		logging.String(logging.FieldImpact, "sample stream stopped"),
	)
}

// Close releases the port. It is safe to call more than once.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.port.Close(); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}
