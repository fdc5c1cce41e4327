package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"glovecap/internal/collector"
	"glovecap/internal/config"
	"glovecap/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t,
		testsupport.WithTaxonomy("letters", []string{"A", "B"}, "1", "2"),
		testsupport.WithSamplesPerEpisode(5),
		testsupport.WithQuota(1),
	)
	base := testsupport.BaseDir(cfg)
	cfg.Serial.Port = filepath.Join(base, "ttyFAKE0")
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("GLOVECAP_DATA_DIR", "")
	t.Setenv("GLOVECAP_PORT", "")

	configPath := filepath.Join(base, "glovecap.toml")
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	return runCLIWithDialer(t, nil, args, configPath, stdin)
}

func runCLIWithDialer(t *testing.T, dialer collector.Dialer, args []string, configPath, stdin string) (string, string, error) {
	t.Helper()
	cmd := buildRootCommand(dialer)
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(strings.NewReader(stdin))
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}

// streamSource is an endless glove emitting a reading every 30 device ms.
type streamSource struct {
	mu     sync.Mutex
	ts     int64
	closed bool
}

func (s *streamSource) ReadLine() (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, os.ErrClosed
	}
	s.ts += 30
	return testsupport.WireLine(s.ts, 1, 2, 3, [5]int{600, 610, 620, 630, 640}), true, nil
}

func (s *streamSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func streamDialer(src *streamSource) collector.Dialer {
	return func(context.Context) (collector.LineSource, error) { return src, nil }
}

// togglePoller hands out "enter" on every other poll so that each prompt in
// auto mode is answered without queueing keystrokes ahead of it.
type togglePoller struct {
	mu   sync.Mutex
	next bool
}

func (p *togglePoller) TryReadCommand() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next = !p.next
	if p.next {
		return "enter", true
	}
	return "", false
}

func (p *togglePoller) Keystrokes() bool { return false }
func (p *togglePoller) Close() error     { return nil }
