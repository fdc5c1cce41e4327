package main

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"glovecap/internal/sample"
	"glovecap/internal/storage"
	"glovecap/internal/testsupport"
)

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath, "")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")
	requireContains(t, out, "2 classes × 2 types × 1 episodes, 5 samples each")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, []string{"config", "init", "--path", target}, "", "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, "", ""); err == nil {
		t.Fatal("expected init to refuse overwriting without --overwrite")
	}
}

func TestProgressJSONCountsEpisodeFiles(t *testing.T) {
	env := setupCLITestEnv(t)
	testsupport.TouchEpisodes(t, env.cfg.Paths.DataDir, "A", "1", ".csv", 1)
	testsupport.TouchEpisodes(t, env.cfg.Paths.DataDir, "A", "1", ".sqlite", 1)
	testsupport.TouchEpisodes(t, env.cfg.Paths.DataDir, "B", "2", ".sqlite", 1)

	out, _, err := runCLI(t, []string{"progress", "--json"}, env.configPath, "")
	if err != nil {
		t.Fatalf("progress --json: %v", err)
	}
	var view struct {
		TotalEpisodes int `json:"total_episodes"`
		Quota         int `json:"quota"`
		Classes       []struct {
			Class   string         `json:"class"`
			PerType map[string]int `json:"per_type"`
		} `json:"classes"`
	}
	if err := json.Unmarshal([]byte(out), &view); err != nil {
		t.Fatalf("decode progress json: %v\n%s", err, out)
	}
	if view.TotalEpisodes != 2 || view.Quota != 1 {
		t.Fatalf("unexpected totals: %+v", view)
	}
	if len(view.Classes) != 2 || view.Classes[0].PerType["1"] != 1 || view.Classes[1].PerType["2"] != 1 {
		t.Fatalf("unexpected per-class counts: %+v", view.Classes)
	}

	out, _, err = runCLI(t, []string{"progress", "--class", "B"}, env.configPath, "")
	if err != nil {
		t.Fatalf("progress --class: %v", err)
	}
	requireContains(t, out, "1/2")
	requireContains(t, out, "pending")
	if strings.Contains(out, "│ A ") {
		t.Fatalf("expected only class B rows, got\n%s", out)
	}

	if _, _, err := runCLI(t, []string{"progress", "--class", "Z"}, env.configPath, ""); err == nil {
		t.Fatal("expected unknown class error")
	}
}

func TestResetPromptsForConfirmation(t *testing.T) {
	env := setupCLITestEnv(t)
	files := testsupport.TouchEpisodes(t, env.cfg.Paths.DataDir, "A", "1", ".csv", 2)

	out, _, err := runCLI(t, []string{"reset"}, env.configPath, "n\n")
	if err != nil {
		t.Fatalf("reset (declined): %v", err)
	}
	requireContains(t, out, "Reset cancelled")
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			t.Fatalf("declined reset removed %s", f)
		}
	}

	out, _, err = runCLI(t, []string{"reset"}, env.configPath, "y\n")
	if err != nil {
		t.Fatalf("reset (confirmed): %v", err)
	}
	requireContains(t, out, "Removed 2 episode files")
	for _, f := range files {
		if _, err := os.Stat(f); !os.IsNotExist(err) {
			t.Fatalf("expected %s removed", f)
		}
	}
}

func TestReconcileReportsChange(t *testing.T) {
	env := setupCLITestEnv(t)
	out, _, err := runCLI(t, []string{"reconcile"}, env.configPath, "")
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	requireContains(t, out, "already matches disk: 0 episodes")
}

func TestInspectBothFormats(t *testing.T) {
	dir := t.TempDir()
	p := sample.NewParser()
	var readings []sample.Reading
	for _, line := range testsupport.WireLines(100, 30, 4) {
		r, ok := p.Parse(line)
		if !ok {
			t.Fatalf("parse %q", line)
		}
		readings = append(readings, r)
	}

	csvPath := filepath.Join(dir, "episode_20250101_120000_A_1.csv")
	if err := storage.WriteCSV(csvPath, readings); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	out, _, err := runCLI(t, []string{"inspect", csvPath}, "", "")
	if err != nil {
		t.Fatalf("inspect csv: %v", err)
	}
	requireContains(t, out, "Samples:  4")
	requireContains(t, out, "Span:     90ms")

	dbPath := filepath.Join(dir, "episode_20250101_120000_A_1.sqlite")
	meta := storage.Metadata{
		Class:       "A",
		EpisodeType: "1",
		Category:    "letters",
		LabelIndex:  0,
		DeviceID:    "GLOVE",
		SessionID:   "s1",
		StartedAt:   time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
		Duration:    90 * time.Millisecond,
	}
	if err := storage.WriteContainer(context.Background(), dbPath, meta, readings); err != nil {
		t.Fatalf("WriteContainer: %v", err)
	}
	out, _, err = runCLI(t, []string{"inspect", dbPath}, "", "")
	if err != nil {
		t.Fatalf("inspect container: %v", err)
	}
	requireContains(t, out, "sensors/flex")
	requireContains(t, out, "Device:   GLOVE")

	if _, _, err := runCLI(t, []string{"inspect", filepath.Join(dir, "notes.txt")}, "", ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCollectQuitsOnCommand(t *testing.T) {
	env := setupCLITestEnv(t)
	src := &streamSource{}
	out, _, err := runCLIWithDialer(t, streamDialer(src), []string{"collect", "--class", "B"}, env.configPath, "h\nq\n")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	requireContains(t, out, "Connected to")
	requireContains(t, out, "class B")
	requireContains(t, out, "commands:")
}

func TestDoctorReportsChecks(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := env.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}

	out, _, err := runCLI(t, []string{"doctor"}, env.configPath, "")
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, out)
	}
	requireContains(t, out, "✓ Data directory")
	requireContains(t, out, "✓ Data root lock")
	requireContains(t, out, "! Serial port")

	env.cfg.Paths.DataDir = filepath.Join(env.baseDir, "missing")
	env.cfg.Paths.ProgressFile = filepath.Join(env.baseDir, "missing", "collection_progress.json")
	writeTestConfig(t, env.configPath, env.cfg)
	out, _, err = runCLI(t, []string{"doctor"}, env.configPath, "")
	if err == nil {
		t.Fatal("expected doctor to fail for a missing data directory")
	}
	requireContains(t, out, "✗ Data directory")
}

func TestLogsFiltersBySession(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.LogDir, 0o755); err != nil {
		t.Fatalf("mkdir logs: %v", err)
	}
	content := "INFO connected session_id=aaa\nINFO connected session_id=bbb\nWARN lost session_id=aaa\n"
	if err := os.WriteFile(filepath.Join(env.cfg.Paths.LogDir, "glovecap.log"), []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--session", "aaa"}, env.configPath, "")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if strings.Contains(out, "bbb") {
		t.Fatalf("unexpected line from another session:\n%s", out)
	}
	requireContains(t, out, "WARN lost session_id=aaa")

	out, _, err = runCLI(t, []string{"logs", "-n", "1"}, env.configPath, "")
	if err != nil {
		t.Fatalf("logs -n 1: %v", err)
	}
	if strings.TrimSpace(out) != "WARN lost session_id=aaa" {
		t.Fatalf("unexpected tail output: %q", out)
	}
}
