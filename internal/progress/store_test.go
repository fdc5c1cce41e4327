package progress_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/text/unicode/norm"

	"glovecap/internal/logging"
	"glovecap/internal/progress"
)

func options(t *testing.T) progress.Options {
	t.Helper()
	root := t.TempDir()
	return progress.Options{
		DataRoot:     root,
		ProgressFile: filepath.Join(root, "collection_progress.json"),
		Classes:      []string{"ㄱ", "ㄴ", "ㅏ"},
		Types:        []string{"1", "2", "3", "4", "5"},
		Quota:        12,
		Logger:       logging.NewNop(),
		Now:          func() time.Time { return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC) },
	}
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func readSnapshot(t *testing.T, path string) progress.Snapshot {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read progress file: %v", err)
	}
	var snap progress.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("decode progress file: %v", err)
	}
	return snap
}

func TestOpenReconcilesToMaxOfFormats(t *testing.T) {
	opts := options(t)
	dir := filepath.Join(opts.DataRoot, "ㄱ", "1")
	touch(t, dir,
		"episode_20260301_090000_ㄱ_1.sqlite",
		"episode_20260301_090005_ㄱ_1.sqlite",
		"episode_20260301_090010_ㄱ_1.sqlite",
		"episode_20260301_090000_ㄱ_1.csv",
		"episode_20260301_090005_ㄱ_1.csv",
		"notes.txt",
	)

	cache := progress.Snapshot{CollectionStats: progress.Counts{"ㄱ": {"1": 1}}}
	data, _ := json.Marshal(cache)
	if err := os.WriteFile(opts.ProgressFile, data, 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := progress.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	current, target, remaining := store.Query("ㄱ", "1")
	if current != 3 || target != 12 || remaining != 9 {
		t.Fatalf("Query = (%d,%d,%d), want (3,12,9)", current, target, remaining)
	}

	snap := readSnapshot(t, opts.ProgressFile)
	if snap.CollectionStats.Get("ㄱ", "1") != 3 || snap.TotalEpisodes != 3 {
		t.Fatalf("scan was not persisted: %+v", snap)
	}
}

func TestOpenMatchesDecomposedDirectoryNames(t *testing.T) {
	opts := options(t)
	opts.Classes = []string{norm.NFD.String("가")}
	dir := filepath.Join(opts.DataRoot, "가", "2")
	touch(t, dir, "episode_a.csv", "episode_b.csv")

	store, err := progress.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got, _, _ := store.Query("가", "2"); got != 2 {
		t.Fatalf("expected 2 episodes for composed label, got %d", got)
	}
}

func TestOpenRecoversFromCorruptCache(t *testing.T) {
	opts := options(t)
	touch(t, filepath.Join(opts.DataRoot, "ㄴ", "4"), "episode_x.csv")
	if err := os.WriteFile(opts.ProgressFile, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := progress.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open should recover from a corrupt cache: %v", err)
	}
	if got, _, _ := store.Query("ㄴ", "4"); got != 1 {
		t.Fatalf("expected rescanned count 1, got %d", got)
	}
	if _, err := os.Stat(opts.ProgressFile + ".corrupt"); err != nil {
		t.Fatalf("expected corrupt cache backup: %v", err)
	}
}

func TestOpenSurvivesUnreadableCache(t *testing.T) {
	opts := options(t)
	touch(t, filepath.Join(opts.DataRoot, "ㅏ", "2"), "episode_a.csv", "episode_b.sqlite")
	if err := os.MkdirAll(opts.ProgressFile, 0o755); err != nil {
		t.Fatal(err)
	}

	store, err := progress.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open should fall back to a rescan: %v", err)
	}
	if got, _, _ := store.Query("ㅏ", "2"); got != 1 {
		t.Fatalf("expected rescanned count 1, got %d", got)
	}
}

func TestIncrementPersistsAndTracksSession(t *testing.T) {
	opts := options(t)
	store, err := progress.Open(context.Background(), opts)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.Increment("ㅏ", "5"); err != nil {
			t.Fatalf("Increment: %v", err)
		}
	}

	snap := readSnapshot(t, opts.ProgressFile)
	if snap.CollectionStats.Get("ㅏ", "5") != 3 || snap.SessionStats.Get("ㅏ", "5") != 3 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if !snap.LastUpdated.Equal(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected last_updated: %v", snap.LastUpdated)
	}

	class := store.QueryClass("ㅏ")
	if class.Total != 3 || class.Target != 60 || class.Complete() {
		t.Fatalf("unexpected class progress: %+v", class)
	}
}

func TestQueryRemainingNeverNegative(t *testing.T) {
	opts := options(t)
	opts.Quota = 1
	store, err := progress.Open(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	store.Increment("ㄱ", "1")
	store.Increment("ㄱ", "1")
	if _, _, remaining := store.Query("ㄱ", "1"); remaining != 0 {
		t.Fatalf("remaining = %d, want 0", remaining)
	}
}

func TestResetRequiresConfirmation(t *testing.T) {
	opts := options(t)
	file := filepath.Join(opts.DataRoot, "ㄱ", "1", "episode_a.csv")
	touch(t, filepath.Dir(file), filepath.Base(file))

	store, err := progress.Open(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := store.Reset(false); !errors.Is(err, progress.ErrResetNotConfirmed) {
		t.Fatalf("expected ErrResetNotConfirmed, got %v", err)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatal("unconfirmed reset removed files")
	}
	if got, _, _ := store.Query("ㄱ", "1"); got != 1 {
		t.Fatalf("unconfirmed reset changed counts: %d", got)
	}
}

func TestResetDeletesEpisodesAndPrunes(t *testing.T) {
	opts := options(t)
	touch(t, filepath.Join(opts.DataRoot, "ㄱ", "1"), "episode_a.csv", "episode_a.sqlite")
	touch(t, filepath.Join(opts.DataRoot, "ㅏ", "3"), "episode_b.sqlite")
	touch(t, filepath.Join(opts.DataRoot, "ㄴ", "2"), "episode_c.csv", "keep.txt")

	store, err := progress.Open(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	store.Increment("ㄴ", "2")

	res, err := store.Reset(true)
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if res.FilesRemoved != 4 {
		t.Fatalf("FilesRemoved = %d, want 4", res.FilesRemoved)
	}
	if _, err := os.Stat(filepath.Join(opts.DataRoot, "ㄱ")); !os.IsNotExist(err) {
		t.Fatal("emptied class directory should be pruned")
	}
	if _, err := os.Stat(filepath.Join(opts.DataRoot, "ㄴ", "2", "keep.txt")); err != nil {
		t.Fatal("non-episode files must survive reset")
	}

	snap := store.Snapshot()
	if snap.TotalEpisodes != 0 || snap.SessionStats.Total() != 0 {
		t.Fatalf("counts not zeroed: %+v", snap)
	}
	if readSnapshot(t, opts.ProgressFile).TotalEpisodes != 0 {
		t.Fatal("empty progress not persisted")
	}
}

func TestReconcileDetectsExternalChanges(t *testing.T) {
	opts := options(t)
	store, err := progress.Open(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	changed, err := store.Reconcile(context.Background())
	if err != nil || changed {
		t.Fatalf("first reconcile: changed=%v err=%v", changed, err)
	}

	touch(t, filepath.Join(opts.DataRoot, "ㅏ", "1"), "episode_new.sqlite")
	changed, err = store.Reconcile(context.Background())
	if err != nil || !changed {
		t.Fatalf("second reconcile: changed=%v err=%v", changed, err)
	}
	if got, _, _ := store.Query("ㅏ", "1"); got != 1 {
		t.Fatalf("expected 1, got %d", got)
	}
}
