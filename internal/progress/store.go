package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"glovecap/internal/config"
	"glovecap/internal/fileutil"
	"glovecap/internal/logging"
	"glovecap/internal/storage"
)

var (
	// ErrCorruptCache marks a progress file that could not be decoded.
	ErrCorruptCache = errors.New("progress cache is corrupt")
	// ErrResetNotConfirmed is returned by Reset(false); nothing is touched.
	ErrResetNotConfirmed = errors.New("reset not confirmed")
)

// Options configures a Store.
type Options struct {
	DataRoot     string
	ProgressFile string
	Classes      []string
	Types        []string
	// Quota is the target episode count per (class, type).
	Quota int
	// Extensions counted during reconciliation; defaults to every storage format.
	Extensions []string
	Logger     *slog.Logger
	Now        func() time.Time
}

// Snapshot is the persisted progress document.
type Snapshot struct {
	LastUpdated     time.Time `json:"last_updated"`
	CollectionStats Counts    `json:"collection_stats"`
	SessionStats    Counts    `json:"session_stats"`
	TotalEpisodes   int       `json:"total_episodes"`
}

// ClassProgress summarizes one class across its episode types.
type ClassProgress struct {
	Class   string         `json:"class"`
	PerType map[string]int `json:"per_type"`
	Total   int            `json:"total"`
	Target  int            `json:"target"`
}

// Complete reports whether every type of the class met its quota.
func (p ClassProgress) Complete() bool {
	return p.Total >= p.Target
}

// Store tracks completed episodes per (class, type). The persisted counts are
// reconciled against episode files on disk when the store opens and on demand.
type Store struct {
	mu         sync.Mutex
	opts       Options
	collection Counts
	session    Counts
	logger     *slog.Logger
}

// Open loads the cached counts, scans the data root and persists the scan
// when it disagrees with the cache.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.DataRoot == "" {
		return nil, errors.New("progress: data root is required")
	}
	if opts.ProgressFile == "" {
		return nil, errors.New("progress: progress file is required")
	}
	if len(opts.Extensions) == 0 {
		opts.Extensions = storage.Extensions()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	opts.Classes = normalizeLabels(opts.Classes)
	opts.Types = normalizeLabels(opts.Types)

	s := &Store{
		opts:       opts,
		collection: make(Counts),
		session:    make(Counts),
		logger:     logging.NewComponentLogger(opts.Logger, "progress"),
	}

	// Any cache failure falls back to the filesystem scan below.
	cached, err := s.load()
	if err == nil {
		s.collection = cached
	} else {
		backup := opts.ProgressFile + ".corrupt"
		hint := "check permissions on " + opts.ProgressFile
		if errors.Is(err, ErrCorruptCache) {
			_ = fileutil.CopyFile(opts.ProgressFile, backup)
			hint = "inspect " + backup + " if counts look wrong"
		}
		logging.WarnWithContext(s.logger, "progress cache unreadable; rebuilding from episode files", "progress_corrupt",
			logging.Error(err),
			logging.String(logging.FieldPath, opts.ProgressFile),
			logging.String(logging.FieldErrorHint, hint),
			logging.String(logging.FieldImpact, "counts are recomputed from the filesystem"),
		)
	}

	changed, err := s.Reconcile(ctx)
	switch {
	case err == nil:
	case changed:
		// Scan succeeded; only the cache write failed.
		logging.WarnWithContext(s.logger, "progress cache not saved", "progress_save_failed",
			logging.Error(err),
			logging.String(logging.FieldPath, opts.ProgressFile),
			logging.String(logging.FieldErrorHint, "check permissions on "+opts.ProgressFile),
			logging.String(logging.FieldImpact, "counts are held in memory and rebuilt from episode files next start"),
		)
	default:
		return nil, err
	}
	return s, nil
}

func normalizeLabels(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		out = append(out, config.NormalizeLabel(v))
	}
	return out
}

func (s *Store) load() (Counts, error) {
	data, err := os.ReadFile(s.opts.ProgressFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(Counts), nil
		}
		return nil, fmt.Errorf("read progress file: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCache, err)
	}
	counts := make(Counts)
	for class, byType := range snap.CollectionStats {
		for episodeType, n := range byType {
			if n < 0 {
				return nil, fmt.Errorf("%w: negative count for %s/%s", ErrCorruptCache, class, episodeType)
			}
			counts.Set(config.NormalizeLabel(class), config.NormalizeLabel(episodeType), n)
		}
	}
	return counts, nil
}

// save writes the progress file. Callers hold s.mu.
func (s *Store) save() error {
	snap := s.snapshotLocked()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := fileutil.WriteFileAtomic(s.opts.ProgressFile, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		LastUpdated:     s.opts.Now().UTC().Truncate(time.Second),
		CollectionStats: s.collection.Clone(),
		SessionStats:    s.session.Clone(),
		TotalEpisodes:   s.collection.Total(),
	}
}

// Increment records one completed episode and saves immediately.
func (s *Store) Increment(class, episodeType string) (int, error) {
	class = config.NormalizeLabel(class)
	episodeType = config.NormalizeLabel(episodeType)

	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.collection.Inc(class, episodeType)
	s.session.Inc(class, episodeType)
	if err := s.save(); err != nil {
		return n, err
	}
	return n, nil
}

// Query returns the current count, the quota and how many remain.
func (s *Store) Query(class, episodeType string) (current, target, remaining int) {
	class = config.NormalizeLabel(class)
	episodeType = config.NormalizeLabel(episodeType)

	s.mu.Lock()
	current = s.collection.Get(class, episodeType)
	s.mu.Unlock()
	target = s.opts.Quota
	remaining = max(0, target-current)
	return current, target, remaining
}

// QueryClass summarizes one class across every configured type.
func (s *Store) QueryClass(class string) ClassProgress {
	class = config.NormalizeLabel(class)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := ClassProgress{
		Class:   class,
		PerType: make(map[string]int, len(s.opts.Types)),
		Target:  s.opts.Quota * len(s.opts.Types),
	}
	for _, t := range s.opts.Types {
		n := s.collection.Get(class, t)
		out.PerType[t] = n
		out.Total += n
	}
	return out
}

// Snapshot returns a copy of the current document.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Classes returns the configured classes in taxonomy order.
func (s *Store) Classes() []string { return slices.Clone(s.opts.Classes) }

// Types returns the configured episode types in order.
func (s *Store) Types() []string { return slices.Clone(s.opts.Types) }

// Quota returns the per-pair target.
func (s *Store) Quota() int { return s.opts.Quota }

// Reconcile rescans the data root. When the scan disagrees with the current
// counts the scan wins and is persisted. It reports whether counts changed.
func (s *Store) Reconcile(ctx context.Context) (bool, error) {
	scanned, err := s.scan(ctx)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if scanned.Equal(s.collection) {
		return false, nil
	}
	s.logger.Info("progress reconciled with episode files",
		logging.String(logging.FieldEventType, "progress_reconciled"),
		logging.Int("cached_total", s.collection.Total()),
		logging.Int("scanned_total", scanned.Total()),
	)
	s.collection = scanned
	if err := s.save(); err != nil {
		return true, err
	}
	return true, nil
}
