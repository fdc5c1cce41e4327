package progress

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"glovecap/internal/fileutil"
	"glovecap/internal/logging"
	"glovecap/internal/storage"
)

// scan counts episode files for every known (class, type). Each format is
// counted separately and the larger count wins, so one missing twin never
// lowers progress.
func (s *Store) scan(ctx context.Context) (Counts, error) {
	out := make(Counts)
	for _, class := range s.opts.Classes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, episodeType := range s.opts.Types {
			n, err := s.countDir(storage.EpisodeDir(s.opts.DataRoot, class, episodeType))
			if err != nil {
				return nil, err
			}
			if n > 0 {
				out.Set(class, episodeType, n)
			}
		}
	}
	return out, nil
}

func (s *Store) countDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("scan %s: %w", dir, err)
	}
	best := 0
	for _, ext := range s.opts.Extensions {
		n := 0
		for _, e := range entries {
			if !e.IsDir() && s.isEpisodeFile(e.Name(), ext) {
				n++
			}
		}
		best = max(best, n)
	}
	return best, nil
}

func (s *Store) isEpisodeFile(name, ext string) bool {
	return storage.IsEpisodeFile(name, storage.Format(ext))
}

// ResetResult reports what Reset removed.
type ResetResult struct {
	FilesRemoved int
	DirsRemoved  int
}

// Reset deletes every episode file of every format below the data root,
// prunes emptied directories and zeroes both count maps. Without confirm it
// returns ErrResetNotConfirmed and touches nothing.
func (s *Store) Reset(confirm bool) (ResetResult, error) {
	var res ResetResult
	if !confirm {
		return res, ErrResetNotConfirmed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	err := filepath.WalkDir(s.opts.DataRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		for _, ext := range s.opts.Extensions {
			if s.isEpisodeFile(d.Name(), ext) {
				if rmErr := os.Remove(path); rmErr != nil {
					errs = append(errs, rmErr)
				} else {
					res.FilesRemoved++
				}
				break
			}
		}
		return nil
	})
	if err != nil {
		errs = append(errs, err)
	}

	dirs, err := fileutil.PruneEmptyDirs(s.opts.DataRoot)
	if err != nil {
		errs = append(errs, err)
	}
	res.DirsRemoved = dirs

	s.collection = make(Counts)
	s.session = make(Counts)
	if err := s.save(); err != nil {
		errs = append(errs, err)
	}

	s.logger.Info("progress reset",
		logging.String(logging.FieldEventType, "progress_reset"),
		logging.Int("files_removed", res.FilesRemoved),
		logging.Int("dirs_removed", res.DirsRemoved),
	)
	return res, errors.Join(errs...)
}
