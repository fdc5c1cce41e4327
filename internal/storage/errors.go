package storage

import "fmt"

// PersistenceError reports a failure to write one format of one episode.
type PersistenceError struct {
	Format Format
	Path   string
	Err    error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s episode %s: %v", e.Format, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
