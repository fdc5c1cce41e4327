package storage

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"glovecap/internal/logging"
	"glovecap/internal/sample"
)

// Writer persists episodes under Root in every configured format.
type Writer struct {
	Root    string
	Formats []Format
	logger  *slog.Logger
}

// NewWriter returns a writer for both formats.
func NewWriter(root string, logger *slog.Logger) *Writer {
	return &Writer{
		Root:    root,
		Formats: slices.Clone(Formats),
		logger:  logging.NewComponentLogger(logger, "storage"),
	}
}

// Write attempts every format independently. It returns the paths that were
// written and, when any format failed, the joined *PersistenceError values.
func (w *Writer) Write(ctx context.Context, meta Metadata, readings []sample.Reading) (map[Format]string, error) {
	paths := EpisodePaths(w.Root, meta.Class, meta.EpisodeType, meta.StartedAt, w.Formats)
	written := make(map[Format]string, len(w.Formats))
	var errs []error

	for _, f := range w.Formats {
		path := paths[f]
		var err error
		switch f {
		case FormatCSV:
			err = WriteCSV(path, readings)
		case FormatContainer:
			err = WriteContainer(ctx, path, meta, readings)
		default:
			err = errors.New("unsupported format")
		}

		attrs := append(logging.EpisodeAttrs(meta.Class, meta.EpisodeType),
			logging.String(logging.FieldFormat, string(f)),
			logging.String(logging.FieldPath, path),
		)
		if err != nil {
			perr := &PersistenceError{Format: f, Path: path, Err: err}
			errs = append(errs, perr)
			logging.WarnWithContext(w.logger, "episode format not persisted", "episode_persist_failed",
				append(attrs,
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check free space and permissions under the data root"),
					logging.String(logging.FieldImpact, "episode is missing one of its two formats"),
				)...,
			)
			continue
		}
		written[f] = path
		w.logger.Debug("episode format persisted", logging.Args(append(attrs, logging.Int("samples", len(readings)))...)...)
	}
	return written, errors.Join(errs...)
}
