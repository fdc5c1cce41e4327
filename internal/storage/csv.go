package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	"glovecap/internal/fileutil"
	"glovecap/internal/sample"
)

// WriteCSV writes readings to path with a sample.Fields header. The file
// appears atomically.
func WriteCSV(path string, readings []sample.Reading) error {
	return fileutil.WriteAtomicFunc(path, 0o644, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(sample.Fields); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for i, r := range readings {
			if err := cw.Write(r.Record()); err != nil {
				return fmt.Errorf("write row %d: %w", i, err)
			}
		}
		cw.Flush()
		return cw.Error()
	})
}

// ErrHeaderMismatch is returned when a CSV header does not match sample.Fields.
var ErrHeaderMismatch = errors.New("csv header does not match sample fields")

// ReadCSV loads an episode written by WriteCSV.
func ReadCSV(path string) ([]sample.Reading, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = len(sample.Fields)
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if !slices.Equal(header, sample.Fields) {
		return nil, fmt.Errorf("%w: %v", ErrHeaderMismatch, header)
	}

	var out []sample.Reading
	for line := 2; ; line++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		r, err := sample.FromRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, r)
	}
}
