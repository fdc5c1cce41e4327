package storage

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

type dtype string

const (
	dtypeInt64   dtype = "int64"
	dtypeFloat32 dtype = "float32"
)

// dataset is a row-major 2-D array. Vectors have one column.
type dataset struct {
	name   string
	dtype  dtype
	rows   int
	cols   int
	ints   []int64
	floats []float32
}

// DatasetInfo describes a stored array without its data.
type DatasetInfo struct {
	Name  string
	DType string
	Rows  int
	Cols  int
}

func (d dataset) encode() ([]byte, error) {
	var raw []byte
	switch d.dtype {
	case dtypeInt64:
		raw = make([]byte, 0, len(d.ints)*8)
		for _, v := range d.ints {
			raw = binary.LittleEndian.AppendUint64(raw, uint64(v))
		}
	case dtypeFloat32:
		raw = make([]byte, 0, len(d.floats)*4)
		for _, v := range d.floats {
			raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
		}
	default:
		return nil, fmt.Errorf("dataset %s: unknown dtype %q", d.name, d.dtype)
	}

	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("compress %s: %w", d.name, err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("compress %s: %w", d.name, err)
	}
	return buf.Bytes(), nil
}

func decodeDataset(name string, kind dtype, rows, cols int, blob []byte) (dataset, error) {
	d := dataset{name: name, dtype: kind, rows: rows, cols: cols}
	zr, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return d, fmt.Errorf("decompress %s: %w", name, err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return d, fmt.Errorf("decompress %s: %w", name, err)
	}

	n := rows * cols
	switch kind {
	case dtypeInt64:
		if len(raw) != n*8 {
			return d, fmt.Errorf("dataset %s: %d bytes for %dx%d int64", name, len(raw), rows, cols)
		}
		d.ints = make([]int64, n)
		for i := range d.ints {
			d.ints[i] = int64(binary.LittleEndian.Uint64(raw[i*8:]))
		}
	case dtypeFloat32:
		if len(raw) != n*4 {
			return d, fmt.Errorf("dataset %s: %d bytes for %dx%d float32", name, len(raw), rows, cols)
		}
		d.floats = make([]float32, n)
		for i := range d.floats {
			d.floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
		}
	default:
		return d, fmt.Errorf("dataset %s: unknown dtype %q", name, kind)
	}
	return d, nil
}

func (d dataset) floatAt(row, col int) float64 {
	return float64(d.floats[row*d.cols+col])
}
