package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"glovecap/internal/sample"
)

//go:embed container_schema.sql
var containerSchema string

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// Container is an episode loaded from the structured format.
type Container struct {
	Meta       Metadata
	Attributes map[string]string
	Datasets   []DatasetInfo
	Readings   []sample.Reading
}

// WriteContainer writes the structured container for one episode. The
// database is built next to path and renamed into place once complete.
func WriteContainer(ctx context.Context, path string, meta Metadata, readings []sample.Reading) error {
	ctx = ensureContext(ctx)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create episode directory: %w", err)
	}
	tmp := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+".tmp")
	_ = os.Remove(tmp)

	if err := buildContainer(ctx, tmp, meta, readings); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename container: %w", err)
	}
	return nil
}

func buildContainer(ctx context.Context, dbPath string, meta Metadata, readings []sample.Reading) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open sqlite db: %w", err)
	}
	defer db.Close()

	pragmas := []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA synchronous = FULL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			return fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	err = retryOnBusy(ctx, func() error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin container tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, containerSchema); err != nil {
			return fmt.Errorf("create container schema: %w", err)
		}
		for _, attr := range episodeAttributes(meta, readings) {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO attributes (key, value, kind) VALUES (?, ?, ?)",
				attr.key, attr.value, attr.kind,
			); err != nil {
				return fmt.Errorf("insert attribute %s: %w", attr.key, err)
			}
		}
		for _, ds := range episodeDatasets(readings) {
			blob, err := ds.encode()
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO datasets (name, dtype, rows, cols, data) VALUES (?, ?, ?, ?, ?)",
				ds.name, string(ds.dtype), ds.rows, ds.cols, blob,
			); err != nil {
				return fmt.Errorf("insert dataset %s: %w", ds.name, err)
			}
		}
		return tx.Commit()
	})
	if err != nil {
		return err
	}
	return db.Close()
}

type attribute struct {
	key   string
	value string
	kind  string
}

func episodeAttributes(meta Metadata, readings []sample.Reading) []attribute {
	str := func(k, v string) attribute { return attribute{k, v, "string"} }
	num := func(k string, v int) attribute { return attribute{k, strconv.Itoa(v), "int"} }
	flt := func(k string, v float64) attribute {
		return attribute{k, strconv.FormatFloat(v, 'g', -1, 64), "float"}
	}
	return []attribute{
		str(AttrClassName, meta.Class),
		str(AttrEpisodeType, meta.EpisodeType),
		str(AttrClassCategory, meta.Category),
		flt(AttrEpisodeDuration, meta.Duration.Seconds()),
		num(AttrNumSamples, len(readings)),
		flt(AttrAvgSamplingRate, AverageRate(readings)),
		str(AttrDeviceID, meta.DeviceID),
		str(AttrCollectionDate, meta.StartedAt.Format(collectionDateLayout)),
		str(AttrLabel, meta.Label),
		num(AttrLabelIndex, meta.LabelIndex),
		str(AttrSessionID, meta.SessionID),
		num(AttrFieldsVersion, sample.FieldsVersion),
	}
}

func episodeDatasets(readings []sample.Reading) []dataset {
	n := len(readings)
	host := dataset{name: DatasetTimestamps, dtype: dtypeInt64, rows: n, cols: 1, ints: make([]int64, 0, n)}
	device := dataset{name: DatasetDeviceTimestamps, dtype: dtypeInt64, rows: n, cols: 1, ints: make([]int64, 0, n)}
	rates := dataset{name: DatasetSamplingRates, dtype: dtypeFloat32, rows: n, cols: 1, floats: make([]float32, 0, n)}
	combined := dataset{name: DatasetSensorData, dtype: dtypeFloat32, rows: n, cols: sensorDataCols, floats: make([]float32, 0, n*sensorDataCols)}
	flex := dataset{name: DatasetFlex, dtype: dtypeFloat32, rows: n, cols: sample.FlexChannels, floats: make([]float32, 0, n*sample.FlexChannels)}
	orient := dataset{name: DatasetOrientation, dtype: dtypeFloat32, rows: n, cols: 3, floats: make([]float32, 0, n*3)}
	accel := dataset{name: DatasetAcceleration, dtype: dtypeFloat32, rows: n, cols: 3, floats: make([]float32, 0, n*3)}

	for _, r := range readings {
		host.ints = append(host.ints, r.HostMillis)
		device.ints = append(device.ints, r.DeviceMillis)
		rates.floats = append(rates.floats, float32(r.SamplingHz))
		for _, f := range r.Flex {
			combined.floats = append(combined.floats, float32(f))
			flex.floats = append(flex.floats, float32(f))
		}
		for _, v := range r.Orientation() {
			combined.floats = append(combined.floats, float32(v))
			orient.floats = append(orient.floats, float32(v))
		}
		for _, v := range r.Acceleration() {
			accel.floats = append(accel.floats, float32(v))
		}
	}
	return []dataset{host, device, rates, combined, flex, orient, accel}
}

// ReadContainer loads a container written by WriteContainer.
func ReadContainer(ctx context.Context, path string) (*Container, error) {
	ctx = ensureContext(ctx)
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	defer db.Close()

	out := &Container{Attributes: map[string]string{}}
	if err := loadAttributes(ctx, db, out.Attributes); err != nil {
		return nil, err
	}
	sets, err := loadDatasets(ctx, db)
	if err != nil {
		return nil, err
	}
	for _, name := range []string{DatasetTimestamps, DatasetDeviceTimestamps, DatasetSamplingRates, DatasetFlex, DatasetOrientation, DatasetAcceleration} {
		if _, ok := sets[name]; !ok {
			return nil, fmt.Errorf("container %s: missing dataset %s", path, name)
		}
	}
	for _, ds := range sets {
		out.Datasets = append(out.Datasets, DatasetInfo{Name: ds.name, DType: string(ds.dtype), Rows: ds.rows, Cols: ds.cols})
	}
	slices.SortFunc(out.Datasets, func(a, b DatasetInfo) int { return strings.Compare(a.Name, b.Name) })

	out.Meta = metadataFromAttributes(out.Attributes)
	out.Readings, err = readingsFromDatasets(sets)
	if err != nil {
		return nil, fmt.Errorf("container %s: %w", path, err)
	}
	return out, nil
}

func loadAttributes(ctx context.Context, db *sql.DB, into map[string]string) error {
	rows, err := db.QueryContext(ctx, "SELECT key, value FROM attributes")
	if err != nil {
		return fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scan attribute: %w", err)
		}
		into[key] = value
	}
	return rows.Err()
}

func loadDatasets(ctx context.Context, db *sql.DB) (map[string]dataset, error) {
	rows, err := db.QueryContext(ctx, "SELECT name, dtype, rows, cols, data FROM datasets")
	if err != nil {
		return nil, fmt.Errorf("query datasets: %w", err)
	}
	defer rows.Close()

	out := make(map[string]dataset)
	for rows.Next() {
		var (
			name, kind   string
			nrows, ncols int
			blob         []byte
		)
		if err := rows.Scan(&name, &kind, &nrows, &ncols, &blob); err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		ds, err := decodeDataset(name, dtype(kind), nrows, ncols, blob)
		if err != nil {
			return nil, err
		}
		out[name] = ds
	}
	return out, rows.Err()
}

func metadataFromAttributes(attrs map[string]string) Metadata {
	meta := Metadata{
		Class:       attrs[AttrClassName],
		EpisodeType: attrs[AttrEpisodeType],
		Category:    attrs[AttrClassCategory],
		Label:       attrs[AttrLabel],
		DeviceID:    attrs[AttrDeviceID],
		SessionID:   attrs[AttrSessionID],
	}
	if v, err := strconv.Atoi(attrs[AttrLabelIndex]); err == nil {
		meta.LabelIndex = v
	}
	if v, err := strconv.ParseFloat(attrs[AttrEpisodeDuration], 64); err == nil {
		meta.Duration = time.Duration(v * float64(time.Second))
	}
	if v, err := time.Parse(collectionDateLayout, attrs[AttrCollectionDate]); err == nil {
		meta.StartedAt = v
	}
	return meta
}

func readingsFromDatasets(sets map[string]dataset) ([]sample.Reading, error) {
	host := sets[DatasetTimestamps]
	n := host.rows
	for _, name := range []string{DatasetDeviceTimestamps, DatasetSamplingRates, DatasetFlex, DatasetOrientation, DatasetAcceleration} {
		if sets[name].rows != n {
			return nil, fmt.Errorf("dataset %s has %d rows, want %d", name, sets[name].rows, n)
		}
	}
	device := sets[DatasetDeviceTimestamps]
	rates := sets[DatasetSamplingRates]
	flex := sets[DatasetFlex]
	orient := sets[DatasetOrientation]
	accel := sets[DatasetAcceleration]

	out := make([]sample.Reading, n)
	for i := range out {
		r := sample.Reading{
			HostMillis:   host.ints[i],
			DeviceMillis: device.ints[i],
			SamplingHz:   rates.floatAt(i, 0),
			Pitch:        orient.floatAt(i, 0),
			Roll:         orient.floatAt(i, 1),
			Yaw:          orient.floatAt(i, 2),
			AccelX:       accel.floatAt(i, 0),
			AccelY:       accel.floatAt(i, 1),
			AccelZ:       accel.floatAt(i, 2),
		}
		for ch := range r.Flex {
			r.Flex[ch] = int(flex.floatAt(i, ch))
		}
		out[i] = r
	}
	return out, nil
}
