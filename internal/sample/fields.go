package sample

import (
	"fmt"
	"strconv"
)

// FieldsVersion identifies the column contract below. Bump it when Fields changes.
const FieldsVersion = 1

// Fields is the persisted column order for a Reading.
var Fields = []string{
	"timestamp_ms",
	"recv_timestamp_ms",
	"pitch",
	"roll",
	"yaw",
	"flex1",
	"flex2",
	"flex3",
	"flex4",
	"flex5",
	"sampling_hz",
	"accel_x",
	"accel_y",
	"accel_z",
}

// Record renders r as strings in Fields order.
func (r Reading) Record() []string {
	out := make([]string, 0, len(Fields))
	out = append(out,
		strconv.FormatInt(r.DeviceMillis, 10),
		strconv.FormatInt(r.HostMillis, 10),
		formatFloat(r.Pitch),
		formatFloat(r.Roll),
		formatFloat(r.Yaw),
	)
	for _, f := range r.Flex {
		out = append(out, strconv.Itoa(f))
	}
	out = append(out,
		formatFloat(r.SamplingHz),
		formatFloat(r.AccelX),
		formatFloat(r.AccelY),
		formatFloat(r.AccelZ),
	)
	return out
}

// FromRecord is the inverse of Record.
func FromRecord(record []string) (Reading, error) {
	if len(record) != len(Fields) {
		return Reading{}, fmt.Errorf("record has %d fields, want %d", len(record), len(Fields))
	}
	var (
		r   Reading
		err error
	)
	ints := []*int64{&r.DeviceMillis, &r.HostMillis}
	for i, dst := range ints {
		if *dst, err = strconv.ParseInt(record[i], 10, 64); err != nil {
			return Reading{}, fmt.Errorf("field %s: %w", Fields[i], err)
		}
	}
	floats := map[int]*float64{
		2: &r.Pitch, 3: &r.Roll, 4: &r.Yaw,
		10: &r.SamplingHz, 11: &r.AccelX, 12: &r.AccelY, 13: &r.AccelZ,
	}
	for i, dst := range floats {
		if *dst, err = strconv.ParseFloat(record[i], 64); err != nil {
			return Reading{}, fmt.Errorf("field %s: %w", Fields[i], err)
		}
	}
	for ch := 0; ch < FlexChannels; ch++ {
		idx := 5 + ch
		if r.Flex[ch], err = strconv.Atoi(record[idx]); err != nil {
			return Reading{}, fmt.Errorf("field %s: %w", Fields[idx], err)
		}
	}
	return r, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
