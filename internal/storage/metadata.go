package storage

import (
	"time"

	"glovecap/internal/sample"
)

// Metadata describes one episode independently of its readings.
type Metadata struct {
	Class       string
	EpisodeType string
	Category    string
	Label       string
	LabelIndex  int
	DeviceID    string
	SessionID   string
	StartedAt   time.Time
	Duration    time.Duration
}

// Attribute keys stored in the container.
const (
	AttrClassName       = "class_name"
	AttrEpisodeType     = "episode_type"
	AttrClassCategory   = "class_category"
	AttrEpisodeDuration = "episode_duration"
	AttrNumSamples      = "num_samples"
	AttrAvgSamplingRate = "avg_sampling_rate"
	AttrDeviceID        = "device_id"
	AttrCollectionDate  = "collection_date"
	AttrLabel           = "label"
	AttrLabelIndex      = "label_idx"
	AttrSessionID       = "session_id"
	AttrFieldsVersion   = "fields_version"
)

// Dataset names stored in the container. "/" separates groups.
const (
	DatasetTimestamps       = "timestamps"
	DatasetDeviceTimestamps = "arduino_timestamps"
	DatasetSamplingRates    = "sampling_rates"
	DatasetSensorData       = "sensor_data"
	DatasetFlex             = "sensors/flex"
	DatasetOrientation      = "sensors/orientation"
	DatasetAcceleration     = "sensors/acceleration"

	sensorDataCols       = sample.FlexChannels + 3
	collectionDateLayout = time.RFC3339
)

// AverageRate returns the mean of the positive sampling rates in readings.
// The first reading of a stream carries 0 Hz and is skipped.
func AverageRate(readings []sample.Reading) float64 {
	var (
		sum float64
		n   int
	)
	for _, r := range readings {
		if r.SamplingHz > 0 {
			sum += r.SamplingHz
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
