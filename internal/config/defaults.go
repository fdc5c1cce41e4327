package config

import "strconv"

const (
	defaultDataDir             = "~/.local/share/glovecap/datasets/unified"
	defaultLogDir              = "~/.local/share/glovecap/logs"
	defaultProgressFileName    = "collection_progress.json"
	defaultBaudRate            = 115200
	defaultSettleMillis        = 2000
	defaultHandshakePolls      = 3
	defaultHandshakeIntervalMS = 300
	defaultTargetHz            = 33.3
	defaultToleranceHz         = 0.2
	defaultControlIntervalMS   = 100
	defaultRateWindow          = 10
	defaultIncrease            = 1.1
	defaultDecrease            = 0.9
	defaultMinSleepMS          = 1
	defaultMaxSleepMS          = 100
	defaultBufferCapacity      = 100
	defaultWarningThreshold    = 0.80
	defaultCriticalThreshold   = 0.95
	defaultDebugIntervalMS     = 1000
	defaultDropLogInterval     = 50
	defaultSamplesPerEpisode   = 80
	defaultEpisodesPerType     = 12
	defaultDeviceID            = "SIGNGLOVE_UNIFIED_001"
	defaultIMUToleranceDeg     = 5.0
	defaultFlexTolerance       = 20
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

func defaultEpisodeTypes() []EpisodeType {
	return []EpisodeType{
		{ID: "1", Description: "fingers fully extended"},
		{ID: "2", Description: "fingers slightly extended"},
		{ID: "3", Description: "neutral"},
		{ID: "4", Description: "fingers slightly curled"},
		{ID: "5", Description: "fingers fully curled"},
	}
}

func defaultCategories() []Category {
	numbers := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		numbers = append(numbers, strconv.Itoa(i))
	}
	return []Category{
		{Name: "consonant", Classes: []string{"ㄱ", "ㄴ", "ㄷ", "ㄹ", "ㅁ", "ㅂ", "ㅅ", "ㅇ", "ㅈ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ"}},
		{Name: "vowel", Classes: []string{"ㅏ", "ㅑ", "ㅓ", "ㅕ", "ㅗ", "ㅛ", "ㅜ", "ㅠ", "ㅡ", "ㅣ"}},
		{Name: "number", Classes: numbers},
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Serial: Serial{
			BaudRate:            defaultBaudRate,
			SettleMillis:        defaultSettleMillis,
			HandshakePolls:      defaultHandshakePolls,
			HandshakeIntervalMS: defaultHandshakeIntervalMS,
		},
		Pacing: Pacing{
			TargetHz:          defaultTargetHz,
			ToleranceHz:       defaultToleranceHz,
			ControlIntervalMS: defaultControlIntervalMS,
			Window:            defaultRateWindow,
			Increase:          defaultIncrease,
			Decrease:          defaultDecrease,
			MinSleepMS:        defaultMinSleepMS,
			MaxSleepMS:        defaultMaxSleepMS,
		},
		Buffer: Buffer{
			Capacity:          defaultBufferCapacity,
			WarningThreshold:  defaultWarningThreshold,
			CriticalThreshold: defaultCriticalThreshold,
			Debug:             true,
			DebugIntervalMS:   defaultDebugIntervalMS,
			DropLogInterval:   defaultDropLogInterval,
		},
		Collection: Collection{
			SamplesPerEpisode: defaultSamplesPerEpisode,
			EpisodesPerType:   defaultEpisodesPerType,
			DeviceID:          defaultDeviceID,
			EpisodeTypes:      defaultEpisodeTypes(),
			Categories:        defaultCategories(),
		},
		Posture: Posture{
			IMUToleranceDeg: defaultIMUToleranceDeg,
			FlexTolerance:   defaultFlexTolerance,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
