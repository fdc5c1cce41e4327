package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeSerial()
	c.normalizePacing()
	c.normalizeBuffer()
	c.normalizeCollection()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("GLOVECAP_DATA_DIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DataDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.ProgressFile) == "" {
		c.Paths.ProgressFile = filepath.Join(c.Paths.DataDir, defaultProgressFileName)
	}
	if c.Paths.ProgressFile, err = expandPath(c.Paths.ProgressFile); err != nil {
		return fmt.Errorf("paths.progress_file: %w", err)
	}
	return nil
}

func (c *Config) normalizeSerial() {
	if value, ok := os.LookupEnv("GLOVECAP_PORT"); ok && strings.TrimSpace(c.Serial.Port) == "" {
		c.Serial.Port = value
	}
	c.Serial.Port = strings.TrimSpace(c.Serial.Port)
	if c.Serial.BaudRate <= 0 {
		c.Serial.BaudRate = defaultBaudRate
	}
	if c.Serial.SettleMillis < 0 {
		c.Serial.SettleMillis = 0
	}
	if c.Serial.HandshakePolls <= 0 {
		c.Serial.HandshakePolls = defaultHandshakePolls
	}
	if c.Serial.HandshakeIntervalMS <= 0 {
		c.Serial.HandshakeIntervalMS = defaultHandshakeIntervalMS
	}
}

func (c *Config) normalizePacing() {
	if c.Pacing.TargetHz <= 0 {
		c.Pacing.TargetHz = defaultTargetHz
	}
	if c.Pacing.ToleranceHz < 0 {
		c.Pacing.ToleranceHz = defaultToleranceHz
	}
	if c.Pacing.ControlIntervalMS <= 0 {
		c.Pacing.ControlIntervalMS = defaultControlIntervalMS
	}
	if c.Pacing.Window <= 0 {
		c.Pacing.Window = defaultRateWindow
	}
	if c.Pacing.Increase <= 0 {
		c.Pacing.Increase = defaultIncrease
	}
	if c.Pacing.Decrease <= 0 {
		c.Pacing.Decrease = defaultDecrease
	}
	if c.Pacing.MinSleepMS <= 0 {
		c.Pacing.MinSleepMS = defaultMinSleepMS
	}
	if c.Pacing.MaxSleepMS <= 0 {
		c.Pacing.MaxSleepMS = defaultMaxSleepMS
	}
}

func (c *Config) normalizeBuffer() {
	if c.Buffer.Capacity <= 0 {
		c.Buffer.Capacity = defaultBufferCapacity
	}
	if c.Buffer.WarningThreshold <= 0 {
		c.Buffer.WarningThreshold = defaultWarningThreshold
	}
	if c.Buffer.CriticalThreshold <= 0 {
		c.Buffer.CriticalThreshold = defaultCriticalThreshold
	}
	if c.Buffer.DebugIntervalMS <= 0 {
		c.Buffer.DebugIntervalMS = defaultDebugIntervalMS
	}
	if c.Buffer.DropLogInterval <= 0 {
		c.Buffer.DropLogInterval = defaultDropLogInterval
	}
}

// normalizeCollection NFC-normalizes labels so that directory names written on
// one platform match the taxonomy on another (macOS stores decomposed Hangul).
func (c *Config) normalizeCollection() {
	if c.Collection.SamplesPerEpisode <= 0 {
		c.Collection.SamplesPerEpisode = defaultSamplesPerEpisode
	}
	if c.Collection.EpisodesPerType <= 0 {
		c.Collection.EpisodesPerType = defaultEpisodesPerType
	}
	c.Collection.DeviceID = strings.TrimSpace(c.Collection.DeviceID)
	if c.Collection.DeviceID == "" {
		c.Collection.DeviceID = defaultDeviceID
	}
	if len(c.Collection.EpisodeTypes) == 0 {
		c.Collection.EpisodeTypes = defaultEpisodeTypes()
	}
	for i := range c.Collection.EpisodeTypes {
		c.Collection.EpisodeTypes[i].ID = NormalizeLabel(c.Collection.EpisodeTypes[i].ID)
	}
	if len(c.Collection.Categories) == 0 {
		c.Collection.Categories = defaultCategories()
	}
	for i := range c.Collection.Categories {
		cat := &c.Collection.Categories[i]
		cat.Name = strings.ToLower(strings.TrimSpace(cat.Name))
		for j := range cat.Classes {
			cat.Classes[j] = NormalizeLabel(cat.Classes[j])
		}
	}
	if c.Posture.IMUToleranceDeg <= 0 {
		c.Posture.IMUToleranceDeg = defaultIMUToleranceDeg
	}
	if c.Posture.FlexTolerance <= 0 {
		c.Posture.FlexTolerance = defaultFlexTolerance
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}

// NormalizeLabel trims and NFC-normalizes a class or episode-type label.
func NormalizeLabel(label string) string {
	return norm.NFC.String(strings.TrimSpace(label))
}
