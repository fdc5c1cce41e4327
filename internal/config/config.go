package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	LogDir       string `toml:"log_dir"`
	ProgressFile string `toml:"progress_file"`
}

// Serial contains configuration for the glove's serial link.
type Serial struct {
	Port                string `toml:"port"`
	BaudRate            int    `toml:"baud_rate"`
	SettleMillis        int    `toml:"settle_ms"`
	HandshakePolls      int    `toml:"handshake_polls"`
	HandshakeIntervalMS int    `toml:"handshake_interval_ms"`
	AutoRecal           bool   `toml:"auto_recal"`
	AutoYawZero         bool   `toml:"auto_yawzero"`
	AutoZero            bool   `toml:"auto_zero"`
	RawEcho             bool   `toml:"raw_echo"`
}

// Pacing contains the producer rate-control loop settings.
type Pacing struct {
	TargetHz          float64 `toml:"target_hz"`
	ToleranceHz       float64 `toml:"tolerance_hz"`
	ControlIntervalMS int     `toml:"control_interval_ms"`
	Window            int     `toml:"window"`
	Increase          float64 `toml:"increase"`
	Decrease          float64 `toml:"decrease"`
	MinSleepMS        float64 `toml:"min_sleep_ms"`
	MaxSleepMS        float64 `toml:"max_sleep_ms"`
}

// Buffer contains display queue sizing and diagnostic thresholds.
type Buffer struct {
	Capacity          int     `toml:"capacity"`
	WarningThreshold  float64 `toml:"warning_threshold"`
	CriticalThreshold float64 `toml:"critical_threshold"`
	Debug             bool    `toml:"debug"`
	DebugIntervalMS   int     `toml:"debug_interval_ms"`
	DropLogInterval   int     `toml:"drop_log_interval"`
}

// EpisodeType describes one qualitative variant of a gesture.
type EpisodeType struct {
	ID          string `toml:"id"`
	Description string `toml:"description"`
}

// Category groups class labels (consonant, vowel, number).
type Category struct {
	Name    string   `toml:"name"`
	Classes []string `toml:"classes"`
}

// Collection contains the campaign taxonomy and quotas.
type Collection struct {
	SamplesPerEpisode int           `toml:"samples_per_episode"`
	EpisodesPerType   int           `toml:"episodes_per_type"`
	DeviceID          string        `toml:"device_id"`
	EpisodeTypes      []EpisodeType `toml:"episode_types"`
	Categories        []Category    `toml:"categories"`
}

// Posture contains tolerances for the initial-posture check.
type Posture struct {
	IMUToleranceDeg float64 `toml:"imu_tolerance_deg"`
	FlexTolerance   int     `toml:"flex_tolerance"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for glovecap.
//
// Configuration sections by subsystem:
//   - Paths: dataset root, log directory, progress cache
//   - Serial: port discovery, handshake and post-connect commands
//   - Pacing: producer rate controller
//   - Buffer: display queue capacity and diagnostics
//   - Collection: class taxonomy, episode types, quotas
//   - Posture: initial-posture tolerances
//   - Logging: log format, level, and retention
type Config struct {
	Paths      Paths      `toml:"paths"`
	Serial     Serial     `toml:"serial"`
	Pacing     Pacing     `toml:"pacing"`
	Buffer     Buffer     `toml:"buffer"`
	Collection Collection `toml:"collection"`
	Posture    Posture    `toml:"posture"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/glovecap/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		// Array tables append onto existing slices; normalize restores the
		// defaults when the file does not define its own taxonomy.
		cfg.Collection.EpisodeTypes = nil
		cfg.Collection.Categories = nil

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("glovecap.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for collection.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Classes returns every class label in taxonomy order. The index of a label in
// this slice is its label_idx.
func (c *Config) Classes() []string {
	var out []string
	for _, cat := range c.Collection.Categories {
		out = append(out, cat.Classes...)
	}
	return out
}

// TypeIDs returns the configured episode type identifiers in order.
func (c *Config) TypeIDs() []string {
	out := make([]string, 0, len(c.Collection.EpisodeTypes))
	for _, t := range c.Collection.EpisodeTypes {
		out = append(out, t.ID)
	}
	return out
}

// CategoryOf returns the category name owning class, or "unknown".
func (c *Config) CategoryOf(class string) string {
	for _, cat := range c.Collection.Categories {
		for _, name := range cat.Classes {
			if name == class {
				return cat.Name
			}
		}
	}
	return "unknown"
}

// ClassIndex returns the label index of class, or -1 when absent.
func (c *Config) ClassIndex(class string) int {
	for i, name := range c.Classes() {
		if name == class {
			return i
		}
	}
	return -1
}

// SettleDelay returns the post-open device reset wait.
func (s Serial) SettleDelay() time.Duration {
	return time.Duration(s.SettleMillis) * time.Millisecond
}

// HandshakeInterval returns the spacing between handshake polls.
func (s Serial) HandshakeInterval() time.Duration {
	return time.Duration(s.HandshakeIntervalMS) * time.Millisecond
}

// ControlInterval returns the rate controller period.
func (p Pacing) ControlInterval() time.Duration {
	return time.Duration(p.ControlIntervalMS) * time.Millisecond
}

// MinSleep returns the lower bound for the producer pause.
func (p Pacing) MinSleep() time.Duration {
	return time.Duration(p.MinSleepMS * float64(time.Millisecond))
}

// MaxSleep returns the upper bound for the producer pause.
func (p Pacing) MaxSleep() time.Duration {
	return time.Duration(p.MaxSleepMS * float64(time.Millisecond))
}

// DebugInterval returns the buffer diagnostics period.
func (b Buffer) DebugInterval() time.Duration {
	return time.Duration(b.DebugIntervalMS) * time.Millisecond
}
