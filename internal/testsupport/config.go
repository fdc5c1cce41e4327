package testsupport

import (
	"path/filepath"
	"testing"

	"glovecap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Serial settle and pacing are shortened so pipelines run quickly.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.ProgressFile = filepath.Join(cfgVal.Paths.DataDir, "collection_progress.json")
	cfgVal.Serial.SettleMillis = 1
	cfgVal.Serial.HandshakeIntervalMS = 1
	cfgVal.Pacing.MinSleepMS = 0.1
	cfgVal.Pacing.MaxSleepMS = 1
	cfgVal.Buffer.DebugIntervalMS = 10

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithQuota sets the per-(class, type) episode target.
func WithQuota(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collection.EpisodesPerType = n
	}
}

// WithSamplesPerEpisode sets the auto-chain length.
func WithSamplesPerEpisode(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collection.SamplesPerEpisode = n
	}
}

// WithBufferCapacity sets the display queue capacity.
func WithBufferCapacity(n int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Buffer.Capacity = n
	}
}

// WithTaxonomy replaces the class taxonomy with a single category and the
// episode types with ids.
func WithTaxonomy(category string, classes []string, typeIDs ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Collection.Categories = []config.Category{{Name: category, Classes: classes}}
		if len(typeIDs) == 0 {
			return
		}
		b.cfg.Collection.EpisodeTypes = b.cfg.Collection.EpisodeTypes[:0]
		for _, id := range typeIDs {
			b.cfg.Collection.EpisodeTypes = append(b.cfg.Collection.EpisodeTypes, config.EpisodeType{ID: id})
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
