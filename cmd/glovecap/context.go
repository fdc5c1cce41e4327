package main

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"glovecap/internal/collector"
	"glovecap/internal/config"
	"glovecap/internal/episode"
	"glovecap/internal/logging"
	"glovecap/internal/progress"
	"glovecap/internal/storage"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	sessionID string

	// dialer replaces the serial dialer in tests.
	dialer collector.Dialer
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
		sessionID:    uuid.NewString(),
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil {
			if level := strings.ToLower(strings.TrimSpace(*c.logLevelFlag)); level != "" {
				cfg.Logging.Level = level
			}
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// newLogger builds the session logger and prunes rotated log files past the
// configured retention.
func (c *commandContext) newLogger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewFromConfig(cfg, c.sessionID)
	if err != nil {
		return nil, err
	}
	if cfg.Paths.LogDir != "" {
		logging.PruneRotatedLogs(logger, filepath.Join(cfg.Paths.LogDir, "glovecap.log"), cfg.Logging.RetentionDays, time.Now())
	}
	return logger, nil
}

// openCollector locks the data root and opens a collector for this session.
// rawEcho, when set, receives every raw serial line.
func (c *commandContext) openCollector(ctx context.Context, logger *slog.Logger, rawEcho func(string), onEvent func(episode.Event)) (*collector.Collector, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	dialer := c.dialer
	if dialer == nil {
		dialer = collector.SerialDialer(cfg, logger, rawEcho)
	}
	return collector.New(ctx, collector.Options{
		Config:    cfg,
		Logger:    logger,
		Dialer:    dialer,
		SessionID: c.sessionID,
		OnEvent:   onEvent,
	})
}

// openStore opens the progress store without taking the collector lock. It
// is used by read-only views.
func (c *commandContext) openStore(ctx context.Context, logger *slog.Logger) (*progress.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return progress.Open(ctx, progress.Options{
		DataRoot:     cfg.Paths.DataDir,
		ProgressFile: cfg.Paths.ProgressFile,
		Classes:      cfg.Classes(),
		Types:        cfg.TypeIDs(),
		Quota:        cfg.Collection.EpisodesPerType,
		Extensions:   storage.Extensions(),
		Logger:       logger,
	})
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
