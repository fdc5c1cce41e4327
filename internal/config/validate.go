package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validatePacing(); err != nil {
		return err
	}
	if err := c.validateBuffer(); err != nil {
		return err
	}
	if err := c.validateCollection(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validatePacing() error {
	p := c.Pacing
	if p.MinSleepMS > p.MaxSleepMS {
		return fmt.Errorf("pacing.min_sleep_ms (%g) must not exceed pacing.max_sleep_ms (%g)", p.MinSleepMS, p.MaxSleepMS)
	}
	if p.Increase < 1 {
		return fmt.Errorf("pacing.increase must be >= 1, got %g", p.Increase)
	}
	if p.Decrease > 1 {
		return fmt.Errorf("pacing.decrease must be <= 1, got %g", p.Decrease)
	}
	return nil
}

func (c *Config) validateBuffer() error {
	b := c.Buffer
	if b.WarningThreshold > 1 || b.CriticalThreshold > 1 {
		return errors.New("buffer thresholds must be ratios between 0 and 1")
	}
	if b.WarningThreshold > b.CriticalThreshold {
		return fmt.Errorf("buffer.warning_threshold (%g) must not exceed buffer.critical_threshold (%g)", b.WarningThreshold, b.CriticalThreshold)
	}
	return nil
}

func (c *Config) validateCollection() error {
	seenTypes := make(map[string]struct{}, len(c.Collection.EpisodeTypes))
	for _, t := range c.Collection.EpisodeTypes {
		if t.ID == "" {
			return errors.New("collection.episode_types: id must not be empty")
		}
		if !isPathSegment(t.ID) {
			return fmt.Errorf("collection.episode_types: id %q must be a single path segment", t.ID)
		}
		if _, dup := seenTypes[t.ID]; dup {
			return fmt.Errorf("collection.episode_types: duplicate id %q", t.ID)
		}
		seenTypes[t.ID] = struct{}{}
	}
	seenClasses := make(map[string]string)
	for _, cat := range c.Collection.Categories {
		if cat.Name == "" {
			return errors.New("collection.categories: name must not be empty")
		}
		for _, class := range cat.Classes {
			if class == "" {
				return fmt.Errorf("collection.categories[%s]: empty class label", cat.Name)
			}
			if !isPathSegment(class) {
				return fmt.Errorf("collection.categories[%s]: class %q must be a single path segment", cat.Name, class)
			}
			if other, dup := seenClasses[class]; dup {
				return fmt.Errorf("collection.categories: class %q listed in both %s and %s", class, other, cat.Name)
			}
			seenClasses[class] = cat.Name
		}
	}
	if len(seenClasses) == 0 {
		return errors.New("collection.categories: at least one class is required")
	}
	return nil
}

// isPathSegment reports whether label names exactly one directory below its
// parent: no separators and not "." or "..".
func isPathSegment(label string) bool {
	return label != "." && label != ".." && !strings.ContainsAny(label, `/\`)
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
