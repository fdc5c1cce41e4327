package collector

import (
	"context"
	"time"

	"glovecap/internal/buffer"
	"glovecap/internal/logging"
)

// levelLogInterval bounds how often warning/normal flapping is reported.
// Critical transitions are always logged.
const levelLogInterval = 5 * time.Second

// runDiagnostics periodically reports queue health while connected. With
// buffer debugging off it only surfaces level transitions.
func (c *Collector) runDiagnostics(ctx context.Context) error {
	interval := c.cfg.Buffer.DebugInterval()
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	flapping := logging.NewIntervalSampler(levelLogInterval)
	lastLevel := buffer.LevelNormal
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		stats := c.queue.Stats()
		level := c.queue.Level()
		if level != lastLevel {
			if level == buffer.LevelCritical || flapping.ShouldLog(c.now()) {
				c.reportLevel(level, stats)
			}
			lastLevel = level
		}
		if !c.cfg.Buffer.Debug {
			continue
		}
		c.logger.Debug("buffer status",
			logging.String(logging.FieldEventType, "buffer_status"),
			logging.Int("size", stats.Size),
			logging.Int("capacity", stats.Capacity),
			logging.Float64("occupancy", stats.Occupancy),
			logging.Float64("peak_occupancy", stats.PeakOccupancy),
			logging.Uint64("accepted", stats.Accepted),
			logging.Uint64("dropped", stats.Dropped),
			logging.Float64("loss_percent", stats.LossPercent()),
			logging.Float64("mean_rate_hz", stats.MeanRate),
			logging.Duration("sleep", c.rate.Sleep()),
			logging.Uint64("rejected_lines", c.rejected.Load()),
		)
	}
}

func (c *Collector) reportLevel(level buffer.Level, stats buffer.Stats) {
	attrs := []logging.Attr{
		logging.String("level", level.String()),
		logging.Float64("occupancy", stats.Occupancy),
		logging.Uint64("dropped", stats.Dropped),
	}
	switch level {
	case buffer.LevelCritical:
		attrs = append(attrs,
			logging.Alert("buffer_critical"),
			logging.String(logging.FieldErrorHint, "close other programs reading the display or lower the sampling rate"),
			logging.String(logging.FieldImpact, "display samples are being dropped"),
		)
		logging.WarnWithContext(c.logger, "display queue critical", "buffer_level", attrs...)
	case buffer.LevelWarning:
		attrs = append(attrs,
			logging.String(logging.FieldErrorHint, "display consumer is falling behind"),
			logging.String(logging.FieldImpact, "drops likely if occupancy keeps rising"),
		)
		logging.WarnWithContext(c.logger, "display queue filling", "buffer_level", attrs...)
	default:
		attrs = append(attrs, logging.String(logging.FieldEventType, "buffer_level"))
		c.logger.Info("display queue back to normal", logging.Args(attrs...)...)
	}
}
