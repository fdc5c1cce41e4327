package collector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"glovecap/internal/logging"
	"glovecap/internal/serialport"
)

// runProducer reads lines until ctx is cancelled or the source goes away.
// Every accepted reading reaches the recorder; the display queue only gets
// what fits.
func (c *Collector) runProducer(ctx context.Context, src LineSource) error {
	drops := logging.NewCountSampler(c.cfg.Buffer.DropLogInterval)
	dropRun := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		line, ok, err := src.ReadLine()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, serialport.ErrClosed) {
				logging.WarnWithContext(c.logger, "glove connection lost", "serial_connection_lost",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the USB cable and reconnect"),
					logging.String(logging.FieldImpact, "collection stopped; the open episode is saved on disconnect"),
				)
			}
			return fmt.Errorf("read line: %w", err)
		}

		if ok {
			reading, accepted := c.parser.Parse(line)
			if !accepted {
				c.rejected.Add(1)
				c.metrics.linesRejected.Inc()
			} else {
				c.setLatest(reading)
				c.recorder.Feed(ctx, reading)

				if c.queue.Offer(reading) {
					c.metrics.samplesAccepted.Inc()
					dropRun = 0
				} else {
					c.metrics.samplesDropped.Inc()
					dropRun++
					if drops.ShouldLog(dropRun) {
						c.logger.Warn("display queue full, dropping newest sample",
							logging.String(logging.FieldEventType, "queue_drop"),
							logging.Int("consecutive_drops", dropRun),
							logging.Uint64("dropped_total", c.queue.Dropped()),
							logging.String(logging.FieldErrorHint, "display consumer is not keeping up"),
							logging.String(logging.FieldImpact, "recording unaffected; display skips samples"),
						)
					}
				}

				// Pacing follows the host read rate; the device clock only feeds
				// the display window.
				c.rate.ObserveArrival(c.now())
				if reading.SamplingHz > 0 {
					c.queue.RecordRate(reading.SamplingHz)
					c.metrics.samplingRate.Set(reading.SamplingHz)
				}
			}
			c.metrics.queueOccupancy.Set(c.queue.Occupancy())
		}

		if sleep, stepped := c.rate.Tick(c.now()); stepped {
			c.logger.Debug("producer pacing step",
				logging.String(logging.FieldEventType, "pacing_step"),
				logging.Duration("sleep", sleep),
				logging.Float64("mean_rate_hz", c.rate.MeanRate()),
			)
		}
		sleep := c.rate.Sleep()
		c.metrics.producerSleep.Set(sleep.Seconds())

		if err := pause(ctx, sleep); err != nil {
			return nil
		}
	}
}

func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
