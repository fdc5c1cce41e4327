package buffer

import (
	"math"
	"sync/atomic"

	"glovecap/internal/sample"
)

// Default occupancy thresholds for diagnostics.
const (
	DefaultCapacity          = 100
	DefaultWarningThreshold  = 0.80
	DefaultCriticalThreshold = 0.95
)

// Queue is a bounded single-producer single-consumer FIFO of readings.
type Queue struct {
	ch       chan sample.Reading
	accepted atomic.Uint64
	dropped  atomic.Uint64
	peak     atomic.Uint64 // math.Float64bits of the highest occupancy seen

	warning  float64
	critical float64

	rates rateWindow
}

// NewQueue builds a queue with the default thresholds. A non-positive
// capacity falls back to DefaultCapacity.
func NewQueue(capacity int) *Queue {
	return NewQueueWithThresholds(capacity, DefaultWarningThreshold, DefaultCriticalThreshold)
}

// NewQueueWithThresholds builds a queue whose Level uses the given occupancy
// fractions.
func NewQueueWithThresholds(capacity int, warning, critical float64) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if warning <= 0 || warning > 1 {
		warning = DefaultWarningThreshold
	}
	if critical <= 0 || critical > 1 {
		critical = DefaultCriticalThreshold
	}
	return &Queue{
		ch:       make(chan sample.Reading, capacity),
		warning:  warning,
		critical: critical,
	}
}

// Offer enqueues r without blocking. It returns false and counts a drop when
// the queue is full; queued contents are left unchanged.
func (q *Queue) Offer(r sample.Reading) bool {
	select {
	case q.ch <- r:
		q.accepted.Add(1)
		q.notePeak()
		return true
	default:
		q.dropped.Add(1)
		q.notePeak()
		return false
	}
}

// Poll removes the oldest reading without blocking.
func (q *Queue) Poll() (sample.Reading, bool) {
	select {
	case r := <-q.ch:
		return r, true
	default:
		return sample.Reading{}, false
	}
}

// Drain discards every queued reading and returns how many were removed.
func (q *Queue) Drain() int {
	n := 0
	for {
		select {
		case <-q.ch:
			n++
		default:
			return n
		}
	}
}

// Len returns the number of queued readings.
func (q *Queue) Len() int { return len(q.ch) }

// Cap returns the fixed capacity.
func (q *Queue) Cap() int { return cap(q.ch) }

// Occupancy returns Len/Cap in [0,1].
func (q *Queue) Occupancy() float64 {
	return float64(len(q.ch)) / float64(cap(q.ch))
}

// Level classifies the current occupancy against the thresholds.
func (q *Queue) Level() Level {
	occ := q.Occupancy()
	switch {
	case occ >= q.critical:
		return LevelCritical
	case occ >= q.warning:
		return LevelWarning
	default:
		return LevelNormal
	}
}

// Dropped returns the overflow counter.
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }

// RecordRate adds an instantaneous sampling rate to the rolling window.
func (q *Queue) RecordRate(hz float64) {
	q.rates.record(hz)
}

// Stats returns a snapshot of the counters.
func (q *Queue) Stats() Stats {
	mean, n := q.rates.mean()
	return Stats{
		Accepted:      q.accepted.Load(),
		Dropped:       q.dropped.Load(),
		Size:          q.Len(),
		Capacity:      q.Cap(),
		Occupancy:     q.Occupancy(),
		PeakOccupancy: math.Float64frombits(q.peak.Load()),
		MeanRate:      mean,
		RateSamples:   n,
	}
}

func (q *Queue) notePeak() {
	occ := q.Occupancy()
	for {
		old := q.peak.Load()
		if occ <= math.Float64frombits(old) {
			return
		}
		if q.peak.CompareAndSwap(old, math.Float64bits(occ)) {
			return
		}
	}
}
