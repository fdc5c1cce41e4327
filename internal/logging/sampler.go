package logging

import (
	"sync"
	"time"
)

// IntervalSampler suppresses repetitive diagnostics so that at most one line
// is emitted per interval. The zero interval always emits.
type IntervalSampler struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewIntervalSampler constructs a sampler that emits at most once per interval.
func NewIntervalSampler(interval time.Duration) *IntervalSampler {
	return &IntervalSampler{interval: interval}
}

// ShouldLog reports whether a diagnostic observed at now should be logged.
func (s *IntervalSampler) ShouldLog(now time.Time) bool {
	if s == nil || s.interval <= 0 {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.last.IsZero() && now.Sub(s.last) < s.interval {
		return false
	}
	s.last = now
	return true
}

// Reset clears the sampler state.
func (s *IntervalSampler) Reset() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.last = time.Time{}
	s.mu.Unlock()
}

// CountSampler emits on the first event of a run and then on every Nth event,
// e.g. the 1st, 50th, 100th dropped sample.
type CountSampler struct {
	every int
}

// NewCountSampler constructs a sampler with the given repeat period (default 50).
func NewCountSampler(every int) *CountSampler {
	if every <= 0 {
		every = 50
	}
	return &CountSampler{every: every}
}

// ShouldLog reports whether the count-th event of a run should be logged.
func (s *CountSampler) ShouldLog(count int) bool {
	if s == nil {
		return true
	}
	return count == 1 || (count > 0 && count%s.every == 0)
}
