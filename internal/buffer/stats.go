package buffer

import "sync"

// RateWindowSize bounds the rolling window of observed sampling rates.
const RateWindowSize = 100

// Level classifies queue occupancy for diagnostics.
type Level int

const (
	LevelNormal Level = iota
	LevelWarning
	LevelCritical
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "normal"
	}
}

// Stats is a point-in-time copy of queue counters.
type Stats struct {
	Accepted      uint64
	Dropped       uint64
	Size          int
	Capacity      int
	Occupancy     float64
	PeakOccupancy float64
	MeanRate      float64
	RateSamples   int
}

// LossPercent reports dropped samples as a percentage of everything offered.
func (s Stats) LossPercent() float64 {
	total := s.Accepted + s.Dropped
	if total == 0 {
		return 0
	}
	return float64(s.Dropped) / float64(total) * 100
}

// rateWindow is a fixed ring of the most recent sampling rates.
type rateWindow struct {
	mu     sync.Mutex
	values [RateWindowSize]float64
	next   int
	filled int
}

func (w *rateWindow) record(hz float64) {
	w.mu.Lock()
	w.values[w.next] = hz
	w.next = (w.next + 1) % RateWindowSize
	if w.filled < RateWindowSize {
		w.filled++
	}
	w.mu.Unlock()
}

func (w *rateWindow) mean() (float64, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.filled == 0 {
		return 0, 0
	}
	var sum float64
	for i := 0; i < w.filled; i++ {
		sum += w.values[i]
	}
	return sum / float64(w.filled), w.filled
}
