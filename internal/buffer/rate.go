package buffer

import (
	"sync"
	"time"
)

// Controller defaults mirror the glove firmware's nominal output rate.
const (
	DefaultTargetHz        = 33.3
	DefaultToleranceHz     = 0.2
	DefaultControlInterval = 100 * time.Millisecond
	DefaultWindow          = 10
	DefaultIncrease        = 1.1
	DefaultDecrease        = 0.9
	DefaultMinSleep        = time.Millisecond
	DefaultMaxSleep        = 100 * time.Millisecond
)

// RateController adjusts the producer's per-iteration pause so the host-side
// read rate converges on Target. The observed rate must depend on the pause:
// feed it arrival times (ObserveArrival), not the device's own clock.
// Zero fields take the defaults above.
type RateController struct {
	Target    float64
	Tolerance float64
	Interval  time.Duration
	Window    int
	Increase  float64
	Decrease  float64
	MinSleep  time.Duration
	MaxSleep  time.Duration

	mu          sync.Mutex
	sleep       time.Duration
	rates       []float64
	lastTick    time.Time
	lastArrival time.Time
	started     bool
}

// NewRateController returns a controller with default parameters. The pause
// starts at MinSleep and grows only when reads outpace the target.
func NewRateController() *RateController {
	rc := &RateController{}
	rc.applyDefaults()
	return rc
}

func (rc *RateController) applyDefaults() {
	if rc.Target <= 0 {
		rc.Target = DefaultTargetHz
	}
	if rc.Tolerance < 0 {
		rc.Tolerance = 0
	} else if rc.Tolerance == 0 {
		rc.Tolerance = DefaultToleranceHz
	}
	if rc.Interval <= 0 {
		rc.Interval = DefaultControlInterval
	}
	if rc.Window <= 0 {
		rc.Window = DefaultWindow
	}
	if rc.Increase < 1 {
		rc.Increase = DefaultIncrease
	}
	if rc.Decrease <= 0 || rc.Decrease > 1 {
		rc.Decrease = DefaultDecrease
	}
	if rc.MinSleep <= 0 {
		rc.MinSleep = DefaultMinSleep
	}
	if rc.MaxSleep < rc.MinSleep {
		rc.MaxSleep = DefaultMaxSleep
	}
	if rc.sleep == 0 {
		rc.sleep = rc.MinSleep
	}
}

// Observe records one instantaneous sampling rate. Non-positive rates, such as
// the first sample of a stream, are ignored.
func (rc *RateController) Observe(hz float64) {
	if hz <= 0 {
		return
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.applyDefaults()
	rc.observeLocked(hz)
}

// ObserveArrival records a sample received by the host at now and observes
// the instantaneous rate 1/Δ since the previous arrival.
func (rc *RateController) ObserveArrival(now time.Time) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.applyDefaults()
	if !rc.lastArrival.IsZero() {
		if dt := now.Sub(rc.lastArrival); dt > 0 {
			rc.observeLocked(float64(time.Second) / float64(dt))
		}
	}
	rc.lastArrival = now
}

// Restart forgets observed rates and the last arrival, keeping the current
// pause. Used when a new connection starts.
func (rc *RateController) Restart() {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.rates = rc.rates[:0]
	rc.lastArrival = time.Time{}
	rc.started = false
}

func (rc *RateController) observeLocked(hz float64) {
	rc.rates = append(rc.rates, hz)
	if over := len(rc.rates) - rc.Window; over > 0 {
		rc.rates = append(rc.rates[:0], rc.rates[over:]...)
	}
}

// Tick runs one control step if at least Interval has elapsed since the last
// one. It returns the resulting pause and whether a step ran.
func (rc *RateController) Tick(now time.Time) (time.Duration, bool) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.applyDefaults()

	if !rc.started {
		rc.started = true
		rc.lastTick = now
		return rc.sleep, false
	}
	if now.Sub(rc.lastTick) < rc.Interval {
		return rc.sleep, false
	}
	rc.lastTick = now

	if len(rc.rates) == 0 {
		return rc.sleep, true
	}
	var sum float64
	for _, v := range rc.rates {
		sum += v
	}
	mean := sum / float64(len(rc.rates))

	switch {
	case mean > rc.Target+rc.Tolerance:
		rc.sleep = rc.clamp(time.Duration(float64(rc.sleep) * rc.Increase))
	case mean < rc.Target-rc.Tolerance:
		rc.sleep = rc.clamp(time.Duration(float64(rc.sleep) * rc.Decrease))
	}
	return rc.sleep, true
}

// Sleep returns the current per-iteration pause.
func (rc *RateController) Sleep() time.Duration {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.applyDefaults()
	return rc.sleep
}

// SetSleep overrides the current pause, clamped to the bounds.
func (rc *RateController) SetSleep(d time.Duration) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.applyDefaults()
	rc.sleep = rc.clamp(d)
}

// MeanRate returns the mean of the controller's window, or 0 when empty.
func (rc *RateController) MeanRate() float64 {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if len(rc.rates) == 0 {
		return 0
	}
	var sum float64
	for _, v := range rc.rates {
		sum += v
	}
	return sum / float64(len(rc.rates))
}

func (rc *RateController) clamp(d time.Duration) time.Duration {
	if d < rc.MinSleep {
		return rc.MinSleep
	}
	if d > rc.MaxSleep {
		return rc.MaxSleep
	}
	return d
}
