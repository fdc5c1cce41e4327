package collector

import (
	"errors"
	"math"

	"glovecap/internal/sample"
)

var (
	ErrNoReading   = errors.New("no reading received yet")
	ErrNoReference = errors.New("no posture reference captured")
)

// PostureReport compares the latest reading with the captured reference.
type PostureReport struct {
	PitchDelta float64
	RollDelta  float64
	FlexDelta  [sample.FlexChannels]int
	IMUOK      bool
	FlexOK     bool
}

// OK reports whether every channel is within tolerance.
func (p PostureReport) OK() bool { return p.IMUOK && p.FlexOK }

// SetPostureReference captures the latest reading as the starting posture.
func (c *Collector) SetPostureReference() (sample.Reading, error) {
	r, ok := c.Latest()
	if !ok {
		return sample.Reading{}, ErrNoReading
	}
	c.latestMu.Lock()
	c.postureRef = &r
	c.latestMu.Unlock()
	return r, nil
}

// CheckPosture compares the latest reading with the reference: pitch and roll
// within the configured degrees, each flex channel within the ADC tolerance.
func (c *Collector) CheckPosture() (PostureReport, error) {
	c.latestMu.RLock()
	ref := c.postureRef
	cur, ok := c.latest, c.hasLatest
	c.latestMu.RUnlock()
	if ref == nil {
		return PostureReport{}, ErrNoReference
	}
	if !ok {
		return PostureReport{}, ErrNoReading
	}

	tol := c.cfg.Posture
	rep := PostureReport{
		PitchDelta: cur.Pitch - ref.Pitch,
		RollDelta:  cur.Roll - ref.Roll,
		FlexOK:     true,
	}
	rep.IMUOK = math.Abs(rep.PitchDelta) <= tol.IMUToleranceDeg && math.Abs(rep.RollDelta) <= tol.IMUToleranceDeg
	for i := range rep.FlexDelta {
		rep.FlexDelta[i] = cur.Flex[i] - ref.Flex[i]
		if abs(rep.FlexDelta[i]) > tol.FlexTolerance {
			rep.FlexOK = false
		}
	}
	return rep, nil
}

// OrientationDelta returns the pitch, roll and yaw change from prev to cur.
// Yaw wraps into [-180, 180).
func OrientationDelta(prev, cur sample.Reading) [3]float64 {
	yaw := math.Mod(cur.Yaw-prev.Yaw+540, 360) - 180
	return [3]float64{cur.Pitch - prev.Pitch, cur.Roll - prev.Roll, yaw}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
