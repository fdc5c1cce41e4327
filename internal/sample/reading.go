package sample

// FlexChannels is the number of bend sensors on the glove (thumb to little finger).
const FlexChannels = 5

// Reading is one sensor sample. Treat it as immutable once constructed.
type Reading struct {
	// DeviceMillis is the device-side monotonic millis() timestamp.
	DeviceMillis int64
	// HostMillis is the host receive time in Unix milliseconds.
	HostMillis int64

	Pitch float64
	Roll  float64
	Yaw   float64

	AccelX float64
	AccelY float64
	AccelZ float64

	// Flex holds raw ADC readings, nominally 0-1023.
	Flex [FlexChannels]int

	// SamplingHz is the instantaneous rate derived from the previous device timestamp.
	SamplingHz float64
}

// Orientation returns pitch, roll and yaw in that order.
func (r Reading) Orientation() [3]float64 {
	return [3]float64{r.Pitch, r.Roll, r.Yaw}
}

// Acceleration returns the x, y and z components in that order.
func (r Reading) Acceleration() [3]float64 {
	return [3]float64{r.AccelX, r.AccelY, r.AccelZ}
}
