package testsupport

import (
	"fmt"
	"strings"
)

// WireLine renders one device line in firmware field order:
// timestamp,pitch,roll,yaw,accel_x,accel_y,accel_z,flex1..flex5.
func WireLine(deviceMillis int64, pitch, roll, yaw float64, flex [5]int) string {
	parts := []string{
		fmt.Sprintf("%d", deviceMillis),
		fmt.Sprintf("%.2f", pitch),
		fmt.Sprintf("%.2f", roll),
		fmt.Sprintf("%.2f", yaw),
		"0.01", "-0.02", "0.98",
	}
	for _, f := range flex {
		parts = append(parts, fmt.Sprintf("%d", f))
	}
	return strings.Join(parts, ",")
}

// WireLines returns n well-formed lines spaced periodMillis apart, starting
// at startMillis, with slowly varying angles.
func WireLines(startMillis, periodMillis int64, n int) []string {
	lines := make([]string, 0, n)
	for i := range n {
		ts := startMillis + int64(i)*periodMillis
		flex := [5]int{700 + i%7, 710, 720, 730, 740}
		lines = append(lines, WireLine(ts, float64(i%10)*0.5, -1.25, 10+float64(i%4), flex))
	}
	return lines
}
