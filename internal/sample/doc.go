// Package sample defines the glove Reading value and the parser that turns one
// line of the device's ASCII stream into it.
//
// The wire line carries exactly twelve comma-separated fields:
//
//	device_timestamp_ms,pitch,roll,yaw,accel_x,accel_y,accel_z,flex1,flex2,flex3,flex4,flex5
//
// Lines with any other field count, or with a field that fails numeric
// conversion, are rejected without error. The parser derives an instantaneous
// sampling rate from consecutive device timestamps.
//
// Fields is the single, versioned column order shared by every persisted
// episode format.
package sample
