// Package buffer holds the bounded display queue that sits between the serial
// producer and the interactive consumer, plus the feedback controller that
// paces the producer toward the target sampling rate.
//
// The queue drops the newest sample when full. Overflow is counted, never
// returned as an error, and never blocks the producer.
package buffer
