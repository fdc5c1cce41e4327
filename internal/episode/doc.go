// Package episode segments the live sample stream into fixed-length labelled
// episodes.
//
// A Recorder is fed directly by the producer goroutine. When an episode
// reaches its sample target it is persisted, counted, and the same
// (class, type) pair restarts automatically until its quota is met.
package episode
