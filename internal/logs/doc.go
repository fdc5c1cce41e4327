// Package logs reads the collector's log file for the "glovecap logs"
// command.
//
// Tail returns the last N lines with bounded memory; Follow polls from an
// offset and restarts from the beginning when lumberjack rotates the file
// underneath it. Both accept an optional line filter so a single session's
// records can be isolated by session_id.
package logs
