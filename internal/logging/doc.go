// Package logging assembles structured slog loggers and formatting helpers used
// across glovecap.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes standard field keys so collector code tags log lines
// with the class, episode type, port, and collection session they belong to.
// The package also provides a no-op logger for tests and wiring code that
// cannot fail, plus samplers that keep high-rate diagnostics readable.
//
// Prefer these constructors over hand-rolled slog setup to ensure new
// components emit data with the same shape as the rest of the system.
package logging
