package preflight

import (
	"context"
	"path/filepath"

	"glovecap/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks are informative; they never block a session.
	Optional bool
}

// RunAll executes every preflight check for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	if cfg.Paths.LogDir != "" {
		results = append(results, CheckDirectoryAccess("Log directory", cfg.Paths.LogDir))
	}
	results = append(results, CheckDataRootLock(filepath.Join(cfg.Paths.DataDir, ".glovecap.lock")))
	results = append(results, CheckProgressCache(cfg.Paths.ProgressFile))
	results = append(results, CheckSerialPort(ctx, cfg.Serial.Port))
	return results
}

// Blocking returns the failed checks that must pass before collecting.
func Blocking(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}
