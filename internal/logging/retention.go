package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneRotatedLogs removes rotated backups of the log file at logPath that
// are older than retentionDays. The live file is never touched. A
// retentionDays value of 0 disables pruning.
func PruneRotatedLogs(logger *slog.Logger, logPath string, retentionDays int, now time.Time) int {
	if retentionDays <= 0 || strings.TrimSpace(logPath) == "" {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)

	dir := filepath.Dir(logPath)
	ext := filepath.Ext(logPath)
	prefix := strings.TrimSuffix(filepath.Base(logPath), ext) + "-"

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		fullPath := filepath.Join(dir, name)
		if err := os.Remove(fullPath); err != nil {
			WarnWithContext(logger, "log retention remove failed; file remains", "log_retention_failed",
				String(FieldPath, fullPath),
				Error(err),
				String(FieldErrorHint, "check file permissions and log_dir ownership"),
				String(FieldImpact, "old log file remains on disk"),
			)
			continue
		}
		removed++
		if logger != nil {
			logger.Debug("log pruned",
				String(FieldPath, fullPath),
				String(FieldEventType, "log_pruned"),
			)
		}
	}
	return removed
}
