package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// PruneSessionLogs deletes stopmo session logs in dir whose last write is
// older than retentionDays and returns how many were removed. The active
// session's log is never removed. A retentionDays value of 0 keeps every log.
func PruneSessionLogs(logger *slog.Logger, dir string, retentionDays int, active string) int {
	dir = strings.TrimSpace(dir)
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	if logger == nil {
		logger = NewNop()
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	if active != "" {
		if abs, err := filepath.Abs(active); err == nil {
			active = abs
		}
	}

	matches, err := filepath.Glob(filepath.Join(dir, SessionLogPattern))
	if err != nil {
		return 0
	}
	removed := 0
	for _, path := range matches {
		if abs, err := filepath.Abs(path); err == nil {
			path = abs
		}
		if path == active {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "session log not pruned", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check log_dir ownership"),
				String(FieldImpact, "old session log stays on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 {
		logger.Info("session logs pruned",
			slog.Int("count", removed),
			String("dir", dir),
			String(FieldEventType, "log_pruned"),
		)
	}
	return removed
}
