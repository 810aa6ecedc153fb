package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"stopmo/internal/config"
	"stopmo/internal/history"
	"stopmo/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// runLogger is the per-invocation logger and the id tagging its records.
type runLogger struct {
	logger    *slog.Logger
	sessionID string
	path      string
}

// newRunLogger writes to stderr and a per-run file under log_dir, then prunes
// files older than the retention window.
func (c *commandContext) newRunLogger(stderr io.Writer) (*runLogger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	logger, path, err := logging.NewFromConfig(cfg, id)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	if path == "" {
		fmt.Fprintln(stderr, "warn: log_dir not set; logging to stderr only")
	}
	logging.PruneSessionLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, path)
	return &runLogger{logger: logger, sessionID: id, path: path}, nil
}

// openHistory opens the export history. Failures are logged and yield nil so
// exports still land in output_dir.
func openHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := history.Open(ctx, cfg.HistoryPath())
	if err != nil {
		logging.WarnWithContext(logger, "export history unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check state_dir permissions or remove a stale history.db"),
			logging.String(logging.FieldImpact, "exports will not appear in stopmo exports"),
		)
		return nil
	}
	return store
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
