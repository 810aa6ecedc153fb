package testsupport

import (
	"context"
	"testing"

	"stopmo/internal/config"
	"stopmo/internal/history"
)

// MustOpenHistory opens the export history for cfg and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(context.Background(), cfg.HistoryPath())
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
