package testsupport

import (
	"context"
	"testing"
	"time"

	"ugoira/internal/config"
	"ugoira/internal/history"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddRecord inserts a completed record with the given id and finish time.
func AddRecord(t testing.TB, store *history.Store, id string, finished time.Time) history.Record {
	t.Helper()

	rec := history.Record{
		ID:         id,
		Author:     "tester",
		Title:      id,
		Format:     config.FormatGIF,
		Strategy:   config.StrategyFast,
		Frames:     3,
		Bytes:      1024,
		Status:     history.StatusCompleted,
		StartedAt:  finished.Add(-time.Second),
		FinishedAt: finished,
	}
	if err := store.Add(context.Background(), rec); err != nil {
		t.Fatalf("store.Add: %v", err)
	}
	return rec
}
