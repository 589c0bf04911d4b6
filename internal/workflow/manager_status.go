package workflow

import (
	"context"
	"fmt"

	"ugoira/internal/history"
	"ugoira/internal/preflight"
	"ugoira/internal/progress"
)

// StatusSummary is the snapshot behind `ugoira status`.
type StatusSummary struct {
	Preflight      []preflight.Result
	HistoryEnabled bool
	Completed      int
	ByStatus       map[history.Status]int
	Active         []progress.Entry
}

// Status gathers directory checks, history counters and live progress.
func (m *Manager) Status(ctx context.Context) (*StatusSummary, error) {
	m.progress.Prune()
	summary := &StatusSummary{
		Preflight:      preflight.RunAll(m.cfg),
		HistoryEnabled: m.cfg.History.Enabled && m.history != nil,
		Active:         m.progress.List(),
	}
	if !summary.HistoryEnabled {
		return summary, nil
	}
	n, err := m.history.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("history count: %w", err)
	}
	stats, err := m.history.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("history stats: %w", err)
	}
	summary.Completed = n
	summary.ByStatus = stats
	return summary, nil
}
