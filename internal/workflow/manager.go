package workflow

import (
	"log/slog"
	"time"

	"ugoira/internal/config"
	"ugoira/internal/converter"
	"ugoira/internal/delivery"
	"ugoira/internal/history"
	"ugoira/internal/logging"
	"ugoira/internal/progress"
)

// Manager runs conversion jobs against one configuration.
type Manager struct {
	cfg       *config.Config
	logger    *slog.Logger
	progress  *progress.Store
	history   *history.Store
	deliverer *delivery.Deliverer
	observer  func(progress.Entry)
	extraConv []converter.Option
	preflight bool
	now       func() time.Time
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithHistory records every job outcome in store.
func WithHistory(store *history.Store) ManagerOption {
	return func(m *Manager) { m.history = store }
}

// WithProgressStore shares a progress store with other callers.
func WithProgressStore(store *progress.Store) ManagerOption {
	return func(m *Manager) {
		if store != nil {
			m.progress = store
		}
	}
}

// WithObserver receives every progress update as it is stored.
func WithObserver(fn func(progress.Entry)) ManagerOption {
	return func(m *Manager) { m.observer = fn }
}

// WithConverterOptions appends converter options after the ones derived
// from configuration.
func WithConverterOptions(opts ...converter.Option) ManagerOption {
	return func(m *Manager) { m.extraConv = append(m.extraConv, opts...) }
}

// WithPreflight toggles the directory and free space checks run before each job.
func WithPreflight(enabled bool) ManagerOption {
	return func(m *Manager) { m.preflight = enabled }
}

// NewManager constructs a workflow manager.
func NewManager(cfg *config.Config, logger *slog.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	m := &Manager{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "workflow"),
		progress:  progress.NewStore(time.Duration(cfg.Progress.ExpiryMinutes) * time.Minute),
		deliverer: delivery.New(cfg, logger),
		preflight: true,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Progress exposes the store jobs report into.
func (m *Manager) Progress() *progress.Store { return m.progress }

func (m *Manager) converter(logger *slog.Logger) *converter.Converter {
	conv := m.cfg.Conversion
	opts := []converter.Option{
		converter.WithLogger(logger),
		converter.WithStrategyNames(conv.Strategies...),
		converter.WithBatchSize(conv.BatchSize),
		converter.WithWorkers(conv.Workers),
		converter.WithTarget(conv.TargetWidth, conv.TargetHeight),
		converter.WithMaxColors(conv.MaxColors),
		converter.WithBackground(m.cfg.BackgroundColor()),
	}
	return converter.New(append(opts, m.extraConv...)...)
}
