package workflow

import (
	"fmt"
	"log/slog"
	"strings"

	"ugoira/internal/logging"
	"ugoira/internal/preflight"
	"ugoira/internal/services"
)

// runPreflightChecks creates and verifies the output, data and log directories before a
// job writes anything.
func (m *Manager) runPreflightChecks(logger *slog.Logger) error {
	if err := m.cfg.EnsureDirectories(); err != nil {
		return services.Wrap(services.ErrConfiguration, "preflight", "create directories", "", err)
	}
	results := preflight.RunAll(m.cfg)
	var failures []string
	for _, r := range results {
		if r.Passed {
			logger.Debug("preflight check passed",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
				logging.String(logging.FieldEventType, "preflight_passed"),
			)
			continue
		}
		logger.Error("preflight check failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.String(logging.FieldEventType, "preflight_failed"),
			logging.String(logging.FieldErrorHint, "fix the reported directory and retry"),
		)
		failures = append(failures, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	if len(failures) > 0 {
		return services.Wrap(services.ErrConfiguration, "preflight", "check directories", strings.Join(failures, "; "), nil)
	}
	return nil
}
