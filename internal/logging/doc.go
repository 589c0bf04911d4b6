// Package logging assembles structured slog loggers and formatting helpers used
// across the ugoira converter.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so encoder and workflow code can
// tag log lines with conversion IDs, strategies, and phases. The package also
// provides a no-op logger for tests and library callers that pass no logger.
package logging
