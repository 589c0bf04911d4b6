package workflow

import (
	"strings"
	"time"

	"ugoira/internal/config"
	"ugoira/internal/ugoira"
)

// Job describes one conversion request.
type Job struct {
	// ID keys progress and history. Generated when blank.
	ID string
	// BundlePath is the ugoira zip on disk.
	BundlePath string
	// Metadata supplies frame delays. When nil, MetadataPath is read, and
	// failing that the bundle's own animation.json.
	Metadata     *ugoira.Metadata
	MetadataPath string
	Author       string
	Title        string
	// Format overrides the configured output format ("gif" or "zip").
	Format string
}

func (j Job) format(cfg *config.Config) string {
	if f := strings.ToLower(strings.TrimSpace(j.Format)); f != "" {
		return f
	}
	return cfg.Conversion.Format
}

// Outcome reports a finished job.
type Outcome struct {
	ID       string
	IllustID string
	Path     string
	Format   string
	Strategy string
	Frames   int
	Bytes    int64
	SHA256   string
	Renamed  bool
	Duration time.Duration
}
