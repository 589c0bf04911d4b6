// Package workflow runs one ugoira conversion job end to end.
//
// A job reads the site metadata, extracts the frame bundle, converts the
// frames to a GIF through the strategy chain (or re-bundles them as a zip),
// delivers the file into the output directory and records the outcome in
// history. Every phase is mirrored into a progress.Store so callers can poll
// it, and progress logs are sampled into coarse buckets.
//
// Failures are wrapped with services.Wrap so the recorded history status
// (failed vs review) can be derived from the error alone.
package workflow
