// Package services defines shared utilities consumed by the conversion
// workflow and its collaborators.
//
// Key responsibilities:
//   - Context helpers that stamp conversion IDs, encoder strategies, job
//     phases and correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that translate failures
//     into consistent history statuses (failed vs review).
package services
