// Package config loads, normalizes, and validates ugoira configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// UGOIRA_OUTPUT_DIR. The Config type centralizes every knob the converter and
// CLI need, from encoder strategy order to where finished files land.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
