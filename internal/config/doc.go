// Package config loads, normalizes, and validates opptrace configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPPTRACE_SCORING_API_KEY. The Config type centralizes every knob the daemon
// and CLI need: directories, provider credentials, stage concurrency, and the
// summary suppression policy.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
