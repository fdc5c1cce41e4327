// Package config loads, normalizes, and validates glovecap configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GLOVECAP_PORT. The Config type centralizes every knob the collector and CLI
// need: serial link settings, pacing targets, buffer thresholds, the class
// taxonomy and per-type quotas.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
