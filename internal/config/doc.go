// Package config loads, normalizes, and validates stopmo configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// STOPMO_CAPTURE_DIR and STOPMO_CAMERA_DEVICE. The Config type centralizes
// every knob the capture session and CLI need: where frames and artifacts
// land, camera geometry, slideshow and ghost defaults, and export tuning.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, clamped numeric ranges, and clear validation errors.
package config
