// Package config loads, normalizes, and validates newsreel configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// GEMINI_API_KEY and YOUTUBE_REFRESH_TOKEN. The Config type centralizes every
// knob the pipeline stages and CLI need so that credentials and artifact
// directories are discovered in one pass, before any stage is constructed.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
