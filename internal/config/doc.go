// Package config loads, normalizes, and validates Postpilot configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, loads an optional .env file, and honours
// environment fallbacks such as DEVTO_API_KEY or GEMINI_API_KEY. The Config
// type centralizes every knob the daemon and CLI need so storage, dispatch
// timing, and platform credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical provider names, and clear validation errors.
package config
