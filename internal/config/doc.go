// Package config loads, normalizes, and validates fieldscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OPENAI_API_KEY and FIELDSCRIBE_STORAGE_ENDPOINT. The Config type centralizes
// every knob the pipeline and CLI need so storage locations, transcription
// credentials and label markers are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
