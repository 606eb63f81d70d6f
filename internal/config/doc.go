// Package config loads, normalizes, and validates gametime configuration data.
//
// It supplies repository defaults (dataset folder, 14 day artifact retention,
// the tracked Steam games), expands user paths, reads TOML files, and honours
// environment fallbacks such as STEAM_API_KEY. Credentials are never compiled
// into the binary; the Steam key must come from the config file or the
// environment.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
