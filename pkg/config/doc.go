// Package config loads the intake service configuration from an optional
// YAML file and applies environment variable overrides on top of it.
package config
