// Package config loads, normalizes, and validates the TOML configuration
// shared by the deckhand daemon and CLI.
package config
