// Package logging wraps log/slog with the attribute helpers, standardized
// field keys, and context propagation used across deckhand components.
package logging
