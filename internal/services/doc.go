// Package services provides shared error classification and context
// annotation helpers used by the external service clients and the
// generation pipeline.
package services
