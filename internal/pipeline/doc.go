// Package pipeline orchestrates deck generation: style, outline, content,
// and image stages, plus single-slide regeneration and version restore.
package pipeline
