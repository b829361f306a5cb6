// Package deck is the durable state layer: projects, themes, outlines,
// slides, and slide image versions stored in SQLite. All writes that must be
// atomic with a status change happen inside a single transaction here.
package deck
