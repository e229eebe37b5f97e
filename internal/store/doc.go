// Package store persists the record Collection as two whole documents:
// tickets.json, an object keyed by resource id, and tasks.json, an object
// holding a "tasks" array.
//
// Two backends share the document encoding. The json backend writes each
// document to its own file with a temp-file rename under a flock so the CLI
// can read while the daemon writes. The sqlite backend keeps both documents in
// one table and replaces them in a single transaction.
//
// Load fails soft: a missing document yields an empty collection. A document
// that exists but cannot be decoded is an error, so a damaged file is never
// silently replaced by an empty one.
package store
