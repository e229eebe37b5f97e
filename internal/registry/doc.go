// Package registry holds the authoritative in-memory map of tickets and tasks
// and is the only component that writes to the durable store.
//
// Every mutation is followed by a save of the full collection before the
// mutating call returns. Saves are funnelled through one writer goroutine
// that snapshots the collection when it runs, so concurrent mutations on
// different records never race on the file and later snapshots always
// include earlier mutations. A failed save leaves the mutation in memory and
// is reported to the caller as services.ErrPersistence.
//
// Exclusive provides the per-record critical section transition handlers use
// to serialize read-check-act sequences on one resource id.
package registry
