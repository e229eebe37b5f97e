// Package api defines wire-format types and converters for the status HTTP
// API. It translates registry records and daemon status into
// transport-friendly DTOs that the CLI and other consumers can render without
// coupling to internal types.
//
// # Key Types
//
// Ticket, Task: transport representations of open tickets and tasks.
//
// DaemonStatus: running state, dispatch gate, record counts, store location,
// and the last overdue poll.
//
// Client: a small HTTP client for the daemon's status API, used by the CLI.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Task statuses are exposed as their persisted
// strings ("Open", "Completed"). Timestamps use RFC3339 with milliseconds and
// are omitted when unset.
package api
