// Package daemon coordinates the long-running Concierge process.
//
// It wires configuration, the durable store, the record registry, the chat
// gateway, restart reconciliation, and the overdue poller into a single
// lifecycle with flock-based locking to prevent multiple instances. Startup is
// strictly ordered: records are loaded and reconciled before any interaction
// is dispatched, and the poller starts only after that. Stop unwinds in
// reverse and flushes the registry before releasing the lock.
//
// Keep orchestration logic here: transitions live in internal/lifecycle and
// platform calls in internal/discord while the daemon focuses on startup,
// shutdown, and status.
package daemon
