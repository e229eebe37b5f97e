// Package main hosts the concierge CLI.
//
// The command tree runs the daemon in the foreground, reads tickets and tasks
// through the daemon's status API (or straight from the store when the daemon
// is down), and scaffolds configuration. Behavior lives in the internal
// packages; commands here only resolve config and render output.
package main
