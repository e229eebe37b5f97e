// Package logging assembles structured slog loggers and formatting helpers used
// across Concierge components.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so transition handlers can tag
// log lines with the resource id, transition name, and correlation id of the
// gateway event being processed. A no-op logger is provided for tests.
package logging
