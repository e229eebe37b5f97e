// Package config loads, normalizes, and validates Concierge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DISCORD_TOKEN. The Config type centralizes every knob the daemon and CLI
// need: where records are persisted, which guild and roles the bot serves,
// which channels receive transcripts and completion notices, and how often
// overdue tasks are checked.
//
// Configuration is read once at process start. Downstream code receives the
// sanitized *Config and never re-reads the file.
package config
