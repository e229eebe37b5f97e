package preflight

import (
	"context"

	"concierge/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Required marks checks whose failure must stop the daemon.
	Required bool
	Detail   string
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	data := CheckDirectoryAccess("Data directory", cfg.Paths.DataDir)
	data.Required = true
	results = append(results, data)

	logs := CheckDirectoryAccess("Log directory", cfg.Paths.LogDir)
	logs.Required = true
	results = append(results, logs)

	if cfg.Discord.Token != "" {
		results = append(results, CheckDiscord(ctx, DiscordAPIBase, cfg.Discord.Token))
	}

	if cfg.Notifications.NtfyTopic != "" {
		results = append(results, CheckNtfy(ctx, cfg.Notifications.NtfyTopic))
	}

	return results
}

// FirstRequiredFailure returns the first failed required check, if any.
func FirstRequiredFailure(results []Result) (Result, bool) {
	for _, r := range results {
		if r.Required && !r.Passed {
			return r, true
		}
	}
	return Result{}, false
}
