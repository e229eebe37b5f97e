package config

import (
	"errors"
	"fmt"
	"regexp"
)

var reasonPattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTickets(); err != nil {
		return err
	}
	if err := c.validateTasks(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// RequireGateway reports whether the settings needed to connect to the chat
// gateway are present. Only the daemon calls it; read-only CLI commands work
// without credentials.
func (c *Config) RequireGateway() error {
	if c.Discord.Token == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/concierge/config.toml"
		}
		return fmt.Errorf("discord.token is required. Set DISCORD_TOKEN env var or edit %s (create with 'concierge config init')", defaultPath)
	}
	if c.Discord.GuildID == "" {
		return errors.New("discord.guild_id is required")
	}
	if c.Discord.StaffRoleID == "" {
		return errors.New("discord.staff_role_id is required")
	}
	return nil
}

func (c *Config) validateTickets() error {
	for _, reason := range c.Tickets.Reasons {
		if !reasonPattern.MatchString(reason) {
			return fmt.Errorf("tickets.reasons: %q must contain only lowercase letters, digits, and underscores", reason)
		}
		if len(reason) > 80 {
			return fmt.Errorf("tickets.reasons: %q exceeds 80 characters", reason)
		}
	}
	if c.Tickets.TranscriptLimit < 1 || c.Tickets.TranscriptLimit > maxTranscriptLimit {
		return fmt.Errorf("tickets.transcript_limit must be between 1 and %d", maxTranscriptLimit)
	}
	return nil
}

func (c *Config) validateTasks() error {
	if c.Tasks.OverduePollInterval < 1 {
		return errors.New("tasks.overdue_poll_interval must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case StorageJSON, StorageSQLite:
		return nil
	default:
		return fmt.Errorf("storage.backend: unsupported value %q (want %q or %q)", c.Storage.Backend, StorageJSON, StorageSQLite)
	}
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
