package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeDiscord()
	c.normalizeTickets()
	c.normalizeTasks()
	c.normalizeStorage()
	c.normalizeAPI()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeDiscord() {
	c.Discord.Token = strings.TrimSpace(c.Discord.Token)
	if c.Discord.Token == "" {
		if value, ok := os.LookupEnv("DISCORD_TOKEN"); ok {
			c.Discord.Token = strings.TrimSpace(value)
		}
	}
	c.Discord.GuildID = strings.TrimSpace(c.Discord.GuildID)
	if c.Discord.GuildID == "" {
		if value, ok := os.LookupEnv("DISCORD_GUILD_ID"); ok {
			c.Discord.GuildID = strings.TrimSpace(value)
		}
	}
	c.Discord.StaffRoleID = strings.TrimSpace(c.Discord.StaffRoleID)
	c.Discord.TranscriptChannelID = strings.TrimSpace(c.Discord.TranscriptChannelID)
	c.Discord.CompletionChannelID = strings.TrimSpace(c.Discord.CompletionChannelID)
	c.Discord.TaskRoleIDs = dedupe(c.Discord.TaskRoleIDs, strings.TrimSpace)
}

func (c *Config) normalizeTickets() {
	c.Tickets.Category = strings.TrimSpace(c.Tickets.Category)
	if c.Tickets.Category == "" {
		c.Tickets.Category = defaultTicketCategory
	}
	c.Tickets.Reasons = dedupe(c.Tickets.Reasons, func(s string) string {
		return strings.ToLower(strings.TrimSpace(s))
	})
	if len(c.Tickets.Reasons) == 0 {
		c.Tickets.Reasons = append([]string(nil), defaultTicketReasons...)
	}
	if c.Tickets.TranscriptLimit == 0 {
		c.Tickets.TranscriptLimit = defaultTranscriptLimit
	}
}

func (c *Config) normalizeTasks() {
	c.Tasks.Category = strings.TrimSpace(c.Tasks.Category)
	if c.Tasks.Category == "" {
		c.Tasks.Category = defaultTaskCategory
	}
	if c.Tasks.OverduePollInterval == 0 {
		c.Tasks.OverduePollInterval = defaultOverduePollInterval
	}
}

func (c *Config) normalizeStorage() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	if c.Storage.Backend == "" {
		c.Storage.Backend = defaultStorageBackend
	}
}

func (c *Config) normalizeAPI() {
	c.API.Bind = strings.TrimSpace(c.API.Bind)
	if c.API.Bind == "" {
		c.API.Bind = defaultAPIBind
	}
	c.API.Token = strings.TrimSpace(c.API.Token)
	if c.API.Token == "" {
		if value, ok := os.LookupEnv("CONCIERGE_API_TOKEN"); ok {
			c.API.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyTimeout
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func dedupe(values []string, canon func(string) string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		normalized := canon(value)
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		out = append(out, normalized)
	}
	return out
}
