package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Storage backends understood by the record store.
const (
	StorageJSON   = "json"
	StorageSQLite = "sqlite"
)

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// Discord contains gateway credentials and the guild-level ids the bot acts on.
type Discord struct {
	Token               string   `toml:"token"`
	GuildID             string   `toml:"guild_id"`
	StaffRoleID         string   `toml:"staff_role_id"`
	TaskRoleIDs         []string `toml:"task_role_ids"`
	TranscriptChannelID string   `toml:"transcript_channel_id"`
	CompletionChannelID string   `toml:"completion_channel_id"`
}

// Tickets contains support ticket settings.
type Tickets struct {
	Category        string   `toml:"category"`
	Reasons         []string `toml:"reasons"`
	TranscriptLimit int      `toml:"transcript_limit"`
}

// Tasks contains task tracking settings.
type Tasks struct {
	Category            string `toml:"category"`
	OverduePollInterval int    `toml:"overdue_poll_interval"`
}

// Storage selects the durable store backend.
type Storage struct {
	Backend string `toml:"backend"`
}

// API contains the local status API settings.
type API struct {
	Bind  string `toml:"bind"`
	Token string `toml:"token"`
}

// Notifications contains configuration for ntfy operator notifications.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	TaskOverdue    bool   `toml:"task_overdue"`
	TaskCompleted  bool   `toml:"task_completed"`
	TicketClosed   bool   `toml:"ticket_closed"`
	Errors         bool   `toml:"errors"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Concierge.
//
// Configuration sections by subsystem:
//   - Paths: record and log directories
//   - Discord: gateway token, guild, staff role, and target channels
//   - Tickets: ticket category, selectable reasons, transcript size
//   - Tasks: task category and overdue poll interval
//   - Storage: durable store backend (json or sqlite)
//   - API: local status API bind address and token
//   - Notifications: ntfy operator notification settings
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Discord       Discord       `toml:"discord"`
	Tickets       Tickets       `toml:"tickets"`
	Tasks         Tasks         `toml:"tasks"`
	Storage       Storage       `toml:"storage"`
	API           API           `toml:"api"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/concierge/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("concierge.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// LockPath returns the daemon single-instance lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "concierge.lock")
}

// DatabasePath returns the sqlite database file used by the sqlite backend.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.Paths.DataDir, "records.db")
}

// OverduePollInterval returns the overdue poller period.
func (c *Config) OverduePollInterval() time.Duration {
	return time.Duration(c.Tasks.OverduePollInterval) * time.Second
}

// TaskRoles returns the role ids allowed to create tasks. The staff role is
// always included when configured.
func (c *Config) TaskRoles() []string {
	roles := make([]string, 0, len(c.Discord.TaskRoleIDs)+1)
	if c.Discord.StaffRoleID != "" {
		roles = append(roles, c.Discord.StaffRoleID)
	}
	for _, id := range c.Discord.TaskRoleIDs {
		if id != c.Discord.StaffRoleID {
			roles = append(roles, id)
		}
	}
	return roles
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
