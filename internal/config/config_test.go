package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"

	"concierge/internal/config"
)

func TestLoadDefaultConfigExpandsPathsAndReadsEnv(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DISCORD_TOKEN", "  token-from-env ")
	t.Setenv("DISCORD_GUILD_ID", "42")
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "concierge")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Discord.Token != "token-from-env" {
		t.Fatalf("expected token from env, got %q", cfg.Discord.Token)
	}
	if cfg.Discord.GuildID != "42" {
		t.Fatalf("expected guild from env, got %q", cfg.Discord.GuildID)
	}
	if cfg.Tickets.TranscriptLimit != 200 {
		t.Fatalf("unexpected transcript limit: %d", cfg.Tickets.TranscriptLimit)
	}
	if got := strings.Join(cfg.Tickets.Reasons, ","); got != "billing,account_issues,payment_issues" {
		t.Fatalf("unexpected default reasons: %s", got)
	}
	if cfg.OverduePollInterval() != time.Minute {
		t.Fatalf("unexpected poll interval: %s", cfg.OverduePollInterval())
	}
	if cfg.Storage.Backend != config.StorageJSON {
		t.Fatalf("unexpected storage backend: %q", cfg.Storage.Backend)
	}
	if cfg.API.Bind != "127.0.0.1:7488" {
		t.Fatalf("unexpected api bind: %q", cfg.API.Bind)
	}
}

func TestLoadCustomConfigOverridesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("DISCORD_TOKEN", "")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	content := `
[paths]
data_dir = "~/records"

[discord]
token = "file-token"
guild_id = "1"
staff_role_id = " 99 "
task_role_ids = ["7", "99", "7"]

[tickets]
reasons = ["Billing", " refunds ", "billing"]
transcript_limit = 50

[tasks]
overdue_poll_interval = 30

[storage]
backend = "SQLite"

[logging]
format = "JSON"
level = "DEBUG"
`
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.DataDir != filepath.Join(tempHome, "records") {
		t.Fatalf("unexpected data dir: %q", cfg.Paths.DataDir)
	}
	if cfg.Discord.Token != "file-token" {
		t.Fatalf("file token should win over env, got %q", cfg.Discord.Token)
	}
	if got := strings.Join(cfg.Tickets.Reasons, ","); got != "billing,refunds" {
		t.Fatalf("unexpected reasons: %s", got)
	}
	if got := strings.Join(cfg.TaskRoles(), ","); got != "99,7" {
		t.Fatalf("unexpected task roles: %s", got)
	}
	if cfg.Storage.Backend != config.StorageSQLite {
		t.Fatalf("unexpected backend: %q", cfg.Storage.Backend)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected logging config: %+v", cfg.Logging)
	}
	if cfg.OverduePollInterval() != 30*time.Second {
		t.Fatalf("unexpected poll interval: %s", cfg.OverduePollInterval())
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"reason with spaces", func(c *config.Config) { c.Tickets.Reasons = []string{"bad reason"} }, "tickets.reasons"},
		{"transcript limit", func(c *config.Config) { c.Tickets.TranscriptLimit = -1 }, "tickets.transcript_limit"},
		{"poll interval", func(c *config.Config) { c.Tasks.OverduePollInterval = -5 }, "tasks.overdue_poll_interval"},
		{"backend", func(c *config.Config) { c.Storage.Backend = "postgres" }, "storage.backend"},
		{"log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestRequireGateway(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireGateway(); err == nil || !strings.Contains(err.Error(), "discord.token") {
		t.Fatalf("expected token error, got %v", err)
	}
	cfg.Discord.Token = "t"
	if err := cfg.RequireGateway(); err == nil || !strings.Contains(err.Error(), "guild_id") {
		t.Fatalf("expected guild error, got %v", err)
	}
	cfg.Discord.GuildID = "g"
	if err := cfg.RequireGateway(); err == nil || !strings.Contains(err.Error(), "staff_role_id") {
		t.Fatalf("expected staff role error, got %v", err)
	}
	cfg.Discord.StaffRoleID = "s"
	if err := cfg.RequireGateway(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var decoded config.Config
	if err := toml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("sample is not valid TOML: %v", err)
	}
	if _, _, _, err := config.Load(path); err != nil {
		t.Fatalf("sample does not load: %v", err)
	}
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
	if filepath.Dir(cfg.LockPath()) != cfg.Paths.DataDir {
		t.Fatalf("lock path outside data dir: %s", cfg.LockPath())
	}
}
