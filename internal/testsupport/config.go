package testsupport

import (
	"path/filepath"
	"testing"

	"concierge/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test and
// the ids used by the fake provider fixtures.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Discord.Token = "test-token"
	cfg.Discord.GuildID = "guild-1"
	cfg.Discord.StaffRoleID = StaffRoleID
	cfg.Discord.TranscriptChannelID = TranscriptChannelID
	cfg.Discord.CompletionChannelID = CompletionChannelID
	cfg.API.Bind = "127.0.0.1:0"

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithStorageBackend selects the store backend.
func WithStorageBackend(backend string) ConfigOption {
	return func(c *config.Config) { c.Storage.Backend = backend }
}

// WithAPIToken sets the status API bearer token.
func WithAPIToken(token string) ConfigOption {
	return func(c *config.Config) { c.API.Token = token }
}

// Fixture ids shared by tests.
const (
	StaffRoleID         = "role-staff"
	TranscriptChannelID = "chan-transcripts"
	CompletionChannelID = "chan-completed"
)
