package main

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"concierge/internal/api"
	"concierge/internal/config"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		// A .env file in the working directory may carry the bot token.
		_ = godotenv.Load()

		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// apiClient returns a status API client, or an error when the API is
// disabled in config.
func (c *commandContext) apiClient() (*api.Client, error) {
	cfg := c.configValue()
	if cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	if strings.TrimSpace(cfg.API.Bind) == "" {
		return nil, errors.New("status api disabled (api.bind is empty)")
	}
	return api.NewClient(cfg.API.Bind, cfg.API.Token), nil
}

// daemonUnreachable reports whether err means nothing answered at the API
// address, as opposed to the daemon answering with an error.
func daemonUnreachable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr) && urlErr.Timeout()
}

func wrapAPIError(err error, bind string) error {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("status api at %s rejected the token; check api.token", bind)
	case daemonUnreachable(err):
		return fmt.Errorf("daemon not reachable at %s; start it with `concierge run`", bind)
	default:
		return err
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
