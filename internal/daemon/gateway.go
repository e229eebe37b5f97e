package daemon

import (
	"context"
	"log/slog"

	"concierge/internal/config"
	"concierge/internal/discord"
	"concierge/internal/lifecycle"
	"concierge/internal/provider"
)

// Gateway is the chat connection driven by the daemon.
type Gateway interface {
	provider.ResourceProvider
	Open(ctx context.Context) error
	Close() error
	// Listen routes interactions to svc but holds them until StartDispatch.
	Listen(ctx context.Context, svc *lifecycle.Service) error
	StartDispatch()
	Dispatching() bool
	// Drain waits for interactions already being handled.
	Drain(ctx context.Context) error
}

// GatewayFactory builds the gateway for cfg.
type GatewayFactory func(cfg *config.Config, logger *slog.Logger) (Gateway, error)

func discordGateway(cfg *config.Config, logger *slog.Logger) (Gateway, error) {
	return discord.NewBot(cfg.Discord.Token, cfg.Discord.GuildID, logger)
}
