package discord

import (
	"context"
	"errors"
	"log/slog"

	"concierge/internal/lifecycle"
)

// Bot pairs a Client with the Router answering its interactions.
type Bot struct {
	*Client
	logger *slog.Logger
	router *Router
}

// NewBot builds a bot for guildID. Nothing connects until Open.
func NewBot(token, guildID string, logger *slog.Logger) (*Bot, error) {
	client, err := NewClient(token, guildID, logger)
	if err != nil {
		return nil, err
	}
	return &Bot{Client: client, logger: logger}, nil
}

// Listen registers slash commands and routes interactions to svc. Interactions
// are held until StartDispatch.
func (b *Bot) Listen(ctx context.Context, svc *lifecycle.Service) error {
	if b.router != nil {
		return errors.New("bot already listening")
	}
	router := NewRouter(svc, b.session, b.logger)
	if err := router.Register(ctx, b.Client); err != nil {
		return err
	}
	b.router = router
	return nil
}

// StartDispatch releases held interactions.
func (b *Bot) StartDispatch() {
	if b.router != nil {
		b.router.StartDispatch()
	}
}

// Drain waits for running interactions to finish.
func (b *Bot) Drain(ctx context.Context) error {
	if b.router == nil {
		return nil
	}
	return b.router.Drain(ctx)
}

// Dispatching reports whether interactions are being processed.
func (b *Bot) Dispatching() bool {
	return b.router != nil && b.router.Dispatching()
}
