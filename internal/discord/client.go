package discord

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"

	"concierge/internal/logging"
	"concierge/internal/provider"
)

const (
	component = "discord"
	// historyPageSize is the API maximum for one history request.
	historyPageSize = 100
)

// Client is a provider.ResourceProvider backed by a discordgo session.
type Client struct {
	session *discordgo.Session
	guildID string
	logger  *slog.Logger

	ready     chan struct{}
	readyOnce sync.Once

	categoryMu sync.Mutex
	categories map[string]string
}

// NewClient builds a client for guildID. The gateway is not connected until
// Open.
func NewClient(token, guildID string, logger *slog.Logger) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discord token is required")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent

	c := &Client{
		session:    session,
		guildID:    guildID,
		logger:     logging.NewComponentLogger(logger, component),
		ready:      make(chan struct{}),
		categories: make(map[string]string),
	}
	session.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		c.readyOnce.Do(func() {
			c.logger.Info("gateway ready", logging.String("user", r.User.Username))
			close(c.ready)
		})
	})
	return c, nil
}

// Open connects the gateway and waits for the Ready event.
func (c *Client) Open(ctx context.Context) error {
	if err := c.session.Open(); err != nil {
		return fmt.Errorf("open gateway: %w", err)
	}
	select {
	case <-c.ready:
		return nil
	case <-ctx.Done():
		_ = c.session.Close()
		return ctx.Err()
	}
}

// Close disconnects the gateway.
func (c *Client) Close() error {
	return c.session.Close()
}

func (c *Client) botUserID() string {
	if c.session.State != nil && c.session.State.User != nil {
		return c.session.State.User.ID
	}
	return ""
}

func (c *Client) CreateChannel(ctx context.Context, spec provider.ChannelSpec) (provider.Channel, error) {
	parentID, err := c.categoryID(ctx, spec.Category)
	if err != nil {
		return provider.Channel{}, err
	}
	created, err := c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		ParentID:             parentID,
		PermissionOverwrites: convertOverwrites(spec.Overwrites, c.guildID, c.botUserID()),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return provider.Channel{}, fmt.Errorf("create channel %q: %w", spec.Name, err)
	}
	return provider.Channel{ID: created.ID, Name: created.Name}, nil
}

// categoryID finds the category named name, creating it when missing. An
// empty name places channels at the top level.
func (c *Client) categoryID(ctx context.Context, name string) (string, error) {
	if name == "" {
		return "", nil
	}
	c.categoryMu.Lock()
	defer c.categoryMu.Unlock()
	if id, ok := c.categories[name]; ok {
		return id, nil
	}

	channels, err := c.session.GuildChannels(c.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("list guild channels: %w", err)
	}
	if id := findCategory(channels, name); id != "" {
		c.categories[name] = id
		return id, nil
	}

	created, err := c.session.GuildChannelCreateComplex(c.guildID, discordgo.GuildChannelCreateData{
		Name: name,
		Type: discordgo.ChannelTypeGuildCategory,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("create category %q: %w", name, err)
	}
	c.logger.Info("category created", logging.String("category", name))
	c.categories[name] = created.ID
	return created.ID, nil
}

func findCategory(channels []*discordgo.Channel, name string) string {
	for _, ch := range channels {
		if ch != nil && ch.Type == discordgo.ChannelTypeGuildCategory && ch.Name == name {
			return ch.ID
		}
	}
	return ""
}

func (c *Client) GetChannel(ctx context.Context, channelID string) (provider.Channel, error) {
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return provider.Channel{}, mapError(err)
	}
	return provider.Channel{ID: ch.ID, Name: ch.Name}, nil
}

func (c *Client) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return mapError(err)
	}
	c.forgetCategory(channelID)
	return nil
}

func (c *Client) forgetCategory(channelID string) {
	c.categoryMu.Lock()
	defer c.categoryMu.Unlock()
	for name, id := range c.categories {
		if id == channelID {
			delete(c.categories, name)
		}
	}
}

func (c *Client) SendMessage(ctx context.Context, channelID string, msg provider.Message) error {
	if _, err := c.session.ChannelMessageSendComplex(channelID, convertMessage(msg), discordgo.WithContext(ctx)); err != nil {
		return mapError(err)
	}
	return nil
}

// RecentMessages pages backwards through history until limit messages were
// read or the channel start was reached, then returns them oldest first.
func (c *Client) RecentMessages(ctx context.Context, channelID string, limit int) ([]provider.HistoryEntry, error) {
	var collected []*discordgo.Message
	before := ""
	for len(collected) < limit {
		page := min(historyPageSize, limit-len(collected))
		msgs, err := c.session.ChannelMessages(channelID, page, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, mapError(err)
		}
		collected = append(collected, msgs...)
		if len(msgs) < page {
			break
		}
		before = msgs[len(msgs)-1].ID
	}
	return historyEntries(collected), nil
}

// historyEntries converts newest-first API messages to oldest-first entries.
func historyEntries(msgs []*discordgo.Message) []provider.HistoryEntry {
	entries := make([]provider.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		if m == nil {
			continue
		}
		author := "unknown"
		if m.Author != nil {
			author = m.Author.Username
		}
		entries = append(entries, provider.HistoryEntry{AuthorName: author, Content: m.Content, SentAt: m.Timestamp})
	}
	slices.Reverse(entries)
	return entries
}

func (c *Client) MemberRoles(ctx context.Context, userID string) ([]string, error) {
	member, err := c.session.GuildMember(c.guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch member: %w", err)
	}
	return slices.Clone(member.Roles), nil
}

func (c *Client) AllowMember(ctx context.Context, channelID, userID string) error {
	allow := permissionBits(provider.PermView | provider.PermSend | provider.PermAttach | provider.PermHistory)
	if err := c.session.ChannelPermissionSet(channelID, userID, discordgo.PermissionOverwriteTypeMember, allow, 0, discordgo.WithContext(ctx)); err != nil {
		return mapError(err)
	}
	return nil
}

// mapError translates unknown-channel responses into provider.ErrChannelNotFound.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownChannel {
			return fmt.Errorf("%w: %v", provider.ErrChannelNotFound, err)
		}
		if restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %v", provider.ErrChannelNotFound, err)
		}
	}
	return err
}

var _ provider.ResourceProvider = (*Client)(nil)
