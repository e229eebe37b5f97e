package provider

import (
	"context"
	"errors"
	"time"
)

// ErrChannelNotFound is returned when a channel no longer exists.
var ErrChannelNotFound = errors.New("channel not found")

// TargetKind identifies who a permission overwrite applies to.
type TargetKind int

const (
	// TargetEveryone is the guild's default role.
	TargetEveryone TargetKind = iota
	// TargetMember is a single member identified by ID.
	TargetMember
	// TargetRole is a role identified by ID.
	TargetRole
	// TargetSelf is the bot's own member.
	TargetSelf
)

// Permission is a channel capability.
type Permission uint8

const (
	PermView Permission = 1 << iota
	PermSend
	PermAttach
	PermHistory
)

// Overwrite grants or denies permissions for one target on a channel.
type Overwrite struct {
	Kind  TargetKind
	ID    string
	Allow Permission
	Deny  Permission
}

// ChannelSpec describes a channel to create.
type ChannelSpec struct {
	Name string
	// Category is the name of the parent category, created if missing.
	Category   string
	Overwrites []Overwrite
}

// Channel is a created or looked-up channel.
type Channel struct {
	ID   string
	Name string
}

// ActionStyle selects how an action renders.
type ActionStyle int

const (
	StylePrimary ActionStyle = iota
	StyleSecondary
	StyleSuccess
	StyleDanger
)

// Action is an interactive affordance attached to a message, such as a button.
type Action struct {
	ID    string
	Label string
	Style ActionStyle
}

// Choice is one entry of a selection menu.
type Choice struct {
	Value       string
	Label       string
	Description string
}

// Menu is a selection affordance attached to a message.
type Menu struct {
	ID          string
	Placeholder string
	Choices     []Choice
}

// Field is a name/value row of an embed.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message card.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []Field
}

// Message is posted to a channel.
type Message struct {
	Content string
	Embed   *Embed
	Actions []Action
	Menu    *Menu
}

// HistoryEntry is one message read back from a channel.
type HistoryEntry struct {
	AuthorName string
	Content    string
	SentAt     time.Time
}

// ResourceProvider is the set of platform operations transitions rely on.
type ResourceProvider interface {
	CreateChannel(ctx context.Context, spec ChannelSpec) (Channel, error)
	// GetChannel returns ErrChannelNotFound when the channel is gone.
	GetChannel(ctx context.Context, channelID string) (Channel, error)
	DeleteChannel(ctx context.Context, channelID string) error
	SendMessage(ctx context.Context, channelID string, msg Message) error
	// RecentMessages returns up to limit messages, oldest first.
	RecentMessages(ctx context.Context, channelID string, limit int) ([]HistoryEntry, error)
	MemberRoles(ctx context.Context, userID string) ([]string, error)
	// AllowMember lets userID view and post in channelID.
	AllowMember(ctx context.Context, channelID, userID string) error
}
