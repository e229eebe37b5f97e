package lifecycle

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"concierge/internal/config"
	"concierge/internal/logging"
	"concierge/internal/notifications"
	"concierge/internal/provider"
	"concierge/internal/records"
	"concierge/internal/registry"
	"concierge/internal/services"
)

const component = "lifecycle"

// Settings are the guild ids and limits transitions depend on.
type Settings struct {
	StaffRoleID         string
	TaskRoleIDs         []string
	TranscriptChannelID string
	CompletionChannelID string
	TicketCategory      string
	TaskCategory        string
	Reasons             []string
	TranscriptLimit     int
}

// SettingsFromConfig extracts transition settings from cfg.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		StaffRoleID:         cfg.Discord.StaffRoleID,
		TaskRoleIDs:         cfg.TaskRoles(),
		TranscriptChannelID: cfg.Discord.TranscriptChannelID,
		CompletionChannelID: cfg.Discord.CompletionChannelID,
		TicketCategory:      cfg.Tickets.Category,
		TaskCategory:        cfg.Tasks.Category,
		Reasons:             slices.Clone(cfg.Tickets.Reasons),
		TranscriptLimit:     cfg.Tickets.TranscriptLimit,
	}
}

// Actor is the member who triggered a transition.
type Actor struct {
	UserID      string
	DisplayName string
	// Administrator is set when the member holds the guild administrator
	// permission.
	Administrator bool
}

// Ack replies to the actor. Transitions that delete the channel the event came
// from call it before the deletion.
type Ack func(ctx context.Context, content string) error

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithNotifier routes operator alerts to n.
func WithNotifier(n notifications.Service) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithTicketNamer overrides ticket channel name generation.
func WithTicketNamer(n records.TicketNamer) Option {
	return func(s *Service) { s.namer = n }
}

// Service applies ticket and task transitions.
type Service struct {
	settings Settings
	registry *registry.Registry
	provider provider.ResourceProvider
	notifier notifications.Service
	logger   *slog.Logger
	now      func() time.Time
	namer    records.TicketNamer

	// reserved holds ticket channel names between name generation and
	// record insertion.
	reserveMu sync.Mutex
	reserved  map[string]struct{}

	// taskMu covers sequence assignment through task insertion.
	taskMu sync.Mutex
}

// NewService constructs a lifecycle service.
func NewService(settings Settings, reg *registry.Registry, prov provider.ResourceProvider, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		settings: settings,
		registry: reg,
		provider: prov,
		notifier: noopNotifier{},
		logger:   logging.NewComponentLogger(logger, component),
		now:      time.Now,
		reserved: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.settings.TranscriptLimit <= 0 {
		s.settings.TranscriptLimit = 200
	}
	if s.namer.Now == nil {
		s.namer.Now = s.now
	}
	return s
}

func (s *Service) transitionContext(ctx context.Context, transition, resourceID string) (context.Context, *slog.Logger) {
	ctx = services.WithTransition(ctx, transition)
	ctx = services.WithResourceID(ctx, resourceID)
	return ctx, logging.WithContext(ctx, s.logger)
}

func (s *Service) publish(ctx context.Context, logger *slog.Logger, event notifications.Event, payload notifications.Payload) {
	if err := s.notifier.Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(logger, "operator notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.String(logging.FieldErrorHint, "check ntfy_topic and network reachability"),
			logging.Error(err),
		)
	}
}

func (s *Service) acknowledge(ctx context.Context, logger *slog.Logger, ack Ack, content string) {
	if ack == nil {
		return
	}
	if err := ack(ctx, content); err != nil {
		logging.WarnWithContext(logger, "acknowledgement failed", "ack_failed", logging.Error(err))
	}
}

type noopNotifier struct{}

func (noopNotifier) Publish(context.Context, notifications.Event, notifications.Payload) error {
	return nil
}
