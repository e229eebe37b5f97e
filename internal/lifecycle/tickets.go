package lifecycle

import (
	"context"
	"errors"
	"slices"
	"strings"

	"concierge/internal/logging"
	"concierge/internal/notifications"
	"concierge/internal/provider"
	"concierge/internal/records"
	"concierge/internal/services"
)

// nameAttempts bounds retries when a generated ticket name is taken.
const nameAttempts = 5

// CreateTicket opens a private ticket channel for actor with the given reason.
// A returned ticket with a non-nil error means the ticket exists but the
// transition was only partly applied; callers check services.Degraded or
// errors.Is(err, services.ErrPartial).
func (s *Service) CreateTicket(ctx context.Context, actor Actor, reason string) (records.Ticket, error) {
	ctx, logger := s.transitionContext(ctx, "create_ticket", "")

	reason = strings.ToLower(strings.TrimSpace(reason))
	if !slices.Contains(s.settings.Reasons, reason) {
		return records.Ticket{}, services.Wrap(services.ErrValidation, component, "create_ticket", "please pick one of the listed reasons", nil)
	}

	name, ok := s.reserveTicketName(reason)
	if !ok {
		return records.Ticket{}, services.Wrap(services.ErrConflict, component, "create_ticket", "a ticket with the reason '"+reason+"' already exists", nil)
	}
	defer s.releaseTicketName(name)

	channel, err := s.provider.CreateChannel(ctx, provider.ChannelSpec{
		Name:     name,
		Category: s.settings.TicketCategory,
		Overwrites: []provider.Overwrite{
			{Kind: provider.TargetEveryone, Deny: provider.PermView | provider.PermSend | provider.PermAttach},
			{Kind: provider.TargetMember, ID: actor.UserID, Allow: provider.PermView | provider.PermSend | provider.PermAttach | provider.PermHistory},
			{Kind: provider.TargetSelf, Allow: provider.PermView | provider.PermSend | provider.PermAttach | provider.PermHistory},
		},
	})
	if err != nil {
		return records.Ticket{}, services.Wrap(services.ErrExternal, component, "create_ticket", "channel creation failed", err)
	}

	ticket := records.Ticket{
		ResourceID:  channel.ID,
		Reason:      reason,
		ChannelName: name,
		OpenedBy:    actor.UserID,
		CreatedAt:   s.now(),
	}
	ctx = services.WithResourceID(ctx, ticket.ResourceID)
	logger = logging.WithContext(ctx, s.logger)

	var saveErr error
	err = s.registry.Exclusive(ticket.ResourceID, func() error {
		saveErr = s.registry.CreateTicket(ctx, ticket)
		if saveErr != nil && !services.Degraded(saveErr) {
			return saveErr
		}
		return nil
	})
	if err != nil {
		return records.Ticket{}, err
	}

	if err := s.provider.SendMessage(ctx, ticket.ResourceID, ticketCreatedMessage(ticket)); err != nil {
		logging.WarnWithContext(logger, "ticket welcome message failed", "ticket_message_failed",
			logging.String(logging.FieldErrorHint, "the close button is restored on next restart"),
			logging.Error(err),
		)
		return ticket, services.Wrap(services.ErrPartial, component, "create_ticket", "welcome message failed", err)
	}

	logger.Info("ticket opened",
		logging.String(logging.FieldEventType, "ticket_opened"),
		logging.String("reason", reason),
		logging.String("channel_name", name),
	)
	return ticket, saveErr
}

func (s *Service) reserveTicketName(reason string) (string, bool) {
	s.reserveMu.Lock()
	defer s.reserveMu.Unlock()
	for range nameAttempts {
		name := s.namer.Name(reason)
		if _, taken := s.reserved[name]; taken {
			continue
		}
		if s.registry.ChannelNameInUse(name) {
			continue
		}
		s.reserved[name] = struct{}{}
		return name, true
	}
	return "", false
}

func (s *Service) releaseTicketName(name string) {
	s.reserveMu.Lock()
	delete(s.reserved, name)
	s.reserveMu.Unlock()
}

// CloseTicket archives the ticket's transcript, acknowledges actor, deletes
// the channel, and removes the record. Only staff may close tickets.
//
// History is fetched and the transcript delivered before anything is
// deleted; a failure in either aborts with the ticket untouched.
func (s *Service) CloseTicket(ctx context.Context, actor Actor, resourceID string, ack Ack) error {
	ctx, logger := s.transitionContext(ctx, "close_ticket", resourceID)

	if err := s.authorizeStaff(ctx, actor, "close_ticket"); err != nil {
		logger.Info("ticket close denied", logging.String("user_id", actor.UserID), logging.String("reason", services.UserMessage(err)))
		return err
	}

	var closed records.Ticket
	err := s.registry.Exclusive(resourceID, func() error {
		ticket, err := s.registry.Ticket(resourceID)
		if err != nil {
			return err
		}

		history, err := s.provider.RecentMessages(ctx, resourceID, s.settings.TranscriptLimit)
		if err != nil {
			return services.Wrap(services.ErrExternal, component, "close_ticket", "history fetch failed", err)
		}
		transcript := BuildTranscript(history)
		if err := s.provider.SendMessage(ctx, s.settings.TranscriptChannelID, transcriptMessage(ticket, transcript)); err != nil {
			return services.Wrap(services.ErrExternal, component, "close_ticket", "transcript delivery failed", err)
		}

		s.acknowledge(ctx, logger, ack, ClosingReply)

		if err := s.provider.DeleteChannel(ctx, resourceID); err != nil {
			if !errors.Is(err, provider.ErrChannelNotFound) {
				return services.Wrap(services.ErrExternal, component, "close_ticket", "channel deletion failed", err)
			}
			logger.Debug("ticket channel already gone")
		}

		if err := s.registry.DeleteTicket(ctx, resourceID); err != nil {
			return services.Wrap(services.ErrPartial, component, "close_ticket", "channel deleted but record removal was not saved", err)
		}
		closed = ticket
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("ticket closed",
		logging.String(logging.FieldEventType, "ticket_closed"),
		logging.String("channel_name", closed.ChannelName),
		logging.String("closed_by", actor.UserID),
	)
	s.publish(ctx, logger, notifications.EventTicketClosed, notifications.Payload{
		"channel":  closed.ChannelName,
		"reason":   closed.Reason,
		"closedBy": actorLabel(actor),
	})
	return nil
}

func actorLabel(actor Actor) string {
	if actor.DisplayName != "" {
		return actor.DisplayName
	}
	return actor.UserID
}

// PostTicketPanel posts the reason menu into channelID. Administrators and
// staff may post it.
func (s *Service) PostTicketPanel(ctx context.Context, actor Actor, channelID string) error {
	ctx, logger := s.transitionContext(ctx, "setup_tickets", channelID)
	if !actor.Administrator {
		if err := s.authorizeStaff(ctx, actor, "setup_tickets"); err != nil {
			return err
		}
	}
	if err := s.provider.SendMessage(ctx, channelID, TicketPanel(s.settings.Reasons)); err != nil {
		return services.Wrap(services.ErrExternal, component, "setup_tickets", "panel could not be posted", err)
	}
	logger.Info("ticket panel posted", logging.String("user_id", actor.UserID))
	return nil
}
