package recovery

import (
	"context"
	"errors"
	"log/slog"

	"concierge/internal/lifecycle"
	"concierge/internal/logging"
	"concierge/internal/provider"
	"concierge/internal/records"
	"concierge/internal/registry"
	"concierge/internal/services"
)

const component = "recovery"

// Report summarizes one reconciliation pass.
type Report struct {
	// Restored tickets had their close affordance posted again.
	Restored int
	// Dropped tickets pointed at channels that no longer exist.
	Dropped int
	// Skipped tickets could not be checked and were left untouched.
	Skipped int
}

// Reconciler restores or drops persisted tickets. Tasks are left alone.
type Reconciler struct {
	registry *registry.Registry
	provider provider.ResourceProvider
	logger   *slog.Logger
}

// New builds a reconciler.
func New(reg *registry.Registry, prov provider.ResourceProvider, logger *slog.Logger) *Reconciler {
	return &Reconciler{
		registry: reg,
		provider: prov,
		logger:   logging.NewComponentLogger(logger, component),
	}
}

// Reconcile checks every persisted ticket. A ticket whose channel is gone is
// removed and the removal saved; a ticket whose channel exists gets its close
// button posted again. Lookups failing for other reasons keep the record so a
// transient outage never loses tickets. The returned error is non-nil when a
// drop could not be saved or ctx ended early.
func (r *Reconciler) Reconcile(ctx context.Context) (Report, error) {
	var report Report
	var saveErr error

	for _, ticket := range r.registry.Tickets() {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		outcome, err := r.reconcileTicket(ctx, ticket)
		switch outcome {
		case outcomeRestored:
			report.Restored++
		case outcomeDropped:
			report.Dropped++
		default:
			report.Skipped++
		}
		if err != nil && services.Degraded(err) && saveErr == nil {
			saveErr = err
		}
	}

	r.logger.Info("ticket reconciliation finished",
		logging.String(logging.FieldEventType, "reconcile_complete"),
		logging.Int("restored", report.Restored),
		logging.Int("dropped", report.Dropped),
		logging.Int("skipped", report.Skipped),
	)
	return report, saveErr
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeRestored
	outcomeDropped
)

func (r *Reconciler) reconcileTicket(ctx context.Context, ticket records.Ticket) (outcome, error) {
	ctx = services.WithTransition(services.WithResourceID(ctx, ticket.ResourceID), "reconcile")
	logger := logging.WithContext(ctx, r.logger)

	result := outcomeSkipped
	err := r.registry.Exclusive(ticket.ResourceID, func() error {
		if _, err := r.registry.Ticket(ticket.ResourceID); err != nil {
			// Closed while reconciliation was running.
			return nil
		}

		_, err := r.provider.GetChannel(ctx, ticket.ResourceID)
		if err == nil {
			err = r.provider.SendMessage(ctx, ticket.ResourceID, lifecycle.RecoveredTicketMessage(ticket))
			if err == nil {
				result = outcomeRestored
				logger.Debug("ticket restored")
				return nil
			}
		}
		if !errors.Is(err, provider.ErrChannelNotFound) {
			logging.WarnWithContext(logger, "ticket channel check failed; keeping record", "reconcile_skipped",
				logging.String(logging.FieldErrorHint, "the ticket is checked again on next start"),
				logging.Error(err),
			)
			return nil
		}

		result = outcomeDropped
		logger.Info("dropping ticket whose channel is gone", logging.String("channel_name", ticket.ChannelName))
		return r.registry.DeleteTicket(ctx, ticket.ResourceID)
	})
	return result, err
}
