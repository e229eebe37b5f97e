package overdue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"concierge/internal/lifecycle"
	"concierge/internal/logging"
	"concierge/internal/notifications"
	"concierge/internal/provider"
	"concierge/internal/records"
	"concierge/internal/registry"
	"concierge/internal/services"
)

const component = "overdue"

// Option customizes a Poller.
type Option func(*Poller)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithNotifier routes overdue alerts to n.
func WithNotifier(n notifications.Service) Option {
	return func(p *Poller) { p.notifier = n }
}

// Poller checks open tasks on a fixed interval.
type Poller struct {
	registry *registry.Registry
	provider provider.ResourceProvider
	notifier notifications.Service
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time

	inFlight atomic.Bool
	lastRun  atomic.Int64

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewPoller builds a poller that ticks every interval.
func NewPoller(reg *registry.Registry, prov provider.ResourceProvider, logger *slog.Logger, interval time.Duration, opts ...Option) *Poller {
	if interval <= 0 {
		interval = time.Minute
	}
	p := &Poller{
		registry: reg,
		provider: prov,
		logger:   logging.NewComponentLogger(logger, component),
		interval: interval,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins ticking in the background.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return errors.New("overdue poller already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.running = true
	p.wg.Add(1)
	go p.loop(runCtx)

	p.logger.Info("overdue poller started", logging.Duration("interval", p.interval))
	return nil
}

// Stop halts ticking and waits for an in-flight tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	cancel := p.cancel
	p.running = false
	p.cancel = nil
	p.mu.Unlock()

	cancel()
	p.wg.Wait()
}

// LastRun returns when the last completed tick started, or the zero time.
func (p *Poller) LastRun() time.Time {
	n := p.lastRun.Load()
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one check. It returns the number of notices posted and whether
// the tick ran; a tick is skipped while another is still in flight.
func (p *Poller) Tick(ctx context.Context) (int, bool) {
	if !p.inFlight.CompareAndSwap(false, true) {
		p.logger.Debug("overdue tick skipped; previous tick still running")
		return 0, false
	}
	defer p.inFlight.Store(false)

	now := p.now()
	notified := 0
	for _, task := range p.registry.Tasks() {
		if ctx.Err() != nil {
			break
		}
		if !task.NeedsOverdueNotice(now) {
			continue
		}
		if p.notify(ctx, task.ResourceID, now) {
			notified++
		}
	}
	p.lastRun.Store(now.UnixNano())
	return notified, true
}

// notify posts the overdue notice for one task and flags it. A task whose
// channel is gone is flagged without a notice; other send failures leave the
// flag clear so the next tick retries.
func (p *Poller) notify(ctx context.Context, resourceID string, now time.Time) bool {
	ctx = services.WithTransition(services.WithResourceID(ctx, resourceID), "overdue_notice")
	logger := logging.WithContext(ctx, p.logger)

	var sent records.Task
	posted := false
	_ = p.registry.Exclusive(resourceID, func() error {
		task, err := p.registry.Task(resourceID)
		if err != nil || !task.NeedsOverdueNotice(now) {
			return nil
		}

		err = p.provider.SendMessage(ctx, resourceID, lifecycle.OverdueNotice(task))
		switch {
		case err == nil:
			posted = true
			sent = task
		case errors.Is(err, provider.ErrChannelNotFound):
			logger.Info("overdue task channel is gone; not announcing")
		default:
			logging.WarnWithContext(logger, "overdue notice failed", "overdue_notice_failed",
				logging.String(logging.FieldErrorHint, "retried on the next tick"),
				logging.Error(err),
			)
			return nil
		}

		if _, err := p.registry.UpdateTask(ctx, resourceID, func(t *records.Task) error {
			t.OverdueNotified = true
			return nil
		}); err != nil {
			logging.WarnWithContext(logger, "overdue flag not saved", "overdue_flag_unsaved", logging.Error(err))
		}
		return nil
	})
	if !posted {
		return false
	}

	logger.Info("task overdue",
		logging.String(logging.FieldEventType, "task_overdue"),
		logging.Int("number", sent.Sequence),
		logging.String("due", sent.Due.String()),
	)
	if p.notifier != nil {
		if err := p.notifier.Publish(ctx, notifications.EventTaskOverdue, notifications.Payload{
			"number":   sent.Sequence,
			"title":    sent.Title,
			"due":      sent.Due.String(),
			"assignee": sent.AssigneeID,
		}); err != nil {
			logging.WarnWithContext(logger, "overdue notification failed", "notification_failed", logging.Error(err))
		}
	}
	return true
}
