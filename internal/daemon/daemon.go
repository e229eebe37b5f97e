package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/flock"

	"concierge/internal/api"
	"concierge/internal/config"
	"concierge/internal/lifecycle"
	"concierge/internal/logging"
	"concierge/internal/notifications"
	"concierge/internal/overdue"
	"concierge/internal/preflight"
	"concierge/internal/records"
	"concierge/internal/recovery"
	"concierge/internal/registry"
	"concierge/internal/services"
	"concierge/internal/store"
)

const (
	defaultConnectTimeout = 2 * time.Minute
	drainTimeout          = 15 * time.Second
)

// Option customizes a Daemon.
type Option func(*Daemon)

// WithGatewayFactory replaces the Discord gateway.
func WithGatewayFactory(factory GatewayFactory) Option {
	return func(d *Daemon) {
		if factory != nil {
			d.newGateway = factory
		}
	}
}

// WithNotifier replaces the notifier built from config.
func WithNotifier(n notifications.Service) Option {
	return func(d *Daemon) {
		if n != nil {
			d.notifier = n
		}
	}
}

// WithConnectTimeout bounds how long gateway connect attempts are retried.
func WithConnectTimeout(timeout time.Duration) Option {
	return func(d *Daemon) {
		if timeout > 0 {
			d.connectTimeout = timeout
		}
	}
}

// WithPreflight replaces the startup readiness checks.
func WithPreflight(run func(context.Context, *config.Config) []preflight.Result) Option {
	return func(d *Daemon) {
		if run != nil {
			d.preflight = run
		}
	}
}

// Daemon coordinates the bot services and enforces single-instance execution.
type Daemon struct {
	cfg            *config.Config
	logger         *slog.Logger
	notifier       notifications.Service
	newGateway     GatewayFactory
	preflight      func(context.Context, *config.Config) []preflight.Result
	connectTimeout time.Duration

	lockPath string
	lock     *flock.Flock

	// mu guards the component fields below across Start and Stop.
	mu       sync.Mutex
	store    store.Store
	registry *registry.Registry
	gateway  Gateway
	poller   *overdue.Poller
	api      *apiServer
	cancel   context.CancelFunc

	running   atomic.Bool
	startedAt atomic.Int64
}

// Status represents daemon runtime information.
type Status struct {
	Running        bool
	Dispatching    bool
	PID            int
	StartedAt      time.Time
	Tickets        int
	Tasks          int
	OpenTasks      int
	StoreBackend   string
	StorePath      string
	LockFilePath   string
	LastOverdueRun time.Time
}

// New constructs a daemon. Nothing is opened until Start.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Daemon, error) {
	if cfg == nil {
		return nil, errors.New("daemon requires config")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	lockPath := cfg.LockPath()
	d := &Daemon{
		cfg:            cfg,
		logger:         logging.NewComponentLogger(logger, "daemon"),
		notifier:       notifications.NewService(cfg),
		newGateway:     discordGateway,
		preflight:      preflight.RunAll,
		connectTimeout: defaultConnectTimeout,
		lockPath:       lockPath,
		lock:           flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Start acquires the daemon lock and brings every component up in order:
// store, registry, gateway, reconciliation, dispatch, poller, API server.
func (d *Daemon) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running.Load() {
		return errors.New("daemon already running")
	}

	if err := d.cfg.EnsureDirectories(); err != nil {
		return err
	}
	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another concierge daemon instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	if err := d.startComponents(runCtx); err != nil {
		d.teardown()
		if pubErr := d.notifier.Publish(ctx, notifications.EventError, notifications.Payload{"context": "startup", "error": err}); pubErr != nil {
			d.logger.Warn("startup alert not delivered", logging.Error(pubErr))
		}
		return err
	}

	d.running.Store(true)
	d.startedAt.Store(time.Now().UnixNano())
	d.logger.Info("concierge daemon started", logging.String("lock", d.lockPath))
	return nil
}

func (d *Daemon) startComponents(ctx context.Context) error {
	results := d.preflight(ctx, d.cfg)
	for _, r := range results {
		if r.Passed {
			d.logger.Info("preflight check passed", logging.String("check", r.Name), logging.String("detail", r.Detail))
			continue
		}
		logging.WarnWithContext(d.logger, "preflight check failed", "preflight_failed",
			logging.String("check", r.Name),
			logging.String("detail", r.Detail),
			logging.Bool("required", r.Required),
		)
	}
	if failed, ok := preflight.FirstRequiredFailure(results); ok {
		return fmt.Errorf("preflight %s: %s", strings.ToLower(failed.Name), failed.Detail)
	}

	st, err := store.Open(d.cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	d.store = st

	reg, err := registry.Open(ctx, st, d.logger, registry.WithSaveFailureHook(d.saveFailureAlert(st.Location())))
	if err != nil {
		return err
	}
	d.registry = reg

	gw, err := d.newGateway(d.cfg, d.logger)
	if err != nil {
		return fmt.Errorf("create gateway: %w", err)
	}
	d.gateway = gw
	if err := d.connect(ctx, gw); err != nil {
		return err
	}

	svc := lifecycle.NewService(lifecycle.SettingsFromConfig(d.cfg), reg, gw, d.logger, lifecycle.WithNotifier(d.notifier))
	if err := gw.Listen(ctx, svc); err != nil {
		return fmt.Errorf("listen for interactions: %w", err)
	}

	report, err := recovery.New(reg, gw, d.logger).Reconcile(ctx)
	switch {
	case err == nil:
	case services.Degraded(err):
		logging.WarnWithContext(d.logger, "reconciliation could not save all drops", "reconcile_degraded",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "dropped tickets are removed again on the next save"),
		)
	default:
		return fmt.Errorf("reconcile: %w", err)
	}
	d.logger.Info("records reconciled",
		logging.Int("restored", report.Restored),
		logging.Int("dropped", report.Dropped),
		logging.Int("skipped", report.Skipped),
	)

	gw.StartDispatch()

	d.poller = overdue.NewPoller(reg, gw, d.logger, d.cfg.OverduePollInterval(), overdue.WithNotifier(d.notifier))
	if err := d.poller.Start(ctx); err != nil {
		return err
	}

	server, err := newAPIServer(d.cfg, d, d.logger)
	if err != nil {
		return err
	}
	if err := server.start(ctx); err != nil {
		return err
	}
	d.api = server
	return nil
}

// connect opens the gateway, retrying with exponential backoff until
// connectTimeout elapses or ctx ends.
func (d *Daemon) connect(ctx context.Context, gw Gateway) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = d.connectTimeout

	attempt := 0
	op := func() error {
		attempt++
		err := gw.Open(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		logging.WarnWithContext(d.logger, "gateway connect failed; retrying", "gateway_connect_retry",
			logging.Int("attempt", attempt),
			logging.Duration("retry_in", wait),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the bot token and network access to Discord"),
		)
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify); err != nil {
		return fmt.Errorf("connect gateway: %w", err)
	}
	d.logger.Info("gateway connected", logging.Int("attempts", attempt))
	return nil
}

func (d *Daemon) saveFailureAlert(location string) func(error) {
	return func(err error) {
		payload := notifications.Payload{"error": err.Error(), "location": location}
		if pubErr := d.notifier.Publish(context.Background(), notifications.EventPersistenceDegraded, payload); pubErr != nil {
			d.logger.Warn("persistence alert not delivered", logging.Error(pubErr))
		}
	}
}

// Stop shuts components down in reverse start order and releases the lock.
func (d *Daemon) Stop() {
	if !d.running.CompareAndSwap(true, false) {
		return
	}
	// The API goes first and outside mu: in-flight status requests take mu.
	d.mu.Lock()
	server := d.api
	d.api = nil
	d.mu.Unlock()
	server.stop()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.teardown()
	d.logger.Info("concierge daemon stopped")
}

// teardown releases whatever startComponents managed to open. Callers hold mu.
func (d *Daemon) teardown() {
	if d.api != nil {
		d.api.stop()
		d.api = nil
	}
	if d.poller != nil {
		d.poller.Stop()
		d.poller = nil
	}
	if d.gateway != nil {
		// Running transitions finish before the final flush.
		drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
		if err := d.gateway.Drain(drainCtx); err != nil {
			logging.WarnWithContext(d.logger, "interactions still running at shutdown", "drain_timeout",
				logging.Duration("waited", drainTimeout),
				logging.Error(err),
			)
		}
		cancel()
		if err := d.gateway.Close(); err != nil {
			d.logger.Warn("gateway close failed", logging.Error(err))
		}
		d.gateway = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	if d.registry != nil {
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := d.registry.Close(flushCtx); err != nil {
			logging.ErrorWithContext(d.logger, "final record flush failed", "persistence_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check free space and permissions of the data directory"),
			)
		}
		cancel()
		d.registry = nil
	}
	if d.store != nil {
		if err := d.store.Close(); err != nil {
			d.logger.Warn("store close failed", logging.Error(err))
		}
		d.store = nil
	}
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
}

// Close releases resources held by the daemon.
func (d *Daemon) Close() error {
	d.Stop()
	return nil
}

// Tickets returns the open tickets, or nil when the daemon is not running.
func (d *Daemon) Tickets() []records.Ticket {
	d.mu.Lock()
	reg := d.registry
	d.mu.Unlock()
	if reg == nil {
		return nil
	}
	return reg.Tickets()
}

// Tasks returns tasks, optionally filtered by status.
func (d *Daemon) Tasks(status records.TaskStatus) []records.Task {
	d.mu.Lock()
	reg := d.registry
	d.mu.Unlock()
	if reg == nil {
		return nil
	}
	return api.FilterTasks(reg.Tasks(), status)
}

// TestNotification triggers a test notification using the current configuration.
func (d *Daemon) TestNotification(ctx context.Context) (bool, string, error) {
	if strings.TrimSpace(d.cfg.Notifications.NtfyTopic) == "" {
		return false, "ntfy topic not configured", nil
	}
	if err := d.notifier.Publish(ctx, notifications.EventTest, nil); err != nil {
		return false, "failed to send notification", err
	}
	return true, "test notification sent", nil
}

// Status returns the current daemon status.
func (d *Daemon) Status() Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		StoreBackend: d.cfg.Storage.Backend,
		LockFilePath: d.lockPath,
	}
	if n := d.startedAt.Load(); n != 0 && status.Running {
		status.StartedAt = time.Unix(0, n)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.store != nil {
		status.StorePath = d.store.Location()
	}
	if d.registry != nil {
		status.Tickets, status.Tasks = d.registry.Counts()
		for _, task := range d.registry.Tasks() {
			if task.Status == records.TaskOpen {
				status.OpenTasks++
			}
		}
	}
	if d.gateway != nil {
		status.Dispatching = d.gateway.Dispatching()
	}
	if d.poller != nil {
		status.LastOverdueRun = d.poller.LastRun()
	}
	return status
}
