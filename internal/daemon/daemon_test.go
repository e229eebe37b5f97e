package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"concierge/internal/api"
	"concierge/internal/config"
	"concierge/internal/lifecycle"
	"concierge/internal/notifications"
	"concierge/internal/provider"
	"concierge/internal/records"
	"concierge/internal/store"
	"concierge/internal/testsupport"
)

type fakeGateway struct {
	*testsupport.FakeProvider

	mu          sync.Mutex
	events      []string
	openErr     error
	dispatching bool
}

func newFakeGateway() *fakeGateway {
	g := &fakeGateway{FakeProvider: testsupport.NewFakeProvider()}
	g.OnSend = func(channelID string, _ provider.Message) { g.record("send:" + channelID) }
	return g
}

func (g *fakeGateway) record(event string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, event)
}

func (g *fakeGateway) Events() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.events)
}

func (g *fakeGateway) Open(context.Context) error {
	g.record("open")
	return g.openErr
}

func (g *fakeGateway) Close() error {
	g.record("close")
	return nil
}

func (g *fakeGateway) Listen(context.Context, *lifecycle.Service) error {
	g.record("listen")
	return nil
}

func (g *fakeGateway) StartDispatch() {
	g.mu.Lock()
	g.dispatching = true
	g.mu.Unlock()
	g.record("dispatch")
}

func (g *fakeGateway) Drain(context.Context) error {
	g.record("drain")
	return nil
}

func (g *fakeGateway) Dispatching() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.dispatching
}

func testConfig(t *testing.T, opts ...testsupport.ConfigOption) *config.Config {
	t.Helper()
	// No token: preflight skips the Discord API check.
	cfg := testsupport.NewConfig(t, opts...)
	cfg.Discord.Token = ""
	return cfg
}

func seedStore(t *testing.T, cfg *config.Config, c records.Collection) {
	t.Helper()
	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()
	if err := st.Save(context.Background(), c); err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func newTestDaemon(t *testing.T, cfg *config.Config, gw *fakeGateway, n notifications.Service) *Daemon {
	t.Helper()
	d, err := New(cfg, nil,
		WithGatewayFactory(func(*config.Config, *slog.Logger) (Gateway, error) { return gw, nil }),
		WithNotifier(n),
		WithConnectTimeout(10*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestDaemonStartStop(t *testing.T) {
	cfg := testConfig(t)
	seed := records.NewCollection()
	seed.Tickets["chan-live"] = records.Ticket{ResourceID: "chan-live", Reason: "billing", ChannelName: "billing-1"}
	seed.Tickets["chan-gone"] = records.Ticket{ResourceID: "chan-gone", Reason: "billing", ChannelName: "billing-2"}
	seed.Tasks = []records.Task{{Sequence: 1, ResourceID: "task-1", Title: "Audit", Status: records.TaskOpen}}
	seedStore(t, cfg, seed)

	gw := newFakeGateway()
	gw.AddChannel("chan-live", "billing-1")
	d := newTestDaemon(t, cfg, gw, &testsupport.RecordingNotifier{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	status := d.Status()
	if !status.Running || !status.Dispatching {
		t.Fatalf("expected running and dispatching, got %+v", status)
	}
	if status.Tickets != 1 || status.Tasks != 1 || status.OpenTasks != 1 {
		t.Fatalf("unexpected counts %+v", status)
	}
	if status.StorePath != cfg.Paths.DataDir {
		t.Fatalf("unexpected store path %q", status.StorePath)
	}

	// Reconciliation finishes before interactions are released.
	events := gw.Events()
	want := []string{"open", "listen", "send:chan-live", "dispatch"}
	if !slices.Equal(events, want) {
		t.Fatalf("unexpected start order %v, want %v", events, want)
	}

	if err := d.Start(ctx); err == nil {
		t.Fatal("expected second start to fail")
	}
	other := flock.New(cfg.LockPath())
	if ok, _ := other.TryLock(); ok {
		_ = other.Unlock()
		t.Fatal("lock should be held while running")
	}

	d.Stop()
	if d.Status().Running {
		t.Fatal("expected daemon to be stopped")
	}
	if events := gw.Events(); !slices.Equal(events[len(events)-2:], []string{"drain", "close"}) {
		t.Fatalf("interactions must drain before the gateway closes, got %v", events)
	}
	if ok, err := other.TryLock(); err != nil || !ok {
		t.Fatalf("lock should be released after stop: %v", err)
	}
	_ = other.Unlock()

	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer reopened.Close()
	saved, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := saved.Tickets["chan-gone"]; ok || len(saved.Tickets) != 1 {
		t.Fatalf("dropped ticket should stay dropped, got %+v", saved.Tickets)
	}
}

func TestDaemonStartFailsWhenGatewayUnreachable(t *testing.T) {
	cfg := testConfig(t)
	gw := newFakeGateway()
	gw.openErr = errors.New("gateway unavailable")
	notifier := &testsupport.RecordingNotifier{}
	d := newTestDaemon(t, cfg, gw, notifier)

	err := d.Start(context.Background())
	if err == nil {
		t.Fatal("expected start to fail")
	}
	if d.Status().Running {
		t.Fatal("daemon must not report running after failed start")
	}
	if !slices.Contains(notifier.Events(), notifications.EventError) {
		t.Fatalf("expected startup error alert, got %v", notifier.Events())
	}
	if slices.Contains(gw.Events(), "listen") {
		t.Fatal("interactions must not be routed without a gateway")
	}

	lock := flock.New(cfg.LockPath())
	if ok, err := lock.TryLock(); err != nil || !ok {
		t.Fatalf("lock should be released after failed start: %v", err)
	}
	_ = lock.Unlock()
}

func TestDaemonServesStatusAPI(t *testing.T) {
	cfg := testConfig(t, testsupport.WithAPIToken("secret"))
	d := newTestDaemon(t, cfg, newFakeGateway(), &testsupport.RecordingNotifier{})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	d.mu.Lock()
	addr := d.api.Addr()
	d.mu.Unlock()

	client := api.NewClient(addr, "secret")
	status, err := client.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if !status.Running || !status.Dispatching || status.StoreBackend != config.StorageJSON {
		t.Fatalf("unexpected status payload %+v", status)
	}

	resp, err := http.Get("http://" + addr + "/health")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	defer resp.Body.Close()
	var health api.HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil || health.Status != "ok" {
		t.Fatalf("unexpected health %+v %v", health, err)
	}
}

func TestDaemonStartsWithSQLiteStore(t *testing.T) {
	cfg := testConfig(t, testsupport.WithStorageBackend(config.StorageSQLite))
	seed := records.NewCollection()
	seed.Tasks = []records.Task{
		{Sequence: 1, ResourceID: "task-1", Title: "Audit", Status: records.TaskOpen},
		{Sequence: 2, ResourceID: "task-2", Title: "Rotate keys", Status: records.TaskCompleted},
	}
	seedStore(t, cfg, seed)

	d := newTestDaemon(t, cfg, newFakeGateway(), &testsupport.RecordingNotifier{})
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status()
	if status.StoreBackend != config.StorageSQLite || status.StorePath != cfg.DatabasePath() {
		t.Fatalf("unexpected store %q at %q", status.StoreBackend, status.StorePath)
	}
	if status.Tasks != 2 || status.OpenTasks != 1 {
		t.Fatalf("unexpected counts %+v", status)
	}
	if open := d.Tasks(records.TaskOpen); len(open) != 1 || open[0].ResourceID != "task-1" {
		t.Fatalf("unexpected open tasks %+v", open)
	}
}
