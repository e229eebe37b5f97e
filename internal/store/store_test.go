package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"concierge/internal/config"
	"concierge/internal/records"
	"concierge/internal/store"
)

func sampleCollection() records.Collection {
	created := time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	c := records.NewCollection()
	c.Tickets["1001"] = records.Ticket{
		ResourceID:  "1001",
		Reason:      "billing",
		ChannelName: "billing-1700123456",
		OpenedBy:    "42",
		CreatedAt:   created,
	}
	c.Tickets["1002"] = records.Ticket{
		ResourceID:  "1002",
		Reason:      "payment_issues",
		ChannelName: "payment_issues-1700654321",
		CreatedAt:   created.Add(time.Minute),
	}
	c.Tasks = []records.Task{
		{
			Sequence:   1,
			ResourceID: "2001",
			Title:      "Reconcile invoices",
			AssigneeID: "7",
			CreatorID:  "42",
			Due:        records.TimeOfDay{Hour: 17},
			Status:     records.TaskOpen,
			CreatedAt:  created,
		},
		{
			Sequence:        2,
			ResourceID:      "2002",
			Title:           "Refund",
			Description:     "Refund order 55",
			AssigneeID:      "8",
			CreatorID:       "42",
			Due:             records.TimeOfDay{Hour: 9, Minute: 30},
			Status:          records.TaskCompleted,
			OverdueNotified: true,
			CreatedAt:       created,
			CompletedBy:     "8",
			CompletedAt:     created.Add(time.Hour),
			Reassignments: []records.Reassignment{
				{From: "7", To: "8", By: "42", Reason: "vacation", At: created.Add(time.Minute)},
			},
		},
	}
	return c
}

func backends(t *testing.T) map[string]store.Store {
	t.Helper()
	jsonStore, err := store.OpenJSON(t.TempDir())
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	sqliteStore, err := store.OpenSQLite(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() {
		_ = jsonStore.Close()
		_ = sqliteStore.Close()
	})
	return map[string]store.Store{"json": jsonStore, "sqlite": sqliteStore}
}

func TestLoadWithoutDocumentsReturnsEmpty(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			c, err := s.Load(context.Background())
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(c.Tickets) != 0 || len(c.Tasks) != 0 {
				t.Fatalf("expected empty collection, got %+v", c)
			}
			if c.Tickets == nil {
				t.Fatal("expected initialized ticket map")
			}
		})
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	want := sampleCollection()
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			if err := s.Save(ctx, want); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err := s.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
			}

			// A later save fully replaces earlier state.
			shrunk := records.NewCollection()
			shrunk.Tasks = want.Tasks[:1]
			if err := s.Save(ctx, shrunk); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got, err = s.Load(ctx)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if len(got.Tickets) != 0 || len(got.Tasks) != 1 {
				t.Fatalf("expected replaced state, got %+v", got)
			}
		})
	}
}

func TestJSONDocumentShape(t *testing.T) {
	dir := t.TempDir()
	s, err := store.OpenJSON(dir)
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	if err := s.Save(context.Background(), sampleCollection()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	var tickets map[string]map[string]any
	data, err := os.ReadFile(filepath.Join(dir, store.TicketsDocument))
	if err != nil {
		t.Fatalf("read tickets: %v", err)
	}
	if err := json.Unmarshal(data, &tickets); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}
	if tickets["1001"]["reason"] != "billing" || tickets["1001"]["channel_name"] != "billing-1700123456" {
		t.Fatalf("unexpected ticket document: %v", tickets)
	}

	var tasks map[string][]map[string]any
	data, err = os.ReadFile(filepath.Join(dir, store.TasksDocument))
	if err != nil {
		t.Fatalf("read tasks: %v", err)
	}
	if err := json.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if len(tasks["tasks"]) != 2 || tasks["tasks"][0]["due_time"] != "17:00:00" {
		t.Fatalf("unexpected task document: %v", tasks)
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
}

func TestJSONLoadAcceptsLegacyDocuments(t *testing.T) {
	dir := t.TempDir()
	legacyTickets := `{"555": {"reason": "billing", "channel_name": "billing-1712345678"}}`
	legacyTasks := `{"tasks": [
		{"title": "Ship", "description": "Release notes", "assignee_id": 1190000000000000001, "channel_id": 1190000000000000777, "due": "9:30:00"},
		{"title": "Audit", "description": "", "assignee_id": 42, "channel_id": 778, "due": "17:00:00", "status": "Completed"}
	]}`
	if err := os.WriteFile(filepath.Join(dir, store.TicketsDocument), []byte(legacyTickets), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, store.TasksDocument), []byte(legacyTasks), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := store.OpenJSON(dir)
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	c, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Tickets["555"].ResourceID != "555" {
		t.Fatalf("expected resource id from key, got %+v", c.Tickets["555"])
	}
	if len(c.Tasks) != 2 {
		t.Fatalf("unexpected tasks: %+v", c.Tasks)
	}
	first, second := c.Tasks[0], c.Tasks[1]
	if first.ResourceID != "1190000000000000777" || first.AssigneeID != "1190000000000000001" {
		t.Fatalf("numeric ids must survive exactly, got %+v", first)
	}
	if first.Sequence != 1 || first.Status != records.TaskOpen || first.Due != (records.TimeOfDay{Hour: 9, Minute: 30}) {
		t.Fatalf("unexpected first task: %+v", first)
	}
	if second.Sequence != 2 || second.ResourceID != "778" || second.Status != records.TaskCompleted {
		t.Fatalf("unexpected second task: %+v", second)
	}

	// The next save writes the current layout.
	if err := s.Save(context.Background(), c); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, store.TasksDocument))
	if err != nil {
		t.Fatal(err)
	}
	var saved map[string][]map[string]any
	if err := json.Unmarshal(data, &saved); err != nil {
		t.Fatalf("decode tasks: %v", err)
	}
	if got := saved["tasks"][0]; got["channel_id"] != "1190000000000000777" || got["due_time"] != "09:30:00" || got["number"] != float64(1) {
		t.Fatalf("unexpected rewritten task: %v", got)
	}
}

func TestJSONLoadRejectsTaskWithBadDueTime(t *testing.T) {
	dir := t.TempDir()
	doc := `{"tasks": [{"title": "Ship", "channel_id": 777, "due": "tonight"}]}`
	if err := os.WriteFile(filepath.Join(dir, store.TasksDocument), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := store.OpenJSON(dir)
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	if _, err := s.Load(context.Background()); !errors.Is(err, store.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestJSONLoadRejectsCorruptDocument(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, store.TasksDocument), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := store.OpenJSON(dir)
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	if _, err := s.Load(context.Background()); !errors.Is(err, store.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestJSONSaveFailsWhenDirectoryUnwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	dir := t.TempDir()
	s, err := store.OpenJSON(dir)
	if err != nil {
		t.Fatalf("OpenJSON: %v", err)
	}
	// Take the lock file into existence before revoking write access.
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := os.Chmod(dir, 0o555); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o755) })

	if err := s.Save(context.Background(), sampleCollection()); err == nil {
		t.Fatal("expected save error")
	}
}

func TestOpenSelectsBackend(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = filepath.Join(cfg.Paths.DataDir, "logs")

	s, err := store.Open(&cfg)
	if err != nil {
		t.Fatalf("Open json: %v", err)
	}
	if _, ok := s.(*store.JSONStore); !ok {
		t.Fatalf("expected JSONStore, got %T", s)
	}
	_ = s.Close()

	cfg.Storage.Backend = config.StorageSQLite
	s, err = store.Open(&cfg)
	if err != nil {
		t.Fatalf("Open sqlite: %v", err)
	}
	defer s.Close()
	if s.Location() != cfg.DatabasePath() {
		t.Fatalf("unexpected location %q", s.Location())
	}
}
