package overdue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"concierge/internal/logging"
	"concierge/internal/overdue"
	"concierge/internal/provider"
	"concierge/internal/records"
	"concierge/internal/registry"
	"concierge/internal/testsupport"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 3, 2, hour, minute, 0, 0, time.Local)
}

func setup(t *testing.T, tasks ...records.Task) (*registry.Registry, *testsupport.MemoryStore, *testsupport.FakeProvider) {
	t.Helper()
	c := records.NewCollection()
	c.Tasks = tasks
	st := testsupport.NewMemoryStore(c)
	reg := testsupport.MustOpenRegistry(t, st)
	prov := testsupport.NewFakeProvider()
	for _, task := range tasks {
		prov.AddChannel(task.ResourceID, "task")
	}
	return reg, st, prov
}

func auditTask() records.Task {
	return records.Task{
		Sequence:   1,
		ResourceID: "task-1",
		Title:      "Audit",
		AssigneeID: "U1",
		CreatorID:  "U0",
		Due:        records.TimeOfDay{Hour: 18},
		Status:     records.TaskOpen,
		CreatedAt:  at(17, 0),
	}
}

func TestAuditScenarioNotifiesExactlyOnce(t *testing.T) {
	reg, st, prov := setup(t, auditTask())
	clk := &clock{now: at(17, 0)}
	p := overdue.NewPoller(reg, prov, logging.NewNop(), time.Minute, overdue.WithClock(clk.Now))

	if n, _ := p.Tick(context.Background()); n != 0 {
		t.Fatalf("task is not overdue at 17:00, got %d notices", n)
	}

	clk.Set(at(18, 1))
	if n, ran := p.Tick(context.Background()); n != 1 || !ran {
		t.Fatalf("expected one notice at 18:01, got %d (ran=%v)", n, ran)
	}
	for i := 0; i < 3; i++ {
		clk.Set(at(18, 2+i))
		if n, _ := p.Tick(context.Background()); n != 0 {
			t.Fatalf("repeated notice on tick %d", i)
		}
	}

	msgs := prov.MessagesTo("task-1")
	if len(msgs) != 1 {
		t.Fatalf("expected exactly one overdue message, got %d", len(msgs))
	}
	embed := msgs[0].Embed
	if embed.Title != "Task Overdue" || embed.Description != "The task 'Audit' is overdue!" {
		t.Fatalf("unexpected notice %+v", embed)
	}
	if embed.Fields[1].Value != "<@U1>" {
		t.Fatalf("notice should reference the assignee, got %+v", embed.Fields)
	}
	if len(msgs[0].Actions) != 1 || msgs[0].Actions[0].ID != "task.overdue_reason:task-1" {
		t.Fatalf("expected submit reason action, got %+v", msgs[0].Actions)
	}
	if !st.Saved().Tasks[0].OverdueNotified {
		t.Fatal("overdue flag not persisted")
	}
	if got := p.LastRun(); !got.Equal(at(18, 4)) {
		t.Fatalf("LastRun = %v", got)
	}
}

func TestCompletedTaskNeverNotified(t *testing.T) {
	task := auditTask()
	task.Status = records.TaskCompleted
	reg, _, prov := setup(t, task)
	p := overdue.NewPoller(reg, prov, logging.NewNop(), time.Minute, overdue.WithClock(func() time.Time { return at(23, 0) }))

	if n, _ := p.Tick(context.Background()); n != 0 {
		t.Fatalf("completed task notified %d times", n)
	}
	if len(prov.Sent()) != 0 {
		t.Fatal("no message expected")
	}
}

func TestDeadlineUsesCurrentDayOnly(t *testing.T) {
	task := auditTask()
	task.Due = records.TimeOfDay{Hour: 23, Minute: 59, Second: 59}
	reg, _, prov := setup(t, task)
	nextDay := time.Date(2026, 3, 3, 0, 30, 0, 0, time.Local)
	p := overdue.NewPoller(reg, prov, logging.NewNop(), time.Minute, overdue.WithClock(func() time.Time { return nextDay }))

	if n, _ := p.Tick(context.Background()); n != 0 {
		t.Fatal("due times spanning midnight are evaluated against the new day")
	}
}

func TestSendFailureRetriesNextTick(t *testing.T) {
	reg, st, prov := setup(t, auditTask())
	prov.SendErr = errors.New("rate limited")
	p := overdue.NewPoller(reg, prov, logging.NewNop(), time.Minute, overdue.WithClock(func() time.Time { return at(18, 1) }))

	if n, _ := p.Tick(context.Background()); n != 0 {
		t.Fatal("failed send should not count")
	}
	if task, _ := reg.Task("task-1"); task.OverdueNotified {
		t.Fatal("flag must stay clear after a failed send")
	}

	prov.SendErr = nil
	if n, _ := p.Tick(context.Background()); n != 1 {
		t.Fatal("expected retry to succeed")
	}
	if !st.Saved().Tasks[0].OverdueNotified {
		t.Fatal("flag not persisted after retry")
	}
}

func TestMissingChannelIsFlaggedSilently(t *testing.T) {
	reg, _, prov := setup(t, auditTask())
	prov.RemoveChannel("task-1")
	p := overdue.NewPoller(reg, prov, logging.NewNop(), time.Minute, overdue.WithClock(func() time.Time { return at(18, 1) }))

	if n, _ := p.Tick(context.Background()); n != 0 {
		t.Fatal("no notice for a missing channel")
	}
	if task, _ := reg.Task("task-1"); !task.OverdueNotified {
		t.Fatal("missing channel should be flagged so it is not retried every tick")
	}
}

func TestTickSkipsWhileInFlight(t *testing.T) {
	reg, _, prov := setup(t, auditTask())
	entered := make(chan struct{})
	release := make(chan struct{})
	prov.OnSend = func(string, provider.Message) {
		close(entered)
		<-release
	}
	p := overdue.NewPoller(reg, prov, logging.NewNop(), time.Minute, overdue.WithClock(func() time.Time { return at(18, 1) }))

	done := make(chan struct{})
	go func() {
		p.Tick(context.Background())
		close(done)
	}()
	<-entered

	if _, ran := p.Tick(context.Background()); ran {
		t.Fatal("overlapping tick should be skipped")
	}
	close(release)
	<-done
}

func TestStartStopRunsTicks(t *testing.T) {
	reg, _, prov := setup(t, auditTask())
	var sends atomic.Int32
	prov.OnSend = func(string, provider.Message) { sends.Add(1) }
	p := overdue.NewPoller(reg, prov, logging.NewNop(), 5*time.Millisecond, overdue.WithClock(func() time.Time { return at(18, 1) }))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := p.Start(context.Background()); err == nil {
		t.Fatal("second Start should fail")
	}
	deadline := time.Now().Add(2 * time.Second)
	for sends.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	p.Stop()
	p.Stop()

	if sends.Load() != 1 {
		t.Fatalf("expected one notice, got %d", sends.Load())
	}
	if p.LastRun().IsZero() {
		t.Fatal("LastRun should be set")
	}
}
