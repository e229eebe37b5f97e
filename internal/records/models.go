package records

import (
	"slices"
	"sort"
	"time"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskOpen      TaskStatus = "Open"
	TaskCompleted TaskStatus = "Completed"
)

// Ticket is an open support conversation in a private channel.
type Ticket struct {
	ResourceID  string    `json:"-"`
	Reason      string    `json:"reason"`
	ChannelName string    `json:"channel_name"`
	OpenedBy    string    `json:"opened_by,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

// Reassignment records one Re-Assign transition.
type Reassignment struct {
	From   string    `json:"from,omitempty"`
	To     string    `json:"to,omitempty"`
	By     string    `json:"by"`
	Reason string    `json:"reason"`
	At     time.Time `json:"at"`
}

// Task is a unit of work assigned to a member with a daily due time.
type Task struct {
	Sequence        int            `json:"number"`
	ResourceID      string         `json:"channel_id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	AssigneeID      string         `json:"assignee_id"`
	CreatorID       string         `json:"creator_id"`
	Due             TimeOfDay      `json:"due_time"`
	Status          TaskStatus     `json:"status"`
	OverdueNotified bool           `json:"overdue_notified"`
	CreatedAt       time.Time      `json:"created_at,omitzero"`
	CompletedBy     string         `json:"completed_by,omitempty"`
	CompletedAt     time.Time      `json:"completed_at,omitzero"`
	Reassignments   []Reassignment `json:"reassignments,omitempty"`
}

// IsOpen reports whether the task still accepts transitions.
func (t Task) IsOpen() bool {
	return t.Status != TaskCompleted
}

// Deadline returns the due time on the calendar day of now.
func (t Task) Deadline(now time.Time) time.Time {
	return t.Due.On(now)
}

// NeedsOverdueNotice reports whether the poller should announce t at now.
// Deadlines are evaluated against today's date only, so a task whose due time
// has not yet been reached today is never overdue, even if yesterday's
// deadline passed unnoticed.
func (t Task) NeedsOverdueNotice(now time.Time) bool {
	return t.IsOpen() && !t.OverdueNotified && now.After(t.Deadline(now))
}

// Clone returns a copy that shares no mutable state with t.
func (t Task) Clone() Task {
	t.Reassignments = slices.Clone(t.Reassignments)
	return t
}

// Collection is the full persisted state.
type Collection struct {
	Tickets map[string]Ticket
	Tasks   []Task
}

// NewCollection returns an empty collection.
func NewCollection() Collection {
	return Collection{Tickets: make(map[string]Ticket)}
}

// SortedTickets returns tickets ordered by creation time then resource id.
func (c Collection) SortedTickets() []Ticket {
	out := make([]Ticket, 0, len(c.Tickets))
	for id, ticket := range c.Tickets {
		ticket.ResourceID = id
		out = append(out, ticket)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ResourceID < out[j].ResourceID
	})
	return out
}
