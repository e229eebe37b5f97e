package api

import (
	"time"

	"concierge/internal/records"
)

// FormatTime renders t for payloads; the zero time renders empty.
func FormatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// ParseTime parses a payload timestamp; empty input yields the zero time.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(dateTimeFormat, value)
}

// FromTicket converts a ticket record.
func FromTicket(t records.Ticket) Ticket {
	return Ticket{
		ChannelID:   t.ResourceID,
		ChannelName: t.ChannelName,
		Reason:      t.Reason,
		OpenedBy:    t.OpenedBy,
		CreatedAt:   FormatTime(t.CreatedAt),
	}
}

// FromTickets converts ticket records, preserving order.
func FromTickets(tickets []records.Ticket) []Ticket {
	out := make([]Ticket, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, FromTicket(t))
	}
	return out
}

// FromTask converts a task record.
func FromTask(t records.Task) Task {
	dto := Task{
		Number:          t.Sequence,
		ChannelID:       t.ResourceID,
		Title:           t.Title,
		Description:     t.Description,
		AssigneeID:      t.AssigneeID,
		CreatorID:       t.CreatorID,
		Due:             t.Due.String(),
		Status:          string(t.Status),
		OverdueNotified: t.OverdueNotified,
		CreatedAt:       FormatTime(t.CreatedAt),
		CompletedBy:     t.CompletedBy,
		CompletedAt:     FormatTime(t.CompletedAt),
	}
	for _, r := range t.Reassignments {
		dto.Reassignments = append(dto.Reassignments, Reassignment{
			From:   r.From,
			To:     r.To,
			By:     r.By,
			Reason: r.Reason,
			At:     FormatTime(r.At),
		})
	}
	return dto
}

// FromTasks converts task records, preserving order.
func FromTasks(tasks []records.Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, FromTask(t))
	}
	return out
}

// FilterTasks keeps tasks whose status matches; an empty status keeps all.
func FilterTasks(tasks []records.Task, status records.TaskStatus) []records.Task {
	if status == "" {
		return tasks
	}
	out := make([]records.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	return out
}
