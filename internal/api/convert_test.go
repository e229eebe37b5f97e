package api

import (
	"testing"
	"time"

	"concierge/internal/records"
)

func TestFromTaskFormatsFields(t *testing.T) {
	created := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	dto := FromTask(records.Task{
		Sequence:   3,
		ResourceID: "c9",
		Title:      "Invoices",
		AssigneeID: "u2",
		Due:        records.TimeOfDay{Hour: 17, Minute: 5},
		Status:     records.TaskOpen,
		CreatedAt:  created,
		Reassignments: []records.Reassignment{
			{From: "u1", To: "u2", By: "u0", Reason: "vacation", At: created.Add(time.Hour)},
		},
	})

	if dto.Number != 3 || dto.ChannelID != "c9" || dto.Due != "17:05:00" || dto.Status != "Open" {
		t.Fatalf("unexpected task dto %+v", dto)
	}
	if dto.CreatedAt != "2026-03-02T09:00:00.000Z" {
		t.Fatalf("unexpected created timestamp %q", dto.CreatedAt)
	}
	if dto.CompletedAt != "" {
		t.Fatalf("zero completion time should be omitted, got %q", dto.CompletedAt)
	}
	if len(dto.Reassignments) != 1 || dto.Reassignments[0].At != "2026-03-02T10:00:00.000Z" {
		t.Fatalf("unexpected reassignments %+v", dto.Reassignments)
	}

	parsed, err := ParseTime(dto.CreatedAt)
	if err != nil || !parsed.Equal(created) {
		t.Fatalf("ParseTime = %v %v", parsed, err)
	}
}

func TestFromTicketsKeepsOrder(t *testing.T) {
	got := FromTickets([]records.Ticket{
		{ResourceID: "a", Reason: "billing", ChannelName: "billing-1"},
		{ResourceID: "b", Reason: "refunds", ChannelName: "refunds-2"},
	})
	if len(got) != 2 || got[0].ChannelID != "a" || got[1].ChannelName != "refunds-2" {
		t.Fatalf("unexpected tickets %+v", got)
	}
	if got[0].CreatedAt != "" {
		t.Fatalf("zero creation time should be omitted")
	}
}

func TestFilterTasks(t *testing.T) {
	tasks := []records.Task{
		{ResourceID: "a", Status: records.TaskOpen},
		{ResourceID: "b", Status: records.TaskCompleted},
	}
	if got := FilterTasks(tasks, ""); len(got) != 2 {
		t.Fatalf("empty status should keep all, got %d", len(got))
	}
	got := FilterTasks(tasks, records.TaskCompleted)
	if len(got) != 1 || got[0].ResourceID != "b" {
		t.Fatalf("unexpected filter result %+v", got)
	}
}
