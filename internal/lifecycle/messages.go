package lifecycle

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"concierge/internal/provider"
	"concierge/internal/records"
)

// Embed colors.
const (
	colorBlue   = 0x3498db
	colorGreen  = 0x2ecc71
	colorRed    = 0xe74c3c
	colorOrange = 0xe67e22
)

// MaxTranscriptRunes is the platform's embed description limit.
const MaxTranscriptRunes = 4096

const (
	completionTimeLayout = "2006-01-02 15:04:05"
	emptyTranscript      = "No messages."
	truncationMarker     = "…"
)

// Mention renders a member mention.
func Mention(userID string) string {
	return "<@" + userID + ">"
}

// ChannelMention renders a channel mention.
func ChannelMention(channelID string) string {
	return "<#" + channelID + ">"
}

// TicketPanel is the message posted by the setup command: a reason menu that
// opens tickets.
func TicketPanel(reasons []string) provider.Message {
	choices := make([]provider.Choice, 0, len(reasons))
	for _, reason := range reasons {
		choices = append(choices, provider.Choice{Value: reason, Label: records.ReasonLabel(reason)})
	}
	return provider.Message{
		Embed: &provider.Embed{
			Title:       "Create a Ticket",
			Description: "Please select the reason for your ticket from the dropdown menu below.",
			Color:       colorBlue,
		},
		Menu: &provider.Menu{
			ID:          ActionTicketReason,
			Placeholder: "Select a reason",
			Choices:     choices,
		},
	}
}

func closeTicketAction(resourceID string) provider.Action {
	return provider.Action{ID: ActionID(ActionTicketClose, resourceID), Label: "Close Ticket", Style: provider.StyleDanger}
}

func ticketCreatedMessage(ticket records.Ticket) provider.Message {
	return provider.Message{
		Embed: &provider.Embed{
			Title:       "Ticket Created",
			Description: fmt.Sprintf("**Member:** %s\n**Reason for opening:** %s", Mention(ticket.OpenedBy), records.ReasonLabel(ticket.Reason)),
			Color:       colorGreen,
		},
		Actions: []provider.Action{closeTicketAction(ticket.ResourceID)},
	}
}

// RecoveredTicketMessage re-renders the close affordance of an open ticket.
func RecoveredTicketMessage(ticket records.Ticket) provider.Message {
	return provider.Message{
		Embed: &provider.Embed{
			Title:       "Ticket Recovered",
			Description: "**Reason for opening:** " + records.ReasonLabel(ticket.Reason),
			Color:       colorGreen,
		},
		Actions: []provider.Action{closeTicketAction(ticket.ResourceID)},
	}
}

// TicketCreatedReply is the acknowledgement shown to the requester.
func TicketCreatedReply(ticket records.Ticket) string {
	return "Your ticket has been created: " + ChannelMention(ticket.ResourceID)
}

// BuildTranscript renders history as "author: content" lines, oldest first.
// Entries without content are skipped. When the result exceeds
// MaxTranscriptRunes the oldest lines are dropped and the text starts with an
// ellipsis.
func BuildTranscript(entries []provider.HistoryEntry) string {
	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		content := strings.TrimSpace(entry.Content)
		if content == "" {
			continue
		}
		lines = append(lines, entry.AuthorName+": "+content)
	}
	if len(lines) == 0 {
		return emptyTranscript
	}
	text := strings.Join(lines, "\n")
	if utf8.RuneCountInString(text) <= MaxTranscriptRunes {
		return text
	}
	runes := []rune(text)
	keep := MaxTranscriptRunes - utf8.RuneCountInString(truncationMarker)
	return truncationMarker + string(runes[len(runes)-keep:])
}

func transcriptMessage(ticket records.Ticket, transcript string) provider.Message {
	return provider.Message{
		Embed: &provider.Embed{
			Title:       "Ticket Transcript",
			Description: transcript,
			Color:       colorBlue,
			Fields: []provider.Field{
				{Name: "Ticket", Value: ticket.ChannelName, Inline: true},
				{Name: "Reason", Value: records.ReasonLabel(ticket.Reason), Inline: true},
			},
		},
	}
}

func taskMessage(task records.Task) provider.Message {
	return provider.Message{
		Embed: &provider.Embed{
			Title:       task.Title,
			Description: task.Description,
			Color:       colorBlue,
			Fields: []provider.Field{
				{Name: "Assigned to", Value: Mention(task.AssigneeID), Inline: true},
				{Name: "Due", Value: task.Due.String(), Inline: true},
			},
		},
		Actions: []provider.Action{
			{ID: ActionID(ActionTaskReview, task.ResourceID), Label: "Review", Style: provider.StylePrimary},
		},
	}
}

func reviewRequestMessage(task records.Task, actor Actor) provider.Message {
	return provider.Message{
		Embed: &provider.Embed{
			Title:       "Task Review Requested",
			Description: Mention(actor.UserID) + " has requested a review for this task.",
			Color:       colorOrange,
		},
		Actions: []provider.Action{
			{ID: ActionID(ActionTaskReassign, task.ResourceID), Label: "Re-Assign", Style: provider.StyleSecondary},
			{ID: ActionID(ActionTaskComplete, task.ResourceID), Label: "Complete", Style: provider.StyleSuccess},
		},
	}
}

func reassignedMessage(task records.Task, actor Actor, reason string, reassigned bool) provider.Message {
	fields := []provider.Field{{Name: "Reassigned by", Value: Mention(actor.UserID), Inline: true}}
	if reassigned {
		fields = append(fields, provider.Field{Name: "Assigned to", Value: Mention(task.AssigneeID), Inline: true})
	}
	return provider.Message{
		Embed: &provider.Embed{
			Title:       "Task Re-Assigned",
			Description: "Reason for reassigning the task: " + reason,
			Color:       colorOrange,
			Fields:      fields,
		},
	}
}

// ReassignReply is the acknowledgement shown after a reassignment.
func ReassignReply(reason string) string {
	return "Task has been re-assigned for the following reason: " + reason
}

func overdueReasonMessage(actor Actor, reason string) provider.Message {
	return provider.Message{
		Embed: &provider.Embed{
			Title:       "Reason for Overdue Task",
			Description: "Reason provided: " + reason,
			Color:       colorOrange,
			Fields:      []provider.Field{{Name: "Provided by", Value: Mention(actor.UserID)}},
		},
	}
}

// OverdueReasonReply is the acknowledgement shown after an overdue reason.
func OverdueReasonReply(reason string) string {
	return "Reason submitted: " + reason
}

func completionMessage(task records.Task, at time.Time) provider.Message {
	return provider.Message{
		Embed: &provider.Embed{
			Title:       "Task Completed",
			Description: fmt.Sprintf("The task '%s' has been completed.", task.Title),
			Color:       colorGreen,
			Fields: []provider.Field{
				{Name: "Description", Value: fieldValue(task.Description)},
				{Name: "Assigned to", Value: Mention(task.AssigneeID), Inline: true},
				{Name: "Completed by", Value: Mention(task.CompletedBy), Inline: true},
				{Name: "Completion Time", Value: at.Format(completionTimeLayout), Inline: true},
			},
		},
	}
}

// CompletedReply is the acknowledgement shown after completing a task.
const CompletedReply = "Task marked as completed."

// ClosingReply is the acknowledgement shown before a ticket channel is deleted.
const ClosingReply = "Closing ticket. A transcript has been saved."

// OverdueNotice is the message the poller posts into an overdue task channel.
func OverdueNotice(task records.Task) provider.Message {
	return provider.Message{
		Embed: &provider.Embed{
			Title:       "Task Overdue",
			Description: fmt.Sprintf("The task '%s' is overdue!", task.Title),
			Color:       colorRed,
			Fields: []provider.Field{
				{Name: "Description", Value: fieldValue(task.Description)},
				{Name: "Assigned to", Value: Mention(task.AssigneeID), Inline: true},
				{Name: "Due", Value: task.Due.String(), Inline: true},
			},
		},
		Actions: []provider.Action{
			{ID: ActionID(ActionTaskOverdueReason, task.ResourceID), Label: "Submit Reason", Style: provider.StyleSecondary},
		},
	}
}

// Embed field values may not be empty.
func fieldValue(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
