package discord

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"concierge/internal/lifecycle"
)

const (
	commandSetupTicket = "setup_ticket"
	commandTask        = "task"

	optionTitle       = "title"
	optionDescription = "description"
	optionAssignee    = "assignee"
	optionDue         = "due"

	fieldReason   = "reason"
	fieldAssignee = "assignee"
)

func applicationCommands() []*discordgo.ApplicationCommand {
	admin := int64(discordgo.PermissionAdministrator)
	return []*discordgo.ApplicationCommand{
		{
			Name:                     commandSetupTicket,
			Description:              "Post the ticket creation menu in this channel",
			DefaultMemberPermissions: &admin,
		},
		{
			Name:        commandTask,
			Description: "Create a task with a private channel",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: optionTitle, Description: "Task title", Required: true, MaxLength: 256},
				{Type: discordgo.ApplicationCommandOptionString, Name: optionDescription, Description: "What needs to be done", Required: true, MaxLength: 1024},
				{Type: discordgo.ApplicationCommandOptionUser, Name: optionAssignee, Description: "Member responsible for the task", Required: true},
				{Type: discordgo.ApplicationCommandOptionString, Name: optionDue, Description: "Due time of day (HH:MM:SS)", Required: true, MaxLength: 8},
			},
		},
	}
}

// optionString returns the raw string value of a command option. User options
// carry the user id.
func optionString(options []*discordgo.ApplicationCommandInteractionDataOption, name string) string {
	for _, o := range options {
		if o != nil && o.Name == name {
			if v, ok := o.Value.(string); ok {
				return v
			}
		}
	}
	return ""
}

func textInput(customID, label string, style discordgo.TextInputStyle, required bool, maxLength int) discordgo.ActionsRow {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.TextInput{CustomID: customID, Label: label, Style: style, Required: required, MaxLength: maxLength},
	}}
}

func reassignModal(resourceID string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: lifecycle.ActionID(lifecycle.ActionTaskReassign, resourceID),
			Title:    "Re-Assign Task",
			Components: []discordgo.MessageComponent{
				textInput(fieldReason, "Reason", discordgo.TextInputParagraph, true, 1000),
				textInput(fieldAssignee, "New assignee ID (optional)", discordgo.TextInputShort, false, 40),
			},
		},
	}
}

func overdueReasonModal(resourceID string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: &discordgo.InteractionResponseData{
			CustomID: lifecycle.ActionID(lifecycle.ActionTaskOverdueReason, resourceID),
			Title:    "Overdue Reason",
			Components: []discordgo.MessageComponent{
				textInput(fieldReason, "Reason", discordgo.TextInputParagraph, true, 1000),
			},
		},
	}
}

// modalValue returns the value of the text input customID.
func modalValue(components []discordgo.MessageComponent, customID string) string {
	for _, c := range components {
		var children []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			children = row.Components
		case discordgo.ActionsRow:
			children = row.Components
		}
		for _, child := range children {
			switch input := child.(type) {
			case *discordgo.TextInput:
				if input.CustomID == customID {
					return input.Value
				}
			case discordgo.TextInput:
				if input.CustomID == customID {
					return input.Value
				}
			}
		}
	}
	return ""
}

// parseUserRef accepts a raw id or a mention such as <@123> or <@!123>.
func parseUserRef(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "<@") && strings.HasSuffix(s, ">") {
		s = strings.TrimPrefix(s[2:len(s)-1], "!")
	}
	return s
}
