package discord

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"concierge/internal/provider"
)

func TestConvertOverwrites(t *testing.T) {
	got := convertOverwrites([]provider.Overwrite{
		{Kind: provider.TargetEveryone, Deny: provider.PermView | provider.PermSend},
		{Kind: provider.TargetMember, ID: "u1", Allow: provider.PermView | provider.PermAttach},
		{Kind: provider.TargetSelf, Allow: provider.PermView},
		{Kind: provider.TargetRole, ID: "r1", Allow: provider.PermHistory},
	}, "guild-1", "bot-1")

	if len(got) != 4 {
		t.Fatalf("expected 4 overwrites, got %d", len(got))
	}
	if got[0].ID != "guild-1" || got[0].Type != discordgo.PermissionOverwriteTypeRole ||
		got[0].Deny != discordgo.PermissionViewChannel|discordgo.PermissionSendMessages {
		t.Fatalf("unexpected everyone overwrite %+v", got[0])
	}
	if got[1].Type != discordgo.PermissionOverwriteTypeMember || got[1].Allow != discordgo.PermissionViewChannel|discordgo.PermissionAttachFiles {
		t.Fatalf("unexpected member overwrite %+v", got[1])
	}
	if got[2].ID != "bot-1" {
		t.Fatalf("self overwrite should target the bot, got %+v", got[2])
	}
	if got[3].Allow != discordgo.PermissionReadMessageHistory {
		t.Fatalf("unexpected role overwrite %+v", got[3])
	}

	if n := len(convertOverwrites([]provider.Overwrite{{Kind: provider.TargetSelf}}, "g", "")); n != 0 {
		t.Fatalf("self overwrite without bot id should be dropped, got %d", n)
	}
}

func TestConvertMessageLaysOutComponents(t *testing.T) {
	msg := provider.Message{
		Embed: &provider.Embed{Title: "T", Fields: []provider.Field{{Name: "a", Value: "b", Inline: true}}},
		Menu:  &provider.Menu{ID: "ticket.reason", Choices: []provider.Choice{{Value: "billing", Label: "Billing"}}},
	}
	for i := 0; i < 6; i++ {
		msg.Actions = append(msg.Actions, provider.Action{ID: "a", Label: "b", Style: provider.StyleDanger})
	}

	send := convertMessage(msg)
	if len(send.Embeds) != 1 || send.Embeds[0].Fields[0].Name != "a" {
		t.Fatalf("unexpected embeds %+v", send.Embeds)
	}
	if len(send.Components) != 3 {
		t.Fatalf("expected menu row plus two button rows, got %d", len(send.Components))
	}
	menuRow := send.Components[0].(discordgo.ActionsRow)
	if menu := menuRow.Components[0].(discordgo.SelectMenu); menu.CustomID != "ticket.reason" || menu.MenuType != discordgo.StringSelectMenu {
		t.Fatalf("unexpected menu %+v", menu)
	}
	firstRow := send.Components[1].(discordgo.ActionsRow)
	if len(firstRow.Components) != 5 {
		t.Fatalf("expected a full first row, got %d", len(firstRow.Components))
	}
	if btn := firstRow.Components[0].(discordgo.Button); btn.Style != discordgo.DangerButton {
		t.Fatalf("unexpected button style %v", btn.Style)
	}
}

func TestMapErrorDetectsMissingChannel(t *testing.T) {
	unknown := &discordgo.RESTError{Message: &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownChannel}}
	if !errors.Is(mapError(unknown), provider.ErrChannelNotFound) {
		t.Fatal("unknown channel code should map to ErrChannelNotFound")
	}
	notFound := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusNotFound}}
	if !errors.Is(mapError(notFound), provider.ErrChannelNotFound) {
		t.Fatal("404 should map to ErrChannelNotFound")
	}
	forbidden := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}
	if errors.Is(mapError(forbidden), provider.ErrChannelNotFound) {
		t.Fatal("403 must not map to ErrChannelNotFound")
	}
	if mapError(nil) != nil {
		t.Fatal("nil stays nil")
	}
}

func TestHistoryEntriesOldestFirst(t *testing.T) {
	t0 := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	entries := historyEntries([]*discordgo.Message{
		{ID: "3", Content: "third", Author: &discordgo.User{Username: "c"}, Timestamp: t0.Add(2 * time.Minute)},
		{ID: "2", Content: "second", Timestamp: t0.Add(time.Minute)},
		{ID: "1", Content: "first", Author: &discordgo.User{Username: "a"}, Timestamp: t0},
	})
	if len(entries) != 3 || entries[0].Content != "first" || entries[2].AuthorName != "c" {
		t.Fatalf("unexpected order %+v", entries)
	}
	if entries[1].AuthorName != "unknown" {
		t.Fatalf("missing author should render as unknown, got %q", entries[1].AuthorName)
	}
}

func TestFindCategoryAndHelpers(t *testing.T) {
	channels := []*discordgo.Channel{
		{ID: "1", Name: "Tickets", Type: discordgo.ChannelTypeGuildText},
		{ID: "2", Name: "Tickets", Type: discordgo.ChannelTypeGuildCategory},
	}
	if got := findCategory(channels, "Tickets"); got != "2" {
		t.Fatalf("findCategory = %q", got)
	}
	if got := findCategory(channels, "Tasks"); got != "" {
		t.Fatalf("expected no match, got %q", got)
	}
	for in, want := range map[string]string{"<@123>": "123", "<@!456>": "456", " 789 ": "789", "": ""} {
		if got := parseUserRef(in); got != want {
			t.Fatalf("parseUserRef(%q) = %q, want %q", in, got, want)
		}
	}
	modal := reassignModal("c1")
	if modal.Data.CustomID != "task.reassign:c1" || len(modal.Data.Components) != 2 {
		t.Fatalf("unexpected modal %+v", modal.Data)
	}
	if got := modalValue([]discordgo.MessageComponent{textInput(fieldReason, "Reason", discordgo.TextInputShort, true, 10)}, fieldReason); got != "" {
		t.Fatalf("unexpected modal value %q", got)
	}
}

func TestActorFromInteraction(t *testing.T) {
	actor := actorFrom(&discordgo.Interaction{Member: &discordgo.Member{
		User:        &discordgo.User{ID: "u1", Username: "alice"},
		Permissions: discordgo.PermissionAdministrator | discordgo.PermissionSendMessages,
	}})
	if actor.UserID != "u1" || actor.DisplayName != "alice" || !actor.Administrator {
		t.Fatalf("unexpected actor %+v", actor)
	}
	dm := actorFrom(&discordgo.Interaction{User: &discordgo.User{ID: "u2", Username: "bob"}})
	if dm.UserID != "u2" || dm.Administrator {
		t.Fatalf("unexpected dm actor %+v", dm)
	}
}
