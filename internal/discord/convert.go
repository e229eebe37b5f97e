package discord

import (
	"github.com/bwmarrin/discordgo"

	"concierge/internal/provider"
)

// maxButtonsPerRow is the platform limit for one action row.
const maxButtonsPerRow = 5

func permissionBits(p provider.Permission) int64 {
	var bits int64
	if p&provider.PermView != 0 {
		bits |= discordgo.PermissionViewChannel
	}
	if p&provider.PermSend != 0 {
		bits |= discordgo.PermissionSendMessages
	}
	if p&provider.PermAttach != 0 {
		bits |= discordgo.PermissionAttachFiles
	}
	if p&provider.PermHistory != 0 {
		bits |= discordgo.PermissionReadMessageHistory
	}
	return bits
}

// convertOverwrites maps provider overwrites to API overwrites. The everyone
// role shares the guild's id. Self overwrites are dropped when the bot id is
// not yet known.
func convertOverwrites(overwrites []provider.Overwrite, guildID, botID string) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, o := range overwrites {
		po := &discordgo.PermissionOverwrite{
			Allow: permissionBits(o.Allow),
			Deny:  permissionBits(o.Deny),
		}
		switch o.Kind {
		case provider.TargetEveryone:
			po.ID = guildID
			po.Type = discordgo.PermissionOverwriteTypeRole
		case provider.TargetRole:
			po.ID = o.ID
			po.Type = discordgo.PermissionOverwriteTypeRole
		case provider.TargetMember:
			po.ID = o.ID
			po.Type = discordgo.PermissionOverwriteTypeMember
		case provider.TargetSelf:
			po.ID = botID
			po.Type = discordgo.PermissionOverwriteTypeMember
		}
		if po.ID == "" {
			continue
		}
		out = append(out, po)
	}
	return out
}

func buttonStyle(s provider.ActionStyle) discordgo.ButtonStyle {
	switch s {
	case provider.StyleSecondary:
		return discordgo.SecondaryButton
	case provider.StyleSuccess:
		return discordgo.SuccessButton
	case provider.StyleDanger:
		return discordgo.DangerButton
	default:
		return discordgo.PrimaryButton
	}
}

func convertEmbed(e *provider.Embed) *discordgo.MessageEmbed {
	if e == nil {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	return embed
}

func convertComponents(msg provider.Message) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	if msg.Menu != nil {
		options := make([]discordgo.SelectMenuOption, 0, len(msg.Menu.Choices))
		for _, c := range msg.Menu.Choices {
			options = append(options, discordgo.SelectMenuOption{Label: c.Label, Value: c.Value, Description: c.Description})
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    msg.Menu.ID,
				Placeholder: msg.Menu.Placeholder,
				Options:     options,
			},
		}})
	}
	var row []discordgo.MessageComponent
	for _, a := range msg.Actions {
		row = append(row, discordgo.Button{Label: a.Label, Style: buttonStyle(a.Style), CustomID: a.ID})
		if len(row) == maxButtonsPerRow {
			rows = append(rows, discordgo.ActionsRow{Components: row})
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: row})
	}
	return rows
}

func convertMessage(msg provider.Message) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Components: convertComponents(msg),
	}
	if embed := convertEmbed(msg.Embed); embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{embed}
	}
	return send
}
