// Package discord connects concierge to a Discord guild.
//
// Client implements provider.ResourceProvider on a discordgo session. Router
// registers the slash commands and turns interactions into lifecycle
// transitions. Interactions received before StartDispatch are held until
// startup reconciliation has finished.
package discord
