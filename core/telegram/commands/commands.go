// Package commands describes slash commands kept in the telegram registry.
package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command is a slash command as shown in the Telegram menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	// Hidden commands work but are left out of the Telegram command menu.
	Hidden bool
	// Aliases route to the same handler; a leading slash is added when missing.
	Aliases []string
}
