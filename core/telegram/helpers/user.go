package helpers

import (
	"strings"

	"github.com/m3rciful/shopbot/core/telegram/stage"

	tele "gopkg.in/telebot.v4"
)

// DisplayName joins first and last name, falling back to the username.
func DisplayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		name = u.Username
	}
	return name
}

// SenderOf converts a Telegram user to the stage representation.
func SenderOf(u *tele.User) stage.Sender {
	if u == nil {
		return stage.Sender{}
	}
	return stage.Sender{ID: u.ID, Name: DisplayName(u), Username: u.Username}
}
