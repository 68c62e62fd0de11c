package middleware

import (
	coreconfig "github.com/m3rciful/shopbot/core/config"

	tele "gopkg.in/telebot.v4"
)

// UpdateKind names the update type used for logging and rate limit exclusions.
func UpdateKind(upd tele.Update) string {
	switch {
	case upd.PreCheckoutQuery != nil:
		return coreconfig.UpdateCheckout
	case upd.Callback != nil:
		return coreconfig.UpdateCallback
	case upd.Message != nil && upd.Message.Payment != nil:
		return coreconfig.UpdatePayment
	case upd.Message != nil:
		return coreconfig.UpdateMessage
	}
	return "other"
}
