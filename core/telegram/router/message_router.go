package router

import (
	"log/slog"
	"strings"

	tg "github.com/m3rciful/shopbot/core/telegram"

	tele "gopkg.in/telebot.v4"
)

// MessageEndpoints are the message kinds handed to the conversation. Media count too,
// so stray stickers and photos get tracked and cleaned up with the stage.
var MessageEndpoints = []string{
	tele.OnText,
	tele.OnSticker,
	tele.OnPhoto,
	tele.OnDocument,
	tele.OnVoice,
	tele.OnVideo,
	tele.OnAnimation,
	tele.OnLocation,
	tele.OnContact,
}

// MessageOptions holds the handlers for non-command updates.
type MessageOptions struct {
	// Message receives every generic message, including unknown slash commands.
	Message tele.HandlerFunc
	// Payment receives successful payment service messages.
	Payment tele.HandlerFunc
	// Checkout answers pre-checkout queries.
	Checkout tele.HandlerFunc
}

// MessageRoutes builds routes for generic messages, payments and pre-checkout queries.
// Text that names a registered command through an alias is routed to that command.
func MessageRoutes(reg *tg.Registry, opts MessageOptions) []tg.Route {
	var routes []tg.Route
	if opts.Message != nil {
		for _, endpoint := range MessageEndpoints {
			kind := strings.TrimPrefix(endpoint, "\a")
			routes = append(routes, tg.Route{
				Endpoint: endpoint,
				Handler: func(c tele.Context) error {
					if reg != nil && endpoint == tele.OnText {
						if key, cmd, ok := reg.LookupCommand(c.Text()); ok && cmd.Handler != nil {
							return handleWithSummary(c, "command."+normalizeHandlerName(key), func() error {
								return cmd.Handler(c)
							})
						}
					}
					return handleWithSummary(c, "message", func() error {
						return opts.Message(c)
					}, slog.String("kind", kind))
				},
			})
		}
	}
	if opts.Payment != nil {
		routes = append(routes, tg.Route{
			Endpoint: tele.OnPayment,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, "payment", func() error { return opts.Payment(c) })
			},
		})
	}
	if opts.Checkout != nil {
		routes = append(routes, tg.Route{
			Endpoint: tele.OnCheckout,
			Handler: func(c tele.Context) error {
				return handleWithSummary(c, "checkout", func() error { return opts.Checkout(c) })
			},
		})
	}
	return routes
}
