package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	tg "github.com/m3rciful/shopbot/core/telegram"
	"github.com/m3rciful/shopbot/core/telegram/commands"
	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/router"
	"github.com/m3rciful/shopbot/core/telegram/stage"
	"github.com/m3rciful/shopbot/internal/shop"

	tele "gopkg.in/telebot.v4"
)

// User-facing texts.
const (
	TextFailure      = "Something went wrong, please /start again."
	TextNotSetup     = "The shop has not yet been setup!"
	TextAlreadySetup = "This shop has already been setup!"
	TextMissingToken = "Are you <b>missing</b> a token? Kindly use the command again with the token <i>(i.e. /setup SECRET_BOT_TOKEN)</i>"
	TextInvalidToken = "This is an <b>invalid</b> bot token. Retrieve the token from @BotFather and use the command again <i>(i.e. /setup SECRET_BOT_TOKEN)</i>"
)

// RegisterCommands adds /start and /setup to reg.
func (d *Dispatcher) RegisterCommands(reg *tg.Registry) {
	reg.RegisterCommand("/start", commands.Command{
		Handler:     d.handleStart,
		Description: "Open the shop",
	})
	reg.RegisterCommand("/setup", commands.Command{
		Handler:     d.handleSetup,
		Description: "Register as the shop owner",
		Hidden:      true,
	})
}

// Routes returns every bot route: commands from reg plus messages, payments and checkout.
func (d *Dispatcher) Routes(reg *tg.Registry) []tg.Route {
	routes := router.CommandRoutes(reg)
	return append(routes, router.MessageRoutes(reg, router.MessageOptions{
		Message:  d.handleMessage,
		Payment:  d.handleMessage,
		Checkout: d.handleCheckout,
	})...)
}

// Failure tells the chat something broke. It also serves as the panic and rate limit reply.
func Failure(c tele.Context) error {
	return helpers.SendText(c, TextFailure)
}

func (d *Dispatcher) handleStart(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	err := d.Start(ctx, EventFrom(c))
	if errors.Is(err, ErrShopNotSetup) {
		return helpers.SendText(c, TextNotSetup)
	}
	return d.fail(ctx, c, err)
}

func (d *Dispatcher) handleSetup(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	res, err := d.Setup(ctx, EventFrom(c))
	if err != nil {
		return d.fail(ctx, c, err)
	}
	return helpers.SendHTML(c, RenderSetup(res))
}

func (d *Dispatcher) handleMessage(c tele.Context) error {
	ctx := helpers.BuildContext(c)
	err := d.Message(ctx, EventFrom(c))
	if errors.Is(err, ErrShopNotSetup) {
		return helpers.SendText(c, TextNotSetup)
	}
	return d.fail(ctx, c, err)
}

func (d *Dispatcher) handleCheckout(c tele.Context) error {
	q := c.PreCheckoutQuery()
	if q == nil {
		return nil
	}
	ctx := helpers.BuildContext(c)
	v := d.PreCheckout(ctx, PreCheckoutFrom(q))
	if !v.OK {
		return fmt.Errorf("pre-checkout %s: %s", q.ID, v.Reason)
	}
	return nil
}

// fail logs err and sends the generic failure text; the error is returned so the
// handler summary records it.
func (d *Dispatcher) fail(ctx context.Context, c tele.Context, err error) error {
	if err == nil {
		return nil
	}
	logger.LogEvent(ctx, logger.Shop, slog.LevelError, "dispatch.fail",
		slog.String("status", "fail"),
		slog.String("err", logger.Err(err)),
	)
	if sendErr := Failure(c); sendErr != nil {
		return errors.Join(err, sendErr)
	}
	return err
}

// RenderSetup turns a setup result into the chat reply.
func RenderSetup(res SetupResult) string {
	switch res.Status {
	case SetupOK:
		return fmt.Sprintf("🎉 Registration complete!\n%s (ID %d) is now the owner of %s.",
			format.Bold(res.OwnerName), res.OwnerID, format.Bold(res.ShopName))
	case SetupMissingToken:
		return TextMissingToken
	case SetupInvalidToken:
		return TextInvalidToken
	case SetupAlreadyDone:
		return TextAlreadySetup
	}
	return TextFailure
}

// EventFrom extracts an Event from a bot update.
func EventFrom(c tele.Context) Event {
	ev := Event{Text: c.Text(), From: helpers.SenderOf(c.Sender())}
	if chat := c.Chat(); chat != nil {
		ev.ChatID = chat.ID
	}
	if m := c.Message(); m != nil {
		ev.MessageID = m.ID
		if p := m.Payment; p != nil {
			ev.Payment = &stage.Payment{
				Currency: p.Currency,
				Total:    p.Total,
				Payload:  p.Payload,
				ChargeID: p.TelegramChargeID,
			}
		}
	}
	return ev
}

// PreCheckoutFrom converts a Telegram pre-checkout query.
func PreCheckoutFrom(q *tele.PreCheckoutQuery) shop.PreCheckout {
	out := shop.PreCheckout{ID: q.ID, Currency: q.Currency, Total: q.Total, Payload: q.Payload}
	if q.Sender != nil {
		out.UserID = q.Sender.ID
	}
	return out
}
