package helpers

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var globalDispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher wires the asynchronous sender used by helper functions.
func SetDispatcher(d *sender.Dispatcher) {
	globalDispatcher.Store(d)
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := globalDispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	err := disp.Submit(ctx, sender.Job{
		Action:   action,
		Endpoint: endpoint,
		Run:      func(context.Context) error { return run() },
	})
	if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
		logger.Warn(ctx, "tg.sender", "queue.fallback",
			slog.String("action", action),
			slog.String("endpoint", endpoint),
			slog.String("err", err.Error()),
		)
		return run()
	}
	return err
}

// SendText replies with plain text to the current chat. The reply is not tracked for cleanup.
func SendText(c tele.Context, text string) error {
	return sendAsync(c, "send.text", "sendMessage", func() error {
		return c.Send(text)
	})
}

// SendHTML replies with HTML formatted text.
func SendHTML(c tele.Context, text string) error {
	return sendAsync(c, "send.html", "sendMessage", func() error {
		return c.Send(text, &tele.SendOptions{ParseMode: tele.ModeHTML})
	})
}
