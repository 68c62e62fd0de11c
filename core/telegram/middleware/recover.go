package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// Recover catches handler panics so one chat cannot stop the poller for the others.
// onPanic, when set, runs after the panic is logged, typically to tell the user to /start again.
func Recover(onPanic tele.HandlerFunc) tele.MiddlewareFunc {
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				ctx := tghelpers.BuildContext(c)
				logger.LogEvent(ctx, logger.TG, slog.LevelError, "tg.panic",
					slog.String("status", "fail"),
					slog.String("err", logger.SanitizeLimit(fmt.Sprint(r), 256)),
					slog.String("stack", string(debug.Stack())),
				)
				if onPanic != nil {
					_ = onPanic(c)
				}
				err = nil
			}()
			return next(c)
		}
	}
}

// RecoverMiddleware is Recover without a user notification.
func RecoverMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return Recover(nil)(next)
}
