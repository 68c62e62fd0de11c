package telegram

import (
	"strings"
	"time"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// DefaultMiddlewares builds the shared middleware chain: logging context first,
// then panic recovery, then the optional per-user rate limit.
func DefaultMiddlewares(cfg *coreconfig.Config, onPanic, onLimited tele.HandlerFunc) []Middleware {
	mws := []Middleware{
		{Name: "logger", Use: middleware.LoggerMiddleware},
		{Name: "recover", Use: middleware.Recover(onPanic)},
	}
	if cfg == nil {
		return mws
	}
	interval := time.Duration(cfg.RateLimit.IntervalMS) * time.Millisecond
	if interval <= 0 {
		return mws
	}
	ex := make(map[string]struct{}, len(cfg.RateLimit.ExcludeUpdates)+2)
	for _, t := range cfg.RateLimit.ExcludeUpdates {
		ex[strings.ToLower(t)] = struct{}{}
	}
	// Telegram waits only ten seconds for a pre-checkout answer, and a dropped
	// payment message would leave a charged order stuck on the payment stage.
	ex[coreconfig.UpdateCheckout] = struct{}{}
	ex[coreconfig.UpdatePayment] = struct{}{}
	return append(mws, Middleware{
		Name: "rate_limit",
		Use: middleware.RateLimitMiddleware(middleware.RateLimitOptions{
			Interval:  interval,
			Exclude:   ex,
			OnLimited: onLimited,
		}),
	})
}
