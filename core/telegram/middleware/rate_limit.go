package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// RateLimitOptions configures behaviour of the rate limit middleware.
type RateLimitOptions struct {
	Interval  time.Duration
	Exclude   map[string]struct{}
	OnLimited tele.HandlerFunc
	// Now is overridable in tests.
	Now func() time.Time
}

// RateLimitMiddleware drops updates arriving from the same user faster than Interval.
func RateLimitMiddleware(opts RateLimitOptions) tele.MiddlewareFunc {
	var (
		lastSeen = make(map[int64]time.Time)
		mu       sync.Mutex
	)
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			user := c.Sender()
			if user == nil || opts.Interval <= 0 {
				return next(c)
			}
			kind := UpdateKind(c.Update())
			if _, skip := opts.Exclude[kind]; skip {
				return next(c)
			}

			ts := now()
			mu.Lock()
			if last, ok := lastSeen[user.ID]; ok && ts.Sub(last) < opts.Interval {
				mu.Unlock()
				logger.LogEvent(tghelpers.BuildContext(c), logger.TG, slog.LevelWarn, "tg.rate_limit",
					slog.String("status", "rate_limited"),
					slog.String("kind", kind),
				)
				if opts.OnLimited != nil {
					_ = opts.OnLimited(c)
				}
				return nil
			}
			lastSeen[user.ID] = ts
			for id, seen := range lastSeen {
				if ts.Sub(seen) > 10*opts.Interval {
					delete(lastSeen, id)
				}
			}
			mu.Unlock()
			return next(c)
		}
	}
}
