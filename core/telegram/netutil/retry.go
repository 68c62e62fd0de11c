package netutil

import (
	"context"
	"errors"
	"net"
	"net/url"
	"time"

	tele "gopkg.in/telebot.v4"
)

// ShouldRetry reports whether an error from the Telegram API is worth retrying:
// dial failures, timeouts and flood control.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var flood tele.FloodError
	if errors.As(err, &flood) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if opErr.Timeout() || opErr.Op == "dial" {
			return true
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return true
		}
		if urlErr.Err != nil && !errors.Is(urlErr.Err, err) {
			return ShouldRetry(urlErr.Err)
		}
	}
	return false
}

// RetryDelay returns how long to wait before the given attempt. Flood errors carry their own delay.
func RetryDelay(err error, attempt int, backoff time.Duration) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return backoff * time.Duration(attempt)
}

// Do runs fn up to attempts times while it fails with a retryable error.
func Do(ctx context.Context, attempts int, backoff time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(); err == nil || !ShouldRetry(err) || attempt == attempts {
			return err
		}
		timer := time.NewTimer(RetryDelay(err, attempt, backoff))
		select {
		case <-ctx.Done():
			timer.Stop()
			return errors.Join(err, ctx.Err())
		case <-timer.C:
		}
	}
	return err
}
