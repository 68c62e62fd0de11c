package netutil

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestShouldRetry(t *testing.T) {
	dial := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	assert.True(t, ShouldRetry(dial))
	assert.True(t, ShouldRetry(tele.FloodError{RetryAfter: 1}))
	assert.False(t, ShouldRetry(errors.New("bad request: message to delete not found")))
	assert.False(t, ShouldRetry(nil))
	assert.False(t, ShouldRetry(context.Canceled))
}

func TestRetryDelay(t *testing.T) {
	assert.Equal(t, 3*time.Second, RetryDelay(tele.FloodError{RetryAfter: 3}, 1, time.Millisecond))
	assert.Equal(t, 20*time.Millisecond, RetryDelay(errors.New("x"), 2, 10*time.Millisecond))
}

func TestDoStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		return errors.New("forbidden: bot was blocked by the user")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDoRetriesTransientError(t *testing.T) {
	calls := 0
	err := Do(context.Background(), 3, time.Millisecond, func() error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("connection reset")}
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}
