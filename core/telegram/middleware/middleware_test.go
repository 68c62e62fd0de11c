package middleware

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/shopbot/core/config"
	"github.com/m3rciful/shopbot/core/logger"
	tghelpers "github.com/m3rciful/shopbot/core/telegram/helpers"
)

func textUpdate(id int, userID int64, text string) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		ID:     id,
		Text:   text,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID, Type: tele.ChatPrivate},
	}}
}

func TestUpdateKind(t *testing.T) {
	assert.Equal(t, coreconfig.UpdateMessage, UpdateKind(textUpdate(1, 1, "hi")))
	assert.Equal(t, coreconfig.UpdateCheckout, UpdateKind(tele.Update{PreCheckoutQuery: &tele.PreCheckoutQuery{ID: "q"}}))
	assert.Equal(t, coreconfig.UpdatePayment, UpdateKind(tele.Update{Message: &tele.Message{Payment: &tele.Payment{}}}))
	assert.Equal(t, "other", UpdateKind(tele.Update{}))
}

func TestRateLimitDropsBurstsPerUser(t *testing.T) {
	clock := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	limited := 0
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval:  time.Second,
		Now:       func() time.Time { return clock },
		OnLimited: func(tele.Context) error { limited++; return nil },
	})
	handled := 0
	h := mw(func(tele.Context) error { handled++; return nil })

	require.NoError(t, h(tele.NewContext(nil, textUpdate(1, 7, "a"))))
	require.NoError(t, h(tele.NewContext(nil, textUpdate(2, 7, "b"))))
	require.NoError(t, h(tele.NewContext(nil, textUpdate(3, 8, "c"))))
	clock = clock.Add(2 * time.Second)
	require.NoError(t, h(tele.NewContext(nil, textUpdate(4, 7, "d"))))

	assert.Equal(t, 3, handled)
	assert.Equal(t, 1, limited)
}

func TestRateLimitHonoursExclusions(t *testing.T) {
	mw := RateLimitMiddleware(RateLimitOptions{
		Interval: time.Hour,
		Exclude:  map[string]struct{}{coreconfig.UpdateMessage: {}},
	})
	handled := 0
	h := mw(func(tele.Context) error { handled++; return nil })
	for i := 1; i <= 3; i++ {
		require.NoError(t, h(tele.NewContext(nil, textUpdate(i, 7, "x"))))
	}
	assert.Equal(t, 3, handled)
}

func TestRecoverSwallowsPanic(t *testing.T) {
	notified := false
	h := Recover(func(tele.Context) error { notified = true; return nil })(func(tele.Context) error {
		panic("boom")
	})
	assert.NotPanics(t, func() {
		assert.NoError(t, h(tele.NewContext(nil, textUpdate(1, 1, "x"))))
	})
	assert.True(t, notified)
}

func TestLoggerMiddlewareStoresContext(t *testing.T) {
	var rid string
	var chatID int64
	h := LoggerMiddleware(func(c tele.Context) error {
		ctx, ok := tghelpers.ContextFrom(c)
		require.True(t, ok)
		rid = logger.RIDFrom(ctx)
		chatID = logger.ChatIDFrom(ctx)
		return nil
	})
	require.NoError(t, h(tele.NewContext(nil, textUpdate(42, 9, "hello"))))
	assert.NotEmpty(t, rid)
	assert.Equal(t, int64(9), chatID)
}
