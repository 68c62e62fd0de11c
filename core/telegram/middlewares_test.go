package telegram

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	coreconfig "github.com/m3rciful/shopbot/core/config"
)

func chain(mws []Middleware, h tele.HandlerFunc) tele.HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i].Use(h)
	}
	return h
}

func paymentUpdate(id int, userID int64) tele.Update {
	return tele.Update{ID: id, Message: &tele.Message{
		ID:      id,
		Sender:  &tele.User{ID: userID},
		Chat:    &tele.Chat{ID: userID, Type: tele.ChatPrivate},
		Payment: &tele.Payment{Currency: "USD", Total: 250, Payload: "ref"},
	}}
}

func TestDefaultMiddlewaresWithoutRateLimit(t *testing.T) {
	mws := DefaultMiddlewares(&coreconfig.Config{}, nil, nil)
	names := make([]string, 0, len(mws))
	for _, mw := range mws {
		names = append(names, mw.Name)
	}
	assert.Equal(t, []string{"logger", "recover"}, names)
}

func TestDefaultMiddlewaresNeverLimitPayments(t *testing.T) {
	cfg := &coreconfig.Config{RateLimit: coreconfig.RateLimitConfig{
		IntervalMS:     60_000,
		ExcludeUpdates: []string{coreconfig.UpdateMessage},
	}}
	mws := DefaultMiddlewares(cfg, nil, nil)
	require.Len(t, mws, 3)

	handled := 0
	h := chain(mws, func(tele.Context) error { handled++; return nil })
	for i := 1; i <= 3; i++ {
		require.NoError(t, h(tele.NewContext(nil, paymentUpdate(i, 7))))
	}
	assert.Equal(t, 3, handled)
}
