package helpers

import (
	"context"

	"github.com/m3rciful/shopbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// storeKey is the tele.Context slot holding the request context.
const storeKey = "request_ctx"

// StoreContext keeps ctx on c so later helpers of the same update reuse it.
func StoreContext(c tele.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(storeKey, ctx)
}

// ContextFrom returns the context stored by StoreContext.
func ContextFrom(c tele.Context) (context.Context, bool) {
	if c == nil {
		return nil, false
	}
	ctx, ok := c.Get(storeKey).(context.Context)
	return ctx, ok && ctx != nil
}

// BuildContext returns the request context of the update carried by c, creating it
// with request id and update, user and chat metadata on first use.
func BuildContext(c tele.Context) context.Context {
	if cached, ok := ContextFrom(c); ok {
		return cached
	}
	if c == nil {
		return context.Background()
	}

	upd := c.Update()
	userID, chatID := participants(c)

	rid, _ := c.Get("rid").(string)
	if rid == "" {
		rid = logger.BuildRID(upd.ID, chatID, userID)
	}

	ctx := logger.WithRID(context.Background(), rid)
	ctx = logger.WithUpdateMeta(ctx, upd.ID, userID, chatID)
	ctx = logger.WithLogger(ctx, logger.TG)
	StoreContext(c, ctx)
	return ctx
}

// participants resolves user and chat ids. Pre-checkout queries carry no chat; their
// invoice was sent to the private chat with the payer, so the payer id stands in.
func participants(c tele.Context) (userID, chatID int64) {
	if u := c.Sender(); u != nil {
		userID = u.ID
	}
	switch {
	case c.Chat() != nil:
		chatID = c.Chat().ID
	case c.PreCheckoutQuery() != nil:
		chatID = userID
	}
	return userID, chatID
}

// WithHandler records the handler name on the stored context.
func WithHandler(c tele.Context, handler string) context.Context {
	ctx := BuildContext(c)
	if handler == "" {
		return ctx
	}
	ctx = logger.WithHandler(ctx, handler)
	StoreContext(c, ctx)
	return ctx
}
