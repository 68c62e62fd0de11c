package sender

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/netutil"
	"github.com/m3rciful/shopbot/core/telegram/stage"

	tele "gopkg.in/telebot.v4"
)

// Client is the part of *tele.Bot the messenger needs.
type Client interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Delete(msg tele.Editable) error
}

// BotMessenger sends and deletes chat messages through the Bot API, retrying transient failures.
type BotMessenger struct {
	client   Client
	attempts int
	backoff  time.Duration
}

var _ stage.Messenger = (*BotMessenger)(nil)

// NewBotMessenger wraps client. Attempts below one mean a single try.
func NewBotMessenger(client Client, attempts int, backoff time.Duration) *BotMessenger {
	if attempts < 1 {
		attempts = 1
	}
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	return &BotMessenger{client: client, attempts: attempts, backoff: backoff}
}

// Send delivers out and returns the id of the created message.
func (m *BotMessenger) Send(ctx context.Context, chatID int64, out stage.Outgoing) (int, error) {
	var msg *tele.Message
	err := netutil.Do(ctx, m.attempts, m.backoff, func() error {
		// A document reader is drained by the upload, so each attempt renders afresh.
		what, opts := render(out)
		var err error
		msg, err = m.client.Send(tele.ChatID(chatID), what, opts)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	if msg == nil {
		return 0, nil
	}
	return msg.ID, nil
}

// Delete removes a message. Telegram refuses deletes for messages older than 48 hours.
func (m *BotMessenger) Delete(ctx context.Context, chatID int64, messageID int) error {
	ref := tele.StoredMessage{MessageID: strconv.Itoa(messageID), ChatID: chatID}
	return netutil.Do(ctx, m.attempts, m.backoff, func() error {
		return m.client.Delete(ref)
	})
}

func render(out stage.Outgoing) (interface{}, *tele.SendOptions) {
	opts := &tele.SendOptions{}
	if out.HTML {
		opts.ParseMode = tele.ModeHTML
	}
	switch {
	case len(out.Keyboard) > 0:
		opts.ReplyMarkup = keyboard.ReplyButtons(out.Keyboard...)
	case out.RemoveKeyboard:
		opts.ReplyMarkup = keyboard.RemoveKeyboard()
	}
	if doc := out.Document; doc != nil {
		caption := doc.Caption
		if caption == "" {
			caption = out.Text
		}
		return &tele.Document{
			File:     tele.FromReader(bytes.NewReader(doc.Data)),
			FileName: doc.Name,
			Caption:  caption,
		}, opts
	}
	return out.Text, opts
}
