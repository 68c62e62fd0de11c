// Package notify tells shop owners about new orders without holding up the buyer's chat.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/format"
	"github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/internal/shop"

	tele "gopkg.in/telebot.v4"
)

// Submitter queues outbound jobs. *sender.Dispatcher implements it.
type Submitter interface {
	Submit(ctx context.Context, job sender.Job) error
}

// Client sends the notification message.
type Client interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// Owner implements shop.Notifier on top of the outbound dispatcher.
type Owner struct {
	queue  Submitter
	client Client
}

var _ shop.Notifier = (*Owner)(nil)

// New returns a notifier.
func New(queue Submitter, client Client) *Owner {
	return &Owner{queue: queue, client: client}
}

// OrderPlaced queues a message to the shop owner. It returns once the job is queued.
func (n *Owner) OrderPlaced(ctx context.Context, s shop.Shop, o shop.Order) error {
	if s.OwnerID == 0 {
		logger.LogEvent(ctx, logger.Shop, slog.LevelDebug, "notify.skip",
			slog.String("reason", "no_owner"),
			slog.Int64("shop_id", s.ID),
		)
		return nil
	}
	text := Summary(o)
	err := n.queue.Submit(ctx, sender.Job{
		Action:   "notify.order",
		Endpoint: "sendMessage",
		Run: func(context.Context) error {
			_, err := n.client.Send(tele.ChatID(s.OwnerID), text, &tele.SendOptions{ParseMode: tele.ModeHTML})
			return err
		},
	})
	if err != nil {
		return fmt.Errorf("notify owner: %w", err)
	}
	return nil
}

// Summary renders the owner-facing order message.
func Summary(o shop.Order) string {
	var items strings.Builder
	for _, it := range o.Items {
		fmt.Fprintf(&items, "• %s x%d\n", format.EscapeHTML(it.Name), it.Quantity)
	}
	payment := "pay on delivery"
	if o.Paid {
		payment = "paid"
	}
	note := ""
	if strings.TrimSpace(o.Note) != "" {
		note = "Note: " + format.Italic(o.Note)
	}
	return format.Lines(
		fmt.Sprintf("🧾 New order <b>#%d</b>", o.ID),
		strings.TrimRight(items.String(), "\n"),
		"Total: "+format.Bold(format.Money(o.Total, o.Currency))+" ("+payment+")",
		"Delivery: "+o.DeliveryDate.Format("Mon, 02 Jan 2006"),
		note,
	)
}
