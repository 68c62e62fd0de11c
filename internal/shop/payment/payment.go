// Package payment sends Telegram invoices and answers pre-checkout queries.
package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/netutil"
	"github.com/m3rciful/shopbot/internal/shop"

	tele "gopkg.in/telebot.v4"
)

// Client is the part of *tele.Bot the payment service needs.
type Client interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Accept(query *tele.PreCheckoutQuery, errorMessage ...string) error
}

// Service implements shop.Payments. Without a provider token it is disabled and
// orders are paid on delivery.
type Service struct {
	client   Client
	token    string
	attempts int
	backoff  time.Duration
}

var _ shop.Payments = (*Service)(nil)

// New returns a service sending invoices with providerToken.
func New(client Client, providerToken string) *Service {
	return &Service{
		client:   client,
		token:    strings.TrimSpace(providerToken),
		attempts: 3,
		backoff:  500 * time.Millisecond,
	}
}

// Enabled reports whether invoices can be sent.
func (s *Service) Enabled() bool {
	return s != nil && s.token != ""
}

// SendInvoice sends inv to the chat and returns the invoice message id.
func (s *Service) SendInvoice(ctx context.Context, chatID int64, inv shop.Invoice) (int, error) {
	if !s.Enabled() {
		return 0, fmt.Errorf("send invoice: payments disabled")
	}
	invoice := buildInvoice(inv, s.token)
	if len(invoice.Prices) == 0 {
		return 0, fmt.Errorf("send invoice: empty order")
	}
	var msg *tele.Message
	err := netutil.Do(ctx, s.attempts, s.backoff, func() error {
		var err error
		msg, err = s.client.Send(tele.ChatID(chatID), invoice)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("send invoice: %w", err)
	}
	logger.LogEvent(ctx, logger.Shop, slog.LevelInfo, "payment.invoice",
		slog.String("status", "ok"),
		slog.String("payload", inv.Payload),
		slog.Int("total", invoice.Total),
		slog.String("currency", invoice.Currency),
	)
	if msg == nil {
		return 0, nil
	}
	return msg.ID, nil
}

// AcknowledgePreCheckout accepts every query. Settlement is the provider's job.
func (s *Service) AcknowledgePreCheckout(ctx context.Context, q shop.PreCheckout) shop.Verdict {
	err := s.client.Accept(&tele.PreCheckoutQuery{ID: q.ID})
	if err != nil {
		logger.LogEvent(ctx, logger.Shop, slog.LevelWarn, "payment.precheckout",
			slog.String("status", "fail"),
			slog.String("payload", q.Payload),
			slog.String("err", logger.Err(err)),
		)
		return shop.Verdict{OK: false, Reason: err.Error()}
	}
	logger.LogEvent(ctx, logger.Shop, slog.LevelInfo, "payment.precheckout",
		slog.String("status", "ok"),
		slog.String("payload", q.Payload),
		slog.Int("total", q.Total),
	)
	return shop.Verdict{OK: true}
}

func buildInvoice(inv shop.Invoice, token string) *tele.Invoice {
	prices := make([]tele.Price, 0, len(inv.Items))
	total := 0
	for _, it := range inv.Items {
		if it.Quantity <= 0 {
			continue
		}
		amount := int(it.Subtotal())
		label := it.Name
		if it.Quantity > 1 {
			label = fmt.Sprintf("%s x%d", it.Name, it.Quantity)
		}
		prices = append(prices, tele.Price{Label: label, Amount: amount})
		total += amount
	}
	return &tele.Invoice{
		Title:       inv.Title,
		Description: inv.Description,
		Payload:     inv.Payload,
		Currency:    strings.ToUpper(inv.Currency),
		Prices:      prices,
		Token:       token,
		Total:       total,
	}
}
