package scenes

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/stage"
	"github.com/m3rciful/shopbot/internal/shop"
)

func noteStage(d Deps) stage.Stage {
	return scene(
		func(ctx context.Context, s *stage.Scope) error {
			_, err := s.Send(ctx, stage.Outgoing{Text: noteText(), HTML: true, Keyboard: [][]string{{LabelSkip}}})
			return err
		},
		func(ctx context.Context, s *stage.Scope, msg stage.Message) error {
			if s.Session.Has(KeyPlaced) {
				_, err := s.Send(ctx, stage.Outgoing{Text: placedText()})
				return err
			}
			note := strings.TrimSpace(msg.Text)
			if note == LabelSkip {
				note = ""
			}
			if err := s.Set(KeyNote, note); err != nil {
				return err
			}
			return finalize(ctx, d, s, msg.From)
		},
	)
}

// finalize stores the order and sends the untracked confirmation and receipt.
func finalize(ctx context.Context, d Deps, s *stage.Scope, from stage.Sender) error {
	order, err := buildOrder(d, s, from)
	if err != nil {
		return err
	}
	id, err := d.Storage.CreateOrder(ctx, order)
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	order.ID = id
	if err := s.Set(KeyPlaced, id); err != nil {
		return err
	}
	logger.LogEvent(ctx, logger.Shop, slog.LevelInfo, "order.placed",
		slog.Int64("order_id", id),
		slog.Int64("total", order.Total),
		slog.Bool("paid", order.Paid),
		slog.Int("items", len(order.Items)),
	)

	if _, err := s.SendUntracked(ctx, stage.Outgoing{Text: confirmationText(order), HTML: true, RemoveKeyboard: true}); err != nil {
		return fmt.Errorf("send confirmation: %w", err)
	}
	if name, data, err := d.Receipts.Render(order, d.ShopName); err != nil {
		logger.LogEvent(ctx, logger.Shop, slog.LevelWarn, "receipt.render",
			slog.String("status", "fail"),
			slog.String("err", logger.Err(err)),
		)
	} else if _, err := s.SendUntracked(ctx, stage.Outgoing{Document: &stage.Document{Name: name, Data: data, Caption: "🧾 Your receipt"}}); err != nil {
		logger.LogEvent(ctx, logger.Shop, slog.LevelWarn, "receipt.send",
			slog.String("status", "fail"),
			slog.String("err", logger.Err(err)),
		)
	}
	notifyOwner(ctx, d, order)
	return nil
}

func notifyOwner(ctx context.Context, d Deps, order shop.Order) {
	if d.Notifier == nil {
		return
	}
	sh, err := d.Storage.GetShop(ctx, d.ShopID)
	if err == nil {
		err = d.Notifier.OrderPlaced(ctx, *sh, order)
	}
	if err != nil {
		logger.LogEvent(ctx, logger.Shop, slog.LevelWarn, "notify.order",
			slog.String("status", "fail"),
			slog.Int64("order_id", order.ID),
			slog.String("err", logger.Err(err)),
		)
	}
}

func buildOrder(d Deps, s *stage.Scope, from stage.Sender) (shop.Order, error) {
	items, err := loadCart(s)
	if err != nil {
		return shop.Order{}, err
	}
	var (
		ref     string
		day     string
		note    string
		payment stage.Payment
	)
	if _, err := s.Get(KeyOrderRef, &ref); err != nil {
		return shop.Order{}, err
	}
	if _, err := s.Get(KeyDeliveryDate, &day); err != nil {
		return shop.Order{}, err
	}
	if _, err := s.Get(KeyNote, &note); err != nil {
		return shop.Order{}, err
	}
	paid, err := s.Get(KeyPayment, &payment)
	if err != nil {
		return shop.Order{}, err
	}
	delivery, err := time.ParseInLocation("2006-01-02", day, d.Now().Location())
	if err != nil {
		return shop.Order{}, fmt.Errorf("delivery date %q: %w", day, err)
	}
	if ref == "" {
		ref = d.NewRef()
	}

	order := shop.Order{
		Ref:          ref,
		ShopID:       d.ShopID,
		ChatID:       s.ChatID,
		UserID:       from.ID,
		Total:        shop.CartTotal(items),
		Currency:     d.Currency,
		Paid:         paid,
		ChargeID:     payment.ChargeID,
		DeliveryDate: delivery,
		Note:         note,
		CreatedAt:    d.Now(),
	}
	for _, it := range items {
		order.Items = append(order.Items, shop.OrderItem{
			ProductID: it.ProductID, Name: it.Name, Price: it.Price, Quantity: it.Quantity,
		})
	}
	return order, nil
}
