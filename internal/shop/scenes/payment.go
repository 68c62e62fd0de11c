package scenes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/core/telegram/stage"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/shop"
)

func paymentStage(d Deps) stage.Stage {
	return scene(
		func(ctx context.Context, s *stage.Scope) error {
			items, err := loadCart(s)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				return errors.New("checkout with an empty cart")
			}
			ref := d.NewRef()
			if err := s.Set(KeyOrderRef, ref); err != nil {
				return err
			}
			enabled := d.Payments.Enabled()
			if enabled {
				id, err := d.Payments.SendInvoice(ctx, s.ChatID, shop.Invoice{
					Title:       fmt.Sprintf("Order from %s", d.ShopName),
					Description: invoiceDescription(items),
					Payload:     ref,
					Currency:    d.Currency,
					Items:       items,
				})
				if err != nil {
					return fmt.Errorf("send invoice: %w", err)
				}
				s.Track(id, state.OriginBot)
			}
			out := stage.Outgoing{Text: paymentText(enabled, shop.CartTotal(items), d.Currency), HTML: true}
			if enabled {
				out.RemoveKeyboard = true
			} else {
				out.Keyboard = [][]string{{LabelConfirmOrder}}
			}
			_, err = s.Send(ctx, out)
			return err
		},
		func(ctx context.Context, s *stage.Scope, msg stage.Message) error {
			var ref string
			if _, err := s.Get(KeyOrderRef, &ref); err != nil {
				return err
			}
			if p := msg.Payment; p != nil {
				if p.Payload != ref {
					logger.LogEvent(ctx, logger.Shop, slog.LevelWarn, "payment.mismatch",
						slog.String("payload", p.Payload),
						slog.String("order_ref", ref),
					)
					_, err := s.Send(ctx, stage.Outgoing{Text: paymentMismatchText()})
					return err
				}
				if err := s.Set(KeyPayment, *p); err != nil {
					return err
				}
				s.Goto(Date)
				return nil
			}
			if msg.Text == LabelConfirmOrder && !d.Payments.Enabled() {
				s.Goto(Date)
			}
			return nil
		},
	)
}
