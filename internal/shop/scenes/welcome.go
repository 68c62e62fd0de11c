package scenes

import (
	"context"
	"fmt"

	"github.com/m3rciful/shopbot/core/telegram/stage"
	"github.com/m3rciful/shopbot/internal/shop"
)

func welcomeStage(d Deps) stage.Stage {
	return scene(
		func(ctx context.Context, s *stage.Scope) error {
			s.Session.ClearScratch()
			if _, err := s.Send(ctx, stage.Outgoing{
				Text:     welcomeText(d.ShopName),
				HTML:     true,
				Keyboard: [][]string{{LabelViewCategories, LabelViewCart}},
			}); err != nil {
				return fmt.Errorf("send welcome: %w", err)
			}
			code, err := d.Vouchers.Generate(ctx, shop.VoucherRequest{ShopID: d.ShopID, ChatID: s.ChatID})
			if err != nil {
				return fmt.Errorf("generate voucher: %w", err)
			}
			if _, err := s.Send(ctx, stage.Outgoing{Text: voucherText(code), HTML: true}); err != nil {
				return fmt.Errorf("send voucher: %w", err)
			}
			return nil
		},
		func(_ context.Context, s *stage.Scope, msg stage.Message) error {
			switch msg.Text {
			case LabelViewCategories:
				s.Goto(Category)
			case LabelViewCart:
				s.Goto(Cart)
			}
			return nil
		},
	)
}
