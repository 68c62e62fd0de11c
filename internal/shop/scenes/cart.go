package scenes

import (
	"context"

	"github.com/m3rciful/shopbot/core/telegram/stage"
)

func cartStage(d Deps) stage.Stage {
	return scene(
		func(ctx context.Context, s *stage.Scope) error {
			items, err := loadCart(s)
			if err != nil {
				return err
			}
			row := []string{LabelContinueShopping}
			if len(items) > 0 {
				row = []string{LabelCheckout, LabelContinueShopping}
			}
			_, err = s.Send(ctx, stage.Outgoing{Text: cartText(items, d.Currency), HTML: true, Keyboard: [][]string{row}})
			return err
		},
		func(_ context.Context, s *stage.Scope, msg stage.Message) error {
			switch msg.Text {
			case LabelContinueShopping:
				s.Goto(Category)
			case LabelCheckout:
				items, err := loadCart(s)
				if err != nil {
					return err
				}
				if len(items) > 0 {
					s.Goto(Payment)
				}
			}
			return nil
		},
	)
}
