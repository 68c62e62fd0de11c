package scenes

import (
	"context"
	"errors"
	"fmt"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/stage"
	"github.com/m3rciful/shopbot/internal/shop"
)

func productStage(d Deps) stage.Stage {
	return scene(
		func(ctx context.Context, s *stage.Scope) error {
			var categoryID int64
			if ok, err := s.Get(KeyCategory, &categoryID); err != nil {
				return err
			} else if !ok {
				return errors.New("no category selected")
			}
			items, err := d.Storage.ListProducts(ctx, categoryID)
			if err != nil {
				return fmt.Errorf("list products: %w", err)
			}
			labels := make([]string, 0, len(items))
			ids := make(map[string]int64, len(items))
			for _, p := range items {
				label := uniqueLabel(ids, addLabel(p.Name), LabelBackToCategories)
				labels = append(labels, label)
				ids[label] = p.ID
			}
			if err := s.Set(KeyProducts, ids); err != nil {
				return err
			}
			rows := append(keyboard.Columns(labels, 2), []string{LabelBackToCategories})
			_, err = s.Send(ctx, stage.Outgoing{Text: productsText(items, d.Currency), HTML: true, Keyboard: rows})
			return err
		},
		func(ctx context.Context, s *stage.Scope, msg stage.Message) error {
			if msg.Text == LabelBackToCategories {
				s.Goto(Category)
				return nil
			}
			ids, err := menu(s, KeyProducts)
			if err != nil {
				return err
			}
			id, ok := ids[msg.Text]
			if !ok {
				return nil
			}
			p, err := d.Storage.GetProduct(ctx, id)
			if err != nil {
				return fmt.Errorf("get product: %w", err)
			}
			cart, err := loadCart(s)
			if err != nil {
				return err
			}
			if err := s.Set(KeyCart, shop.AddToCart(cart, *p)); err != nil {
				return err
			}
			s.Goto(Cart)
			return nil
		},
	)
}
