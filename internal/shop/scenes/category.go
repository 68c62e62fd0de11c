package scenes

import (
	"context"
	"fmt"

	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/stage"
)

func categoryStage(d Deps) stage.Stage {
	return scene(
		func(ctx context.Context, s *stage.Scope) error {
			cats, err := d.Storage.ListCategories(ctx, d.ShopID)
			if err != nil {
				return fmt.Errorf("list categories: %w", err)
			}
			labels := make([]string, 0, len(cats))
			ids := make(map[string]int64, len(cats))
			for _, c := range cats {
				label := uniqueLabel(ids, c.Name, LabelViewCart)
				labels = append(labels, label)
				ids[label] = c.ID
			}
			if err := s.Set(KeyCategories, ids); err != nil {
				return err
			}
			rows := append(keyboard.Columns(labels, 2), []string{LabelViewCart})
			_, err = s.Send(ctx, stage.Outgoing{Text: categoriesText(len(cats)), Keyboard: rows})
			return err
		},
		func(_ context.Context, s *stage.Scope, msg stage.Message) error {
			if msg.Text == LabelViewCart {
				s.Goto(Cart)
				return nil
			}
			ids, err := menu(s, KeyCategories)
			if err != nil {
				return err
			}
			id, ok := ids[msg.Text]
			if !ok {
				return nil
			}
			if err := s.Set(KeyCategory, id); err != nil {
				return err
			}
			s.Goto(Product)
			return nil
		},
	)
}
