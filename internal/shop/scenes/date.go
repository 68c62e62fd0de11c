package scenes

import (
	"context"

	"github.com/m3rciful/shopbot/core/telegram/helpers"
	"github.com/m3rciful/shopbot/core/telegram/keyboard"
	"github.com/m3rciful/shopbot/core/telegram/stage"
)

func dateStage(d Deps) stage.Stage {
	return scene(
		func(ctx context.Context, s *stage.Scope) error {
			_, err := s.Send(ctx, stage.Outgoing{
				Text:     dateText(),
				Keyboard: keyboard.Columns(dateButtons(d.Now()), 3),
			})
			return err
		},
		func(ctx context.Context, s *stage.Scope, msg stage.Message) error {
			now := d.Now()
			day, ok := helpers.ParseFlexibleDate(msg.Text, now)
			if !ok {
				_, err := s.Send(ctx, stage.Outgoing{Text: dateInvalidText()})
				return err
			}
			if day.Before(helpers.StartOfDay(now)) {
				_, err := s.Send(ctx, stage.Outgoing{Text: datePastText()})
				return err
			}
			if err := s.Set(KeyDeliveryDate, day.Format("2006-01-02")); err != nil {
				return err
			}
			s.Goto(Note)
			return nil
		},
	)
}
