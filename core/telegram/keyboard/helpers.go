package keyboard

import tele "gopkg.in/telebot.v4"

// RemoveKeyboard returns a markup that hides the reply keyboard.
func RemoveKeyboard() *tele.ReplyMarkup {
	return &tele.ReplyMarkup{RemoveKeyboard: true}
}

// ReplyButtons builds a resized reply keyboard from rows of labels. Empty rows are skipped.
func ReplyButtons(rows ...[]string) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{ResizeKeyboard: true}
	keyboard := make([]tele.Row, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		buttons := make([]tele.Btn, 0, len(row))
		for _, label := range row {
			buttons = append(buttons, markup.Text(label))
		}
		keyboard = append(keyboard, markup.Row(buttons...))
	}
	markup.Reply(keyboard...)
	return markup
}

// Columns splits labels into rows of up to n labels. n <= 1 puts every label on its own row.
func Columns(labels []string, n int) [][]string {
	if n < 1 {
		n = 1
	}
	rows := make([][]string, 0, (len(labels)+n-1)/n)
	for i := 0; i < len(labels); i += n {
		end := i + n
		if end > len(labels) {
			end = len(labels)
		}
		rows = append(rows, append([]string(nil), labels[i:end]...))
	}
	return rows
}
