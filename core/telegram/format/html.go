// Package format renders HTML fragments and money amounts for chat messages.
package format

import (
	"html"
	"strings"
)

// EscapeHTML escapes text for Telegram's HTML parse mode.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// Bold wraps escaped text in <b>.
func Bold(text string) string {
	return "<b>" + EscapeHTML(text) + "</b>"
}

// Italic wraps escaped text in <i>.
func Italic(text string) string {
	return "<i>" + EscapeHTML(text) + "</i>"
}

// Lines joins non-empty lines with newlines.
func Lines(lines ...string) string {
	out := lines[:0:0]
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}
