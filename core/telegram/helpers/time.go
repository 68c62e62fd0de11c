package helpers

import (
	"strings"
	"time"
)

var flexibleDateLayouts = []string{
	"2006-01-02",
	"2006-1-2",
	"02.01.2006",
	"2.1.2006",
	"02/01/2006",
	"2/1/2006",
	"Mon, 2 Jan 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan 2 2006",
	"January 2 2006",
}

// Layouts without a year resolve to the next occurrence of the date.
var yearlessLayouts = []string{
	"02.01",
	"2.1",
	"Mon, 2 Jan",
	"2 Jan",
	"2 January",
	"Jan 2",
	"January 2",
}

// ParseFlexibleDate parses the date formats users type in chat, in now's location.
// Dates without a year that already passed this year roll over to next year; a day
// that does not exist in that year is rejected.
func ParseFlexibleDate(input string, now time.Time) (time.Time, bool) {
	s := strings.Join(strings.Fields(input), " ")
	if s == "" {
		return time.Time{}, false
	}
	loc := now.Location()
	for _, layout := range flexibleDateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, true
		}
	}
	today := StartOfDay(now)
	for _, layout := range yearlessLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			continue
		}
		for _, year := range []int{now.Year(), now.Year() + 1} {
			d := time.Date(year, t.Month(), t.Day(), 0, 0, 0, 0, loc)
			// 29 February outside a leap year normalizes into March.
			if d.Day() != t.Day() || d.Before(today) {
				continue
			}
			return d, true
		}
		return time.Time{}, false
	}
	return time.Time{}, false
}

// StartOfDay truncates t to midnight in its location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
