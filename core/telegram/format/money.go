package format

import (
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

var printer = message.NewPrinter(language.English)

// Scale returns the number of minor-unit digits of an ISO 4217 currency, 2 when unknown.
func Scale(code string) int {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		return 2
	}
	scale, _ := currency.Standard.Rounding(unit)
	return scale
}

// Money renders an amount given in minor units, e.g. Money(123450, "USD") is "USD 1,234.50".
func Money(minor int64, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	scale := Scale(code)
	value := float64(minor) / math.Pow10(scale)
	amount := printer.Sprint(number.Decimal(value,
		number.MinFractionDigits(scale),
		number.MaxFractionDigits(scale),
	))
	if code == "" {
		return amount
	}
	return code + " " + amount
}
