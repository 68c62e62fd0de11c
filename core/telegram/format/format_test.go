package format

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "Fish &amp; Chips &lt;3", EscapeHTML("Fish & Chips <3"))
	assert.Equal(t, "<b>a&lt;b</b>", Bold("a<b"))
	assert.Equal(t, "<i>x</i>", Italic("x"))
}

func TestLines(t *testing.T) {
	assert.Equal(t, "a\nb", Lines("a", "", "  ", "b"))
	assert.Equal(t, "", Lines())
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "USD 12.50", Money(1250, "usd"))
	assert.Equal(t, "USD 1,234.50", Money(123450, "USD"))
	assert.Equal(t, "JPY 500", Money(500, "JPY"))
	assert.Equal(t, 2, Scale("nope"))
}
