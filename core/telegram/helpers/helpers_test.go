package helpers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/shopbot/core/logger"
)

func TestParseFlexibleDate(t *testing.T) {
	now := time.Date(2026, time.October, 14, 15, 30, 0, 0, time.UTC)
	cases := map[string]time.Time{
		"2026-10-20":       time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC),
		" 21.10.2026 ":     time.Date(2026, 10, 21, 0, 0, 0, 0, time.UTC),
		"Thu, 15 Oct 2026": time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC),
		"16 Oct":           time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC),
		"Jan 3":            time.Date(2027, 1, 3, 0, 0, 0, 0, time.UTC),
		"14.10":            time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC),
	}
	for in, want := range cases {
		got, ok := ParseFlexibleDate(in, now)
		require.True(t, ok, in)
		assert.True(t, want.Equal(got), "%s: got %s", in, got)
	}

	_, ok := ParseFlexibleDate("tomorrow-ish", now)
	assert.False(t, ok)
	_, ok = ParseFlexibleDate("   ", now)
	assert.False(t, ok)
}

func TestParseFlexibleDateLeapDay(t *testing.T) {
	now := time.Date(2026, time.October, 14, 15, 30, 0, 0, time.UTC)
	for _, in := range []string{"29.02", "29 Feb", "Feb 29"} {
		_, ok := ParseFlexibleDate(in, now)
		assert.False(t, ok, in)
	}

	got, ok := ParseFlexibleDate("28.02", now)
	require.True(t, ok)
	assert.Equal(t, time.Date(2027, 2, 28, 0, 0, 0, 0, time.UTC), got)

	got, ok = ParseFlexibleDate("29.02", time.Date(2027, time.January, 10, 9, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, time.Date(2028, 2, 29, 0, 0, 0, 0, time.UTC), got)
}

func TestStartOfDay(t *testing.T) {
	got := StartOfDay(time.Date(2026, 3, 1, 23, 59, 1, 5, time.UTC))
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), got)
}

func TestSenderOf(t *testing.T) {
	s := SenderOf(&tele.User{ID: 5, FirstName: "Ada", LastName: "Lovelace", Username: "ada"})
	assert.Equal(t, int64(5), s.ID)
	assert.Equal(t, "Ada Lovelace", s.Name)
	assert.Equal(t, "ada", DisplayName(&tele.User{Username: "ada"}))
	assert.Empty(t, SenderOf(nil).Name)
}

func TestBuildContextCachesMetadata(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{ID: 7, Message: &tele.Message{
		Sender: &tele.User{ID: 9},
		Chat:   &tele.Chat{ID: 11},
	}})
	ctx := BuildContext(c)
	assert.Equal(t, int64(9), logger.UserIDFrom(ctx))
	assert.Equal(t, int64(11), logger.ChatIDFrom(ctx))
	assert.Equal(t, 7, logger.UpdateIDFrom(ctx))
	assert.NotEmpty(t, logger.RIDFrom(ctx))

	assert.Equal(t, "start", logger.HandlerFrom(WithHandler(c, "start")))
	assert.Equal(t, "start", logger.HandlerFrom(BuildContext(c)))
}

func TestBuildContextPreCheckoutUsesPayer(t *testing.T) {
	c := tele.NewContext(nil, tele.Update{ID: 3, PreCheckoutQuery: &tele.PreCheckoutQuery{
		ID:     "q",
		Sender: &tele.User{ID: 42},
	}})
	ctx := BuildContext(c)
	assert.Equal(t, int64(42), logger.ChatIDFrom(ctx))
}
