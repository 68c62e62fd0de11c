package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/telegram/sender"
	"github.com/m3rciful/shopbot/internal/shop"

	tele "gopkg.in/telebot.v4"
)

type inlineQueue struct {
	jobs []sender.Job
	err  error
}

func (q *inlineQueue) Submit(ctx context.Context, job sender.Job) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return job.Run(ctx)
}

type recordingClient struct {
	to   []string
	text []string
}

func (c *recordingClient) Send(to tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	c.to = append(c.to, to.Recipient())
	c.text = append(c.text, what.(string))
	return &tele.Message{ID: 1}, nil
}

func sampleOrder() shop.Order {
	return shop.Order{
		ID:           9,
		Items:        []shop.OrderItem{{Name: "Tea & Cake", Price: 500, Quantity: 2}},
		Total:        1000,
		Currency:     "USD",
		DeliveryDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		Note:         "leave at door",
	}
}

func TestOrderPlacedSendsToOwner(t *testing.T) {
	q := &inlineQueue{}
	c := &recordingClient{}
	n := New(q, c)

	require.NoError(t, n.OrderPlaced(context.Background(), shop.Shop{ID: 1, OwnerID: 555}, sampleOrder()))
	require.Len(t, q.jobs, 1)
	assert.Equal(t, "notify.order", q.jobs[0].Action)
	assert.Equal(t, []string{"555"}, c.to)
	assert.Contains(t, c.text[0], "#9")
	assert.Contains(t, c.text[0], "Tea &amp; Cake x2")
}

func TestOrderPlacedWithoutOwnerIsSkipped(t *testing.T) {
	q := &inlineQueue{}
	n := New(q, &recordingClient{})
	require.NoError(t, n.OrderPlaced(context.Background(), shop.Shop{ID: 1}, sampleOrder()))
	assert.Empty(t, q.jobs)
}

func TestOrderPlacedQueueError(t *testing.T) {
	n := New(&inlineQueue{err: sender.ErrQueueFull}, &recordingClient{})
	err := n.OrderPlaced(context.Background(), shop.Shop{OwnerID: 1}, sampleOrder())
	assert.True(t, errors.Is(err, sender.ErrQueueFull))
}

func TestSummary(t *testing.T) {
	text := Summary(sampleOrder())
	assert.Contains(t, text, "<b>USD 10.00</b> (pay on delivery)")
	assert.Contains(t, text, "Delivery: Fri, 01 May 2026")
	assert.Contains(t, text, "<i>leave at door</i>")

	o := sampleOrder()
	o.Paid, o.Note = true, ""
	text = Summary(o)
	assert.Contains(t, text, "(paid)")
	assert.NotContains(t, text, "Note:")
}
