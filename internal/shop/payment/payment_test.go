package payment

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/internal/shop"

	tele "gopkg.in/telebot.v4"
)

type fakeClient struct {
	sent      []interface{}
	accepted  []string
	sendErr   error
	acceptErr error
}

func (f *fakeClient) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, what)
	return &tele.Message{ID: 77}, nil
}

func (f *fakeClient) Accept(q *tele.PreCheckoutQuery, _ ...string) error {
	f.accepted = append(f.accepted, q.ID)
	return f.acceptErr
}

func order() shop.Invoice {
	return shop.Invoice{
		Title:    "Order",
		Payload:  "ref-1",
		Currency: "usd",
		Items: []shop.CartItem{
			{ProductID: 1, Name: "Tea", Price: 300, Quantity: 2},
			{ProductID: 2, Name: "Cake", Price: 450, Quantity: 1},
		},
	}
}

func TestDisabledWithoutToken(t *testing.T) {
	s := New(&fakeClient{}, "  ")
	assert.False(t, s.Enabled())
	_, err := s.SendInvoice(context.Background(), 1, order())
	assert.Error(t, err)
}

func TestSendInvoiceBuildsPrices(t *testing.T) {
	fc := &fakeClient{}
	s := New(fc, "provider")
	id, err := s.SendInvoice(context.Background(), 5, order())
	require.NoError(t, err)
	assert.Equal(t, 77, id)
	require.Len(t, fc.sent, 1)

	inv, ok := fc.sent[0].(*tele.Invoice)
	require.True(t, ok)
	assert.Equal(t, "USD", inv.Currency)
	assert.Equal(t, "provider", inv.Token)
	assert.Equal(t, "ref-1", inv.Payload)
	assert.Equal(t, 1050, inv.Total)
	assert.Equal(t, []tele.Price{{Label: "Tea x2", Amount: 600}, {Label: "Cake", Amount: 450}}, inv.Prices)
}

func TestSendInvoiceRejectsEmptyOrder(t *testing.T) {
	s := New(&fakeClient{}, "provider")
	_, err := s.SendInvoice(context.Background(), 5, shop.Invoice{Payload: "x"})
	assert.Error(t, err)
}

func TestAcknowledgePreCheckout(t *testing.T) {
	fc := &fakeClient{}
	s := New(fc, "")
	v := s.AcknowledgePreCheckout(context.Background(), shop.PreCheckout{ID: "q1", Payload: "ref"})
	assert.True(t, v.OK)
	assert.Equal(t, []string{"q1"}, fc.accepted)

	fc.acceptErr = errors.New("query too old")
	v = s.AcknowledgePreCheckout(context.Background(), shop.PreCheckout{ID: "q2"})
	assert.False(t, v.OK)
	assert.Equal(t, "query too old", v.Reason)
}
