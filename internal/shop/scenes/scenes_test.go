package scenes

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/core/telegram/stage"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/shop"
	"github.com/m3rciful/shopbot/internal/shop/demo"
	"github.com/m3rciful/shopbot/internal/shop/storage/memory"
)

const (
	shopID int64 = 1
	chatID int64 = 42
)

var fixedNow = time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

type sentMessage struct {
	ID  int
	Out stage.Outgoing
}

type fakeMessenger struct {
	mu      sync.Mutex
	nextID  int
	sent    []sentMessage
	deleted []int
}

func (f *fakeMessenger) Send(_ context.Context, _ int64, out stage.Outgoing) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.sent = append(f.sent, sentMessage{ID: 100 + f.nextID, Out: out})
	return 100 + f.nextID, nil
}

func (f *fakeMessenger) Delete(_ context.Context, _ int64, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeMessenger) last() sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

func (f *fakeMessenger) takeDeleted() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.deleted
	f.deleted = nil
	return out
}

type fakeVouchers struct{ err error }

func (v fakeVouchers) Generate(context.Context, shop.VoucherRequest) (string, error) {
	return "SHOP-TEST", v.err
}

type fakePayments struct {
	enabled  bool
	invoices []shop.Invoice
}

func (p *fakePayments) Enabled() bool { return p.enabled }

func (p *fakePayments) SendInvoice(_ context.Context, _ int64, inv shop.Invoice) (int, error) {
	p.invoices = append(p.invoices, inv)
	return 500, nil
}

func (p *fakePayments) AcknowledgePreCheckout(context.Context, shop.PreCheckout) shop.Verdict {
	return shop.Verdict{OK: true}
}

type fakeReceipts struct{}

func (fakeReceipts) Render(o shop.Order, _ string) (string, []byte, error) {
	return "receipt.pdf", []byte("%PDF-"), nil
}

type fakeNotifier struct{ orders []shop.Order }

func (n *fakeNotifier) OrderPlaced(_ context.Context, _ shop.Shop, o shop.Order) error {
	n.orders = append(n.orders, o)
	return nil
}

type harness struct {
	machine  *stage.Machine
	store    state.Store
	msgr     *fakeMessenger
	storage  *memory.Store
	payments *fakePayments
	notifier *fakeNotifier
	nextMsg  int
}

func newHarness(t *testing.T, seed bool, mutate func(*Deps)) *harness {
	t.Helper()
	h := &harness{
		store:    state.NewMemoryStore(Welcome),
		msgr:     &fakeMessenger{},
		storage:  memory.New(),
		payments: &fakePayments{},
		notifier: &fakeNotifier{},
	}
	ctx := context.Background()
	owner := shop.Shop{ID: shopID, Name: "Demo", OwnerID: 7}
	if seed {
		require.NoError(t, demo.New(h.storage, nil).Seed(ctx, owner))
	} else {
		require.NoError(t, h.storage.CreateShop(ctx, owner))
	}
	deps := Deps{
		ShopID:   shopID,
		ShopName: "Demo",
		Storage:  h.storage,
		Vouchers: fakeVouchers{},
		Payments: h.payments,
		Receipts: fakeReceipts{},
		Notifier: h.notifier,
		Now:      func() time.Time { return fixedNow },
		NewRef:   func() string { return "ref-1" },
	}
	if mutate != nil {
		mutate(&deps)
	}
	h.machine = stage.New(h.store, h.msgr, Welcome)
	require.NoError(t, Register(h.machine, deps))
	return h
}

func (h *harness) say(t *testing.T, text string) int {
	t.Helper()
	h.nextMsg++
	require.NoError(t, h.machine.Dispatch(context.Background(), chatID, stage.Message{
		ID: h.nextMsg, Text: text, From: stage.Sender{ID: 9, Name: "Buyer"},
	}))
	return h.nextMsg
}

func (h *harness) active(t *testing.T) state.StageID {
	t.Helper()
	id, err := h.machine.Active(context.Background(), chatID)
	require.NoError(t, err)
	return id
}

func (h *harness) session(t *testing.T) *state.Session {
	t.Helper()
	sess, _, err := h.store.Load(context.Background(), chatID)
	require.NoError(t, err)
	return sess
}

func TestRegisterRequiresCollaborators(t *testing.T) {
	m := stage.New(state.NewMemoryStore(Welcome), &fakeMessenger{}, Welcome)
	assert.Error(t, Register(m, Deps{}))
}

func TestWelcomeSendsPromptAndVoucher(t *testing.T) {
	h := newHarness(t, true, nil)
	require.NoError(t, h.machine.Restart(context.Background(), chatID))

	require.Len(t, h.msgr.sent, 2)
	assert.Equal(t, [][]string{{LabelViewCategories, LabelViewCart}}, h.msgr.sent[0].Out.Keyboard)
	assert.Contains(t, h.msgr.sent[0].Out.Text, "<b>Demo</b>")
	assert.Contains(t, h.msgr.sent[1].Out.Text, "SHOP-TEST")
	assert.Len(t, h.session(t).Cleanup, 2)
}

func TestWelcomeIgnoresUnknownText(t *testing.T) {
	h := newHarness(t, true, nil)
	require.NoError(t, h.machine.Restart(context.Background(), chatID))
	h.say(t, "hello?")

	assert.Equal(t, Welcome, h.active(t))
	assert.Empty(t, h.msgr.takeDeleted())
	assert.Len(t, h.session(t).Cleanup, 3)
}

func TestViewCategoriesFlushesWelcome(t *testing.T) {
	h := newHarness(t, true, nil)
	require.NoError(t, h.machine.Restart(context.Background(), chatID))
	userMsg := h.say(t, LabelViewCategories)

	assert.Equal(t, Category, h.active(t))
	assert.Equal(t, []int{101, 102, userMsg}, h.msgr.takeDeleted())
	last := h.msgr.last()
	assert.Equal(t, []string{LabelViewCart}, last.Out.Keyboard[len(last.Out.Keyboard)-1])
	assert.Contains(t, last.Out.Keyboard[0], demo.Catalog[0].Name)
}

func TestEmptyCatalog(t *testing.T) {
	h := newHarness(t, false, nil)
	require.NoError(t, h.machine.Restart(context.Background(), chatID))
	h.say(t, LabelViewCategories)

	last := h.msgr.last()
	assert.Contains(t, last.Out.Text, "no categories yet")
	assert.Equal(t, [][]string{{LabelViewCart}}, last.Out.Keyboard)
}

func TestVoucherFailureKeepsWelcome(t *testing.T) {
	h := newHarness(t, true, func(d *Deps) { d.Vouchers = fakeVouchers{err: errors.New("voucher service down")} })
	err := h.machine.Restart(context.Background(), chatID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "voucher service down")
	assert.Equal(t, Welcome, h.active(t))
}

func TestCheckoutPayOnDelivery(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()
	require.NoError(t, h.machine.Restart(ctx, chatID))

	h.say(t, LabelViewCategories)
	h.say(t, demo.Catalog[0].Name)
	assert.Equal(t, Product, h.active(t))
	assert.Contains(t, h.msgr.last().Out.Text, "Espresso: USD 2.50")

	h.say(t, "➕ Espresso")
	assert.Equal(t, Cart, h.active(t))
	assert.Contains(t, h.msgr.last().Out.Text, "Espresso x1: USD 2.50")
	assert.Equal(t, [][]string{{LabelCheckout, LabelContinueShopping}}, h.msgr.last().Out.Keyboard)

	h.say(t, LabelContinueShopping)
	h.say(t, demo.Catalog[0].Name)
	h.say(t, "➕ Espresso")
	assert.Contains(t, h.msgr.last().Out.Text, "Espresso x2: USD 5.00")

	h.say(t, LabelCheckout)
	assert.Equal(t, Payment, h.active(t))
	assert.Equal(t, [][]string{{LabelConfirmOrder}}, h.msgr.last().Out.Keyboard)

	h.say(t, LabelConfirmOrder)
	assert.Equal(t, Date, h.active(t))
	buttons := dateButtons(fixedNow)
	assert.Equal(t, [][]string{buttons}, h.msgr.last().Out.Keyboard)

	h.say(t, "13.10.2026")
	assert.Equal(t, Date, h.active(t))
	assert.Contains(t, h.msgr.last().Out.Text, "already passed")
	h.say(t, "soon please")
	assert.Contains(t, h.msgr.last().Out.Text, "could not read")

	h.say(t, buttons[0])
	assert.Equal(t, Note, h.active(t))
	h.msgr.takeDeleted()

	h.say(t, LabelSkip)
	orders := h.storage.Orders()
	require.Len(t, orders, 1)
	o := orders[0]
	assert.Equal(t, "ref-1", o.Ref)
	assert.Equal(t, int64(500), o.Total)
	assert.False(t, o.Paid)
	assert.Equal(t, "", o.Note)
	assert.Equal(t, time.Date(2026, 10, 15, 0, 0, 0, 0, time.UTC), o.DeliveryDate)
	require.Len(t, o.Items, 1)
	assert.Equal(t, 2, o.Items[0].Quantity)
	require.Len(t, h.notifier.orders, 1)

	n := len(h.msgr.sent)
	confirmation, receipt := h.msgr.sent[n-2], h.msgr.sent[n-1]
	assert.Contains(t, confirmation.Out.Text, "has been placed")
	assert.True(t, confirmation.Out.RemoveKeyboard)
	require.NotNil(t, receipt.Out.Document)
	assert.Equal(t, "receipt.pdf", receipt.Out.Document.Name)

	h.say(t, "one more thing")
	assert.Equal(t, Note, h.active(t))
	assert.Contains(t, h.msgr.last().Out.Text, "/start")
	assert.Len(t, h.storage.Orders(), 1)

	for _, tm := range h.session(t).Cleanup {
		assert.NotEqual(t, confirmation.ID, tm.ID)
		assert.NotEqual(t, receipt.ID, tm.ID)
	}
	assert.Empty(t, h.msgr.takeDeleted())
}

func TestCheckoutWithInvoice(t *testing.T) {
	h := newHarness(t, true, nil)
	h.payments.enabled = true
	ctx := context.Background()
	require.NoError(t, h.machine.Restart(ctx, chatID))

	h.say(t, LabelViewCategories)
	h.say(t, demo.Catalog[1].Name)
	h.say(t, "➕ Green Tea")
	h.say(t, LabelCheckout)
	assert.Equal(t, Payment, h.active(t))
	require.Len(t, h.payments.invoices, 1)
	inv := h.payments.invoices[0]
	assert.Equal(t, "ref-1", inv.Payload)
	assert.Equal(t, "Green Tea x1", inv.Description)
	assert.True(t, h.msgr.last().Out.RemoveKeyboard)

	h.say(t, LabelConfirmOrder)
	assert.Equal(t, Payment, h.active(t))

	h.nextMsg++
	require.NoError(t, h.machine.Dispatch(ctx, chatID, stage.Message{
		ID: h.nextMsg, Payment: &stage.Payment{Payload: "other", Total: 220, Currency: "USD"},
	}))
	assert.Equal(t, Payment, h.active(t))
	assert.Contains(t, h.msgr.last().Out.Text, "does not belong")
	h.msgr.takeDeleted()

	h.nextMsg++
	require.NoError(t, h.machine.Dispatch(ctx, chatID, stage.Message{
		ID: h.nextMsg, Payment: &stage.Payment{Payload: "ref-1", Total: 220, Currency: "USD", ChargeID: "ch_1"},
	}))
	assert.Equal(t, Date, h.active(t))
	assert.Contains(t, h.msgr.takeDeleted(), 500)

	h.say(t, buttons(fixedNow)[1])
	h.say(t, "Leave it at reception")
	orders := h.storage.Orders()
	require.Len(t, orders, 1)
	assert.True(t, orders[0].Paid)
	assert.Equal(t, "ch_1", orders[0].ChargeID)
	assert.Equal(t, "Leave it at reception", orders[0].Note)
}

func TestCheckoutNeedsItems(t *testing.T) {
	h := newHarness(t, true, nil)
	require.NoError(t, h.machine.Restart(context.Background(), chatID))
	h.say(t, LabelViewCart)
	assert.Equal(t, Cart, h.active(t))
	assert.Equal(t, [][]string{{LabelContinueShopping}}, h.msgr.last().Out.Keyboard)

	h.say(t, LabelCheckout)
	assert.Equal(t, Cart, h.active(t))
}

func TestBackToCategoriesDropsProductMenu(t *testing.T) {
	h := newHarness(t, true, nil)
	require.NoError(t, h.machine.Restart(context.Background(), chatID))
	h.say(t, LabelViewCategories)
	h.say(t, demo.Catalog[2].Name)
	assert.True(t, h.session(t).Has(KeyProducts))

	h.say(t, LabelBackToCategories)
	assert.Equal(t, Category, h.active(t))
	sess := h.session(t)
	assert.False(t, sess.Has(KeyProducts))
	assert.True(t, sess.Has(KeyCategories))
}

func TestRestartClearsCart(t *testing.T) {
	h := newHarness(t, true, nil)
	ctx := context.Background()
	require.NoError(t, h.machine.Restart(ctx, chatID))
	h.say(t, LabelViewCategories)
	h.say(t, demo.Catalog[0].Name)
	h.say(t, "➕ Espresso")
	require.True(t, h.session(t).Has(KeyCart))

	require.NoError(t, h.machine.Restart(ctx, chatID))
	assert.Equal(t, Welcome, h.active(t))
	assert.False(t, h.session(t).Has(KeyCart))
}

func buttons(now time.Time) []string {
	return dateButtons(now)
}

// twinCategories lists two categories sharing a name.
type twinCategories struct{ shop.Storage }

func (twinCategories) ListCategories(context.Context, int64) ([]shop.Category, error) {
	return []shop.Category{
		{ID: 1, ShopID: shopID, Name: "Coffee"},
		{ID: 2, ShopID: shopID, Name: "Coffee"},
		{ID: 3, ShopID: shopID, Name: LabelViewCart},
	}, nil
}

func TestDuplicateNamesGetDistinctButtons(t *testing.T) {
	h := newHarness(t, true, func(d *Deps) { d.Storage = twinCategories{Storage: d.Storage} })
	require.NoError(t, h.machine.Restart(context.Background(), chatID))
	h.say(t, LabelViewCategories)

	last := h.msgr.last()
	assert.Equal(t, [][]string{{"Coffee", "Coffee (2)"}, {LabelViewCart + " (2)"}, {LabelViewCart}}, last.Out.Keyboard)

	h.say(t, "Coffee (2)")
	assert.Equal(t, Product, h.active(t))
	var picked int64
	ok, err := h.session(t).Get(KeyCategory, &picked)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(2), picked)
}

func TestUniqueLabel(t *testing.T) {
	ids := map[string]int64{"Tea": 1, "Tea (2)": 2}
	assert.Equal(t, "Tea (3)", uniqueLabel(ids, "Tea"))
	assert.Equal(t, "Cake", uniqueLabel(ids, "Cake"))
	assert.Equal(t, LabelBackToCategories+" (2)", uniqueLabel(ids, LabelBackToCategories, LabelBackToCategories))
}
