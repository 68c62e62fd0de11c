// Package scenes implements the checkout conversation: welcome, category, product, cart,
// payment, date and note stages on top of the stage machine.
package scenes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/shopbot/core/telegram/stage"
	"github.com/m3rciful/shopbot/core/telegram/state"
	"github.com/m3rciful/shopbot/internal/shop"
)

// Stage ids.
const (
	Welcome  state.StageID = "welcome"
	Category state.StageID = "category"
	Product  state.StageID = "product"
	Cart     state.StageID = "cart"
	Payment  state.StageID = "payment"
	Date     state.StageID = "date"
	Note     state.StageID = "note"
)

// Button labels. Handlers match them literally.
const (
	LabelViewCategories   = "📚 View Categories"
	LabelViewCart         = "🛒 View Cart"
	LabelBackToCategories = "⬅️ Back to Categories"
	LabelCheckout         = "💳 Checkout"
	LabelContinueShopping = "📚 Continue Shopping"
	LabelConfirmOrder     = "✅ Confirm Order"
	LabelSkip             = "⏭ Skip"

	addPrefix = "➕ "
)

// Scratch keys.
const (
	KeyCart         = "cart"
	KeyCategory     = "category"
	KeyCategories   = "categories"
	KeyProducts     = "products"
	KeyOrderRef     = "order_ref"
	KeyPayment      = "payment"
	KeyDeliveryDate = "delivery_date"
	KeyNote         = "note"
	KeyPlaced       = "placed"
)

// localKeys only live while the stage that wrote them is active.
var localKeys = []string{KeyCategories, KeyProducts}

// Deps are the collaborators the stages call.
type Deps struct {
	ShopID   int64
	ShopName string
	Currency string

	Storage  shop.Storage
	Vouchers shop.Vouchers
	Payments shop.Payments
	Receipts shop.Receipts
	// Notifier is optional.
	Notifier shop.Notifier

	Now    func() time.Time
	NewRef func() string
}

func (d *Deps) normalize() error {
	switch {
	case d.Storage == nil:
		return errors.New("scenes: storage is required")
	case d.Vouchers == nil:
		return errors.New("scenes: vouchers are required")
	case d.Payments == nil:
		return errors.New("scenes: payments are required")
	case d.Receipts == nil:
		return errors.New("scenes: receipts are required")
	}
	if d.Currency == "" {
		d.Currency = "USD"
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewRef == nil {
		d.NewRef = uuid.NewString
	}
	return nil
}

// Register adds the seven stages to m and declares the edges between them.
func Register(m *stage.Machine, d Deps) error {
	if err := d.normalize(); err != nil {
		return err
	}
	m.Register(Welcome, welcomeStage(d))
	m.Register(Category, categoryStage(d))
	m.Register(Product, productStage(d))
	m.Register(Cart, cartStage(d))
	m.Register(Payment, paymentStage(d))
	m.Register(Date, dateStage(d))
	m.Register(Note, noteStage(d))

	m.Allow(Welcome, Category, Cart)
	m.Allow(Category, Product, Cart)
	m.Allow(Product, Cart, Category)
	m.Allow(Cart, Payment, Category)
	m.Allow(Payment, Date)
	m.Allow(Date, Note)
	return nil
}

// scene wraps the per-stage hooks with what every stage does: stage-local scratch is
// dropped on enter, inbound messages are tracked and leaving flushes the chat.
func scene(
	enter func(ctx context.Context, s *stage.Scope) error,
	handle func(ctx context.Context, s *stage.Scope, msg stage.Message) error,
) stage.Hooks {
	return stage.Hooks{
		OnEnter: func(ctx context.Context, s *stage.Scope) error {
			s.Session.Delete(localKeys...)
			return enter(ctx, s)
		},
		OnMessage: func(ctx context.Context, s *stage.Scope, msg stage.Message) error {
			s.Track(msg.ID, state.OriginUser)
			return handle(ctx, s, msg)
		},
		OnLeave: func(ctx context.Context, s *stage.Scope) error {
			s.Flush(ctx)
			return nil
		},
	}
}

func loadCart(s *stage.Scope) ([]shop.CartItem, error) {
	var items []shop.CartItem
	if _, err := s.Get(KeyCart, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// uniqueLabel returns base, or base with a " (n)" suffix when base is already taken in
// ids or equals one of the stage's fixed buttons.
func uniqueLabel(ids map[string]int64, base string, fixed ...string) string {
	taken := func(label string) bool {
		if _, ok := ids[label]; ok {
			return true
		}
		return slices.Contains(fixed, label)
	}
	label := base
	for n := 2; taken(label); n++ {
		label = fmt.Sprintf("%s (%d)", base, n)
	}
	return label
}

func menu(s *stage.Scope, key string) (map[string]int64, error) {
	m := map[string]int64{}
	if _, err := s.Get(key, &m); err != nil {
		return nil, err
	}
	return m, nil
}
