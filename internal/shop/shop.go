// Package shop holds the shop domain: catalog entities, orders and the ports the
// conversation talks to.
package shop

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Storage when an entity does not exist.
var ErrNotFound = errors.New("shop: not found")

// Shop is a storefront bound to a bot. ID is the bot's Telegram user id.
type Shop struct {
	ID      int64
	Name    string
	OwnerID int64
	Token   string
}

// User is a Telegram user known to the shop.
type User struct {
	ID       int64
	Name     string
	Username string
	IsOwner  bool
}

// Chat links a user to a shop conversation.
type Chat struct {
	ShopID int64
	UserID int64
	ChatID int64
}

// Category groups products.
type Category struct {
	ID     int64
	ShopID int64
	Name   string
}

// Product is a catalog item. Price is in the smallest currency unit.
type Product struct {
	ID         int64
	CategoryID int64
	Name       string
	Price      int64
}

// CartItem is one product line in the session cart.
type CartItem struct {
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
}

// Subtotal returns price times quantity.
func (c CartItem) Subtotal() int64 {
	return c.Price * int64(c.Quantity)
}

// CartTotal sums the subtotals of items.
func CartTotal(items []CartItem) int64 {
	var total int64
	for _, it := range items {
		total += it.Subtotal()
	}
	return total
}

// AddToCart adds one unit of p, merging with an existing line.
func AddToCart(items []CartItem, p Product) []CartItem {
	for i := range items {
		if items[i].ProductID == p.ID {
			items[i].Quantity++
			return items
		}
	}
	return append(items, CartItem{ProductID: p.ID, Name: p.Name, Price: p.Price, Quantity: 1})
}

// OrderItem is a product line of a placed order.
type OrderItem struct {
	ProductID int64
	Name      string
	Price     int64
	Quantity  int
}

// Order is a finalized checkout.
type Order struct {
	ID           int64
	Ref          string
	ShopID       int64
	ChatID       int64
	UserID       int64
	Items        []OrderItem
	Total        int64
	Currency     string
	Paid         bool
	ChargeID     string
	DeliveryDate time.Time
	Note         string
	CreatedAt    time.Time
}

// Storage is the persistence port. Create methods are idempotent by key.
type Storage interface {
	GetShop(ctx context.Context, id int64) (*Shop, error)
	CreateShop(ctx context.Context, s Shop) error
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, u User) error
	SetOwner(ctx context.Context, userID int64) error
	// GetChat is keyed by chat id, which equals the user id in private chats.
	GetChat(ctx context.Context, shopID, chatID int64) (*Chat, error)
	CreateChat(ctx context.Context, c Chat) error
	ListCategories(ctx context.Context, shopID int64) ([]Category, error)
	ListProducts(ctx context.Context, categoryID int64) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	CreateCategory(ctx context.Context, c Category) (int64, error)
	CreateProduct(ctx context.Context, p Product) (int64, error)
	CreateOrder(ctx context.Context, o Order) (int64, error)
}

// VoucherRequest describes who a voucher is generated for.
type VoucherRequest struct {
	ShopID int64
	ChatID int64
	UserID int64
}

// Vouchers produces promotional codes.
type Vouchers interface {
	Generate(ctx context.Context, req VoucherRequest) (string, error)
}

// Invoice is a payment request for an order.
type Invoice struct {
	Title       string
	Description string
	Payload     string
	Currency    string
	Items       []CartItem
}

// PreCheckout is the query Telegram sends before charging the user.
type PreCheckout struct {
	ID       string
	UserID   int64
	Currency string
	Total    int
	Payload  string
}

// Verdict answers a pre-checkout query.
type Verdict struct {
	OK     bool
	Reason string
}

// Payments sends invoices and answers pre-checkout queries.
type Payments interface {
	Enabled() bool
	SendInvoice(ctx context.Context, chatID int64, inv Invoice) (int, error)
	AcknowledgePreCheckout(ctx context.Context, q PreCheckout) Verdict
}

// Receipts renders an order document.
type Receipts interface {
	Render(o Order, shopName string) (name string, data []byte, err error)
}

// Notifier tells the shop owner about placed orders. Implementations must not block.
type Notifier interface {
	OrderPlaced(ctx context.Context, s Shop, o Order) error
}

// Seeder fills storage with a shop and catalog.
type Seeder interface {
	Seed(ctx context.Context, s Shop) error
}
