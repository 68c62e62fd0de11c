// Package postgres stores the shop in PostgreSQL through sqlx.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/shopbot/core/database"
	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/shop"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Migrations returns the embedded schema migrations.
func Migrations() coredatabase.Migrations {
	return coredatabase.Migrations{FS: migrationFS, Dir: "migrations"}
}

// Store implements shop.Storage. Writes use ON CONFLICT DO NOTHING so concurrent
// creates of the same key are safe.
type Store struct {
	db *sqlx.DB
}

var _ shop.Storage = (*Store)(nil)

// New wraps an open connection.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

type shopRow struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	OwnerID int64  `db:"owner_id"`
	Token   string `db:"token"`
}

type userRow struct {
	ID       int64  `db:"id"`
	Name     string `db:"name"`
	Username string `db:"username"`
	IsOwner  bool   `db:"is_owner"`
}

type chatRow struct {
	ShopID int64 `db:"shop_id"`
	ChatID int64 `db:"chat_id"`
	UserID int64 `db:"user_id"`
}

type categoryRow struct {
	ID     int64  `db:"id"`
	ShopID int64  `db:"shop_id"`
	Name   string `db:"name"`
}

type productRow struct {
	ID         int64  `db:"id"`
	CategoryID int64  `db:"category_id"`
	Name       string `db:"name"`
	Price      int64  `db:"price"`
}

type orderRow struct {
	ID           int64     `db:"id"`
	Ref          string    `db:"ref"`
	ShopID       int64     `db:"shop_id"`
	ChatID       int64     `db:"chat_id"`
	UserID       int64     `db:"user_id"`
	Total        int64     `db:"total"`
	Currency     string    `db:"currency"`
	Paid         bool      `db:"paid"`
	ChargeID     string    `db:"charge_id"`
	DeliveryDate time.Time `db:"delivery_date"`
	Note         string    `db:"note"`
}

type orderItemRow struct {
	OrderID   int64  `db:"order_id"`
	ProductID int64  `db:"product_id"`
	Name      string `db:"name"`
	Price     int64  `db:"price"`
	Quantity  int    `db:"quantity"`
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return shop.ErrNotFound
	}
	return err
}

func (s *Store) GetShop(ctx context.Context, id int64) (*shop.Shop, error) {
	var row shopRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, owner_id, token FROM shops WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get shop %d: %w", id, notFound(err))
	}
	return &shop.Shop{ID: row.ID, Name: row.Name, OwnerID: row.OwnerID, Token: row.Token}, nil
}

func (s *Store) CreateShop(ctx context.Context, v shop.Shop) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO shops (id, name, owner_id, token) VALUES (:id, :name, :owner_id, :token)
		 ON CONFLICT (id) DO NOTHING`,
		shopRow{ID: v.ID, Name: v.Name, OwnerID: v.OwnerID, Token: v.Token})
	if err != nil {
		return fmt.Errorf("create shop %d: %w", v.ID, err)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (*shop.User, error) {
	var row userRow
	err := s.db.GetContext(ctx, &row, `SELECT id, name, username, is_owner FROM users WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, notFound(err))
	}
	return &shop.User{ID: row.ID, Name: row.Name, Username: row.Username, IsOwner: row.IsOwner}, nil
}

func (s *Store) CreateUser(ctx context.Context, v shop.User) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO users (id, name, username, is_owner) VALUES (:id, :name, :username, :is_owner)
		 ON CONFLICT (id) DO NOTHING`,
		userRow{ID: v.ID, Name: v.Name, Username: v.Username, IsOwner: v.IsOwner})
	if err != nil {
		return fmt.Errorf("create user %d: %w", v.ID, err)
	}
	return nil
}

func (s *Store) SetOwner(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE users SET is_owner = TRUE WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("set owner %d: %w", userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("set owner %d: %w", userID, shop.ErrNotFound)
	}
	return nil
}

func (s *Store) GetChat(ctx context.Context, shopID, chatID int64) (*shop.Chat, error) {
	var row chatRow
	err := s.db.GetContext(ctx, &row,
		`SELECT shop_id, chat_id, user_id FROM chats WHERE shop_id = $1 AND chat_id = $2`, shopID, chatID)
	if err != nil {
		return nil, fmt.Errorf("get chat %d: %w", chatID, notFound(err))
	}
	return &shop.Chat{ShopID: row.ShopID, UserID: row.UserID, ChatID: row.ChatID}, nil
}

func (s *Store) CreateChat(ctx context.Context, v shop.Chat) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO chats (shop_id, chat_id, user_id) VALUES (:shop_id, :chat_id, :user_id)
		 ON CONFLICT (shop_id, chat_id) DO NOTHING`,
		chatRow{ShopID: v.ShopID, ChatID: v.ChatID, UserID: v.UserID})
	if err != nil {
		return fmt.Errorf("create chat %d: %w", v.ChatID, err)
	}
	return nil
}

func (s *Store) ListCategories(ctx context.Context, shopID int64) ([]shop.Category, error) {
	var rows []categoryRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, shop_id, name FROM categories WHERE shop_id = $1 ORDER BY id`, shopID); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]shop.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, shop.Category{ID: r.ID, ShopID: r.ShopID, Name: r.Name})
	}
	return out, nil
}

func (s *Store) ListProducts(ctx context.Context, categoryID int64) ([]shop.Product, error) {
	var rows []productRow
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT id, category_id, name, price FROM products WHERE category_id = $1 ORDER BY id`, categoryID); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	out := make([]shop.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, toProduct(r))
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*shop.Product, error) {
	var row productRow
	err := s.db.GetContext(ctx, &row, `SELECT id, category_id, name, price FROM products WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get product %d: %w", id, notFound(err))
	}
	p := toProduct(row)
	return &p, nil
}

func (s *Store) CreateCategory(ctx context.Context, v shop.Category) (int64, error) {
	id, err := s.insertOrSelect(ctx,
		`INSERT INTO categories (shop_id, name) VALUES ($1, $2) ON CONFLICT (shop_id, name) DO NOTHING RETURNING id`,
		`SELECT id FROM categories WHERE shop_id = $1 AND name = $2`,
		v.ShopID, v.Name)
	if err != nil {
		return 0, fmt.Errorf("create category %q: %w", v.Name, err)
	}
	return id, nil
}

func (s *Store) CreateProduct(ctx context.Context, v shop.Product) (int64, error) {
	id, err := s.insertOrSelectArgs(ctx,
		`INSERT INTO products (category_id, name, price) VALUES ($1, $2, $3) ON CONFLICT (category_id, name) DO NOTHING RETURNING id`,
		[]any{v.CategoryID, v.Name, v.Price},
		`SELECT id FROM products WHERE category_id = $1 AND name = $2`,
		[]any{v.CategoryID, v.Name})
	if err != nil {
		return 0, fmt.Errorf("create product %q: %w", v.Name, err)
	}
	return id, nil
}

// CreateOrder writes the order and its items in one transaction. A repeated Ref
// returns the id of the order already stored.
func (s *Store) CreateOrder(ctx context.Context, o shop.Order) (int64, error) {
	start := time.Now()
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("create order: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := orderRow{
		Ref: o.Ref, ShopID: o.ShopID, ChatID: o.ChatID, UserID: o.UserID,
		Total: o.Total, Currency: o.Currency, Paid: o.Paid, ChargeID: o.ChargeID,
		DeliveryDate: o.DeliveryDate, Note: o.Note,
	}
	var id int64
	err = tx.GetContext(ctx, &id,
		`INSERT INTO orders (ref, shop_id, chat_id, user_id, total, currency, paid, charge_id, delivery_date, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (ref) DO NOTHING RETURNING id`,
		row.Ref, row.ShopID, row.ChatID, row.UserID, row.Total, row.Currency, row.Paid, row.ChargeID, row.DeliveryDate, row.Note)
	if errors.Is(err, sql.ErrNoRows) {
		if err := tx.GetContext(ctx, &id, `SELECT id FROM orders WHERE ref = $1`, o.Ref); err != nil {
			return 0, fmt.Errorf("create order: existing ref: %w", err)
		}
		return id, nil
	}
	if err != nil {
		return 0, fmt.Errorf("create order: insert: %w", err)
	}

	if items := orderItemRows(id, o.Items); len(items) > 0 {
		if _, err := tx.NamedExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, name, price, quantity)
			 VALUES (:order_id, :product_id, :name, :price, :quantity)`, items); err != nil {
			return 0, fmt.Errorf("create order: items: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("create order: commit: %w", err)
	}
	logger.DB.LogAttrs(ctx, slog.LevelDebug, "order stored",
		slog.String("event", "db.order.create"),
		slog.String("status", "ok"),
		slog.Int64("order_id", id),
		slog.Int("items", len(o.Items)),
		slog.Duration("duration", logger.Took(start)),
	)
	return id, nil
}

func (s *Store) insertOrSelect(ctx context.Context, insert, lookup string, args ...any) (int64, error) {
	return s.insertOrSelectArgs(ctx, insert, args, lookup, args)
}

// insertOrSelectArgs runs an INSERT ... DO NOTHING RETURNING id and falls back to
// lookup when the row already existed.
func (s *Store) insertOrSelectArgs(ctx context.Context, insert string, insertArgs []any, lookup string, lookupArgs []any) (int64, error) {
	var id int64
	err := s.db.GetContext(ctx, &id, insert, insertArgs...)
	if errors.Is(err, sql.ErrNoRows) {
		err = s.db.GetContext(ctx, &id, lookup, lookupArgs...)
	}
	return id, err
}

func toProduct(r productRow) shop.Product {
	return shop.Product{ID: r.ID, CategoryID: r.CategoryID, Name: r.Name, Price: r.Price}
}

func orderItemRows(orderID int64, items []shop.OrderItem) []orderItemRow {
	out := make([]orderItemRow, 0, len(items))
	for _, it := range items {
		if it.Quantity <= 0 {
			continue
		}
		out = append(out, orderItemRow{
			OrderID: orderID, ProductID: it.ProductID, Name: it.Name, Price: it.Price, Quantity: it.Quantity,
		})
	}
	return out
}
