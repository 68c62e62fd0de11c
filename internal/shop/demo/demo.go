// Package demo seeds a shop with a small catalog so the bot can be tried without /setup.
package demo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m3rciful/shopbot/core/logger"
	"github.com/m3rciful/shopbot/internal/shop"
)

// Item is a seeded product.
type Item struct {
	Name  string
	Price int64
}

// Section is a seeded category with its products.
type Section struct {
	Name  string
	Items []Item
}

// Catalog is the default demo assortment. Prices are in minor units.
var Catalog = []Section{
	{Name: "☕ Coffee", Items: []Item{{"Espresso", 250}, {"Cappuccino", 350}, {"Flat White", 380}}},
	{Name: "🍵 Tea", Items: []Item{{"Green Tea", 220}, {"Earl Grey", 240}}},
	{Name: "🥐 Bakery", Items: []Item{{"Croissant", 280}, {"Blueberry Muffin", 310}, {"Cinnamon Roll", 330}}},
}

// Seeder implements shop.Seeder over any storage.
type Seeder struct {
	storage shop.Storage
	catalog []Section
}

var _ shop.Seeder = (*Seeder)(nil)

// New returns a seeder for catalog, or Catalog when nil.
func New(storage shop.Storage, catalog []Section) *Seeder {
	if catalog == nil {
		catalog = Catalog
	}
	return &Seeder{storage: storage, catalog: catalog}
}

// Seed creates s and its catalog. Running it again changes nothing.
func (d *Seeder) Seed(ctx context.Context, s shop.Shop) error {
	if err := d.storage.CreateShop(ctx, s); err != nil {
		return fmt.Errorf("seed shop: %w", err)
	}
	products := 0
	for _, sec := range d.catalog {
		catID, err := d.storage.CreateCategory(ctx, shop.Category{ShopID: s.ID, Name: sec.Name})
		if err != nil {
			return fmt.Errorf("seed category %q: %w", sec.Name, err)
		}
		for _, it := range sec.Items {
			if _, err := d.storage.CreateProduct(ctx, shop.Product{CategoryID: catID, Name: it.Name, Price: it.Price}); err != nil {
				return fmt.Errorf("seed product %q: %w", it.Name, err)
			}
			products++
		}
	}
	logger.LogEvent(ctx, logger.Shop, slog.LevelInfo, "demo.seed",
		slog.String("status", "ok"),
		slog.Int64("shop_id", s.ID),
		slog.Int("categories", len(d.catalog)),
		slog.Int("products", products),
	)
	return nil
}
