// Package memory is an in-process shop.Storage used for demo mode and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m3rciful/shopbot/internal/shop"
)

type chatKey struct{ shop, chat int64 }

// Store keeps every entity in maps guarded by one RWMutex.
type Store struct {
	mu         sync.RWMutex
	shops      map[int64]shop.Shop
	users      map[int64]shop.User
	chats      map[chatKey]shop.Chat
	categories map[int64]shop.Category
	products   map[int64]shop.Product
	orders     map[int64]shop.Order
	seq        int64
	now        func() time.Time
}

var _ shop.Storage = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{
		shops:      make(map[int64]shop.Shop),
		users:      make(map[int64]shop.User),
		chats:      make(map[chatKey]shop.Chat),
		categories: make(map[int64]shop.Category),
		products:   make(map[int64]shop.Product),
		orders:     make(map[int64]shop.Order),
		now:        time.Now,
	}
}

func (s *Store) nextID() int64 {
	s.seq++
	return s.seq
}

func (s *Store) GetShop(_ context.Context, id int64) (*shop.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.shops[id]
	if !ok {
		return nil, shop.ErrNotFound
	}
	return &v, nil
}

func (s *Store) CreateShop(_ context.Context, v shop.Shop) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.shops[v.ID]; !ok {
		s.shops[v.ID] = v
	}
	return nil
}

func (s *Store) GetUser(_ context.Context, id int64) (*shop.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.users[id]
	if !ok {
		return nil, shop.ErrNotFound
	}
	return &v, nil
}

func (s *Store) CreateUser(_ context.Context, v shop.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[v.ID]; !ok {
		s.users[v.ID] = v
	}
	return nil
}

func (s *Store) SetOwner(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.users[userID]
	if !ok {
		return shop.ErrNotFound
	}
	v.IsOwner = true
	s.users[userID] = v
	return nil
}

func (s *Store) GetChat(_ context.Context, shopID, chatID int64) (*shop.Chat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.chats[chatKey{shopID, chatID}]
	if !ok {
		return nil, shop.ErrNotFound
	}
	return &v, nil
}

func (s *Store) CreateChat(_ context.Context, v shop.Chat) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := chatKey{v.ShopID, v.ChatID}
	if _, ok := s.chats[key]; !ok {
		s.chats[key] = v
	}
	return nil
}

func (s *Store) ListCategories(_ context.Context, shopID int64) ([]shop.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []shop.Category
	for _, c := range s.categories {
		if c.ShopID == shopID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ListProducts(_ context.Context, categoryID int64) ([]shop.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []shop.Product
	for _, p := range s.products {
		if p.CategoryID == categoryID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*shop.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.products[id]
	if !ok {
		return nil, shop.ErrNotFound
	}
	return &v, nil
}

// CreateCategory is idempotent by (shop, name).
func (s *Store) CreateCategory(_ context.Context, v shop.Category) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.categories {
		if c.ShopID == v.ShopID && c.Name == v.Name {
			return c.ID, nil
		}
	}
	v.ID = s.nextID()
	s.categories[v.ID] = v
	return v.ID, nil
}

// CreateProduct is idempotent by (category, name).
func (s *Store) CreateProduct(_ context.Context, v shop.Product) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.CategoryID == v.CategoryID && p.Name == v.Name {
			return p.ID, nil
		}
	}
	v.ID = s.nextID()
	s.products[v.ID] = v
	return v.ID, nil
}

// CreateOrder is idempotent by Ref.
func (s *Store) CreateOrder(_ context.Context, v shop.Order) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v.Ref != "" {
		for _, o := range s.orders {
			if o.Ref == v.Ref {
				return o.ID, nil
			}
		}
	}
	v.ID = s.nextID()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = s.now()
	}
	v.Items = append([]shop.OrderItem(nil), v.Items...)
	s.orders[v.ID] = v
	return v.ID, nil
}

// Orders returns placed orders sorted by id.
func (s *Store) Orders() []shop.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]shop.Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
