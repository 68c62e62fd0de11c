package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/shopbot/internal/shop"
)

func TestStoreNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.GetShop(ctx, 1)
	assert.ErrorIs(t, err, shop.ErrNotFound)
	_, err = s.GetUser(ctx, 1)
	assert.ErrorIs(t, err, shop.ErrNotFound)
	_, err = s.GetChat(ctx, 1, 2)
	assert.ErrorIs(t, err, shop.ErrNotFound)
	_, err = s.GetProduct(ctx, 3)
	assert.ErrorIs(t, err, shop.ErrNotFound)
	assert.ErrorIs(t, s.SetOwner(ctx, 9), shop.ErrNotFound)
}

func TestStoreCreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()

	require.NoError(t, s.CreateShop(ctx, shop.Shop{ID: 1, Name: "first"}))
	require.NoError(t, s.CreateShop(ctx, shop.Shop{ID: 1, Name: "second"}))
	got, err := s.GetShop(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)

	require.NoError(t, s.CreateUser(ctx, shop.User{ID: 7, Name: "Ann"}))
	require.NoError(t, s.SetOwner(ctx, 7))
	require.NoError(t, s.CreateUser(ctx, shop.User{ID: 7, Name: "Other"}))
	u, err := s.GetUser(ctx, 7)
	require.NoError(t, err)
	assert.True(t, u.IsOwner)
	assert.Equal(t, "Ann", u.Name)

	a, err := s.CreateCategory(ctx, shop.Category{ShopID: 1, Name: "Tea"})
	require.NoError(t, err)
	b, err := s.CreateCategory(ctx, shop.Category{ShopID: 1, Name: "Tea"})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	o1, err := s.CreateOrder(ctx, shop.Order{Ref: "r1"})
	require.NoError(t, err)
	o2, err := s.CreateOrder(ctx, shop.Order{Ref: "r1"})
	require.NoError(t, err)
	assert.Equal(t, o1, o2)
	assert.Len(t, s.Orders(), 1)
	assert.False(t, s.Orders()[0].CreatedAt.IsZero())
}

func TestStoreListsAreOrdered(t *testing.T) {
	ctx := context.Background()
	s := New()
	tea, _ := s.CreateCategory(ctx, shop.Category{ShopID: 1, Name: "Tea"})
	_, _ = s.CreateCategory(ctx, shop.Category{ShopID: 2, Name: "Elsewhere"})
	coffee, _ := s.CreateCategory(ctx, shop.Category{ShopID: 1, Name: "Coffee"})
	for _, name := range []string{"Green", "Black", "White"} {
		_, err := s.CreateProduct(ctx, shop.Product{CategoryID: tea, Name: name, Price: 100})
		require.NoError(t, err)
	}

	cats, err := s.ListCategories(ctx, 1)
	require.NoError(t, err)
	require.Len(t, cats, 2)
	assert.Equal(t, tea, cats[0].ID)
	assert.Equal(t, coffee, cats[1].ID)

	products, err := s.ListProducts(ctx, tea)
	require.NoError(t, err)
	require.Len(t, products, 3)
	assert.Equal(t, "Green", products[0].Name)
	assert.Equal(t, "White", products[2].Name)

	empty, err := s.ListProducts(ctx, coffee)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStoreConcurrentChats(t *testing.T) {
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := int64(1); i <= 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.CreateChat(ctx, shop.Chat{ShopID: 1, UserID: i, ChatID: i})
			_ = s.CreateChat(ctx, shop.Chat{ShopID: 1, UserID: i, ChatID: i})
		}()
	}
	wg.Wait()
	for i := int64(1); i <= 20; i++ {
		c, err := s.GetChat(ctx, 1, i)
		require.NoError(t, err)
		assert.Equal(t, i, c.UserID)
	}
}
