package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddItemTwiceIncrementsQuantity(t *testing.T) {
	svc := NewCartService(newMemoryCartRepo(), testCatalog())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "c1", "a", 1)
	require.NoError(t, err)
	cart, err := svc.AddItem(ctx, "c1", "a", 1)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, int64(2998), cart.Total())

	reloaded, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, int64(2998), reloaded.Total())
}

func TestAddItemCopiesCatalogFields(t *testing.T) {
	svc := NewCartService(newMemoryCartRepo(), testCatalog())

	cart, err := svc.AddItem(context.Background(), "c1", "airpods-pro-2", 0)
	require.NoError(t, err)

	item := cart.Items[0]
	assert.Equal(t, "AirPods Pro (2nd generation)", item.Name)
	assert.Equal(t, int64(1399), item.Price)
	assert.Equal(t, "/imga.webp", item.Image)
	assert.Equal(t, "White", item.Color)
	assert.Equal(t, 1, item.Quantity)
}

func TestAddUnknownProduct(t *testing.T) {
	svc := NewCartService(newMemoryCartRepo(), testCatalog())

	_, err := svc.AddItem(context.Background(), "c1", "nope", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestUpdateAndRemove(t *testing.T) {
	svc := NewCartService(newMemoryCartRepo(), testCatalog())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "c1", "a", 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, "c1", "airpods-pro-2", 1)
	require.NoError(t, err)

	cart, err := svc.UpdateQuantity(ctx, "c1", "a", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3*1499+1399), cart.Total())

	cart, err = svc.UpdateQuantity(ctx, "c1", "a", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, cart.Count())

	cart, err = svc.RemoveItem(ctx, "c1", "airpods-pro-2")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestClearCart(t *testing.T) {
	repo := newMemoryCartRepo()
	svc := NewCartService(repo, testCatalog())
	ctx := context.Background()

	_, err := svc.AddItem(ctx, "c1", "a", 2)
	require.NoError(t, err)
	require.NoError(t, svc.Clear(ctx, "c1"))

	cart, err := svc.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, cart.IsEmpty())
}

func TestAddItemSaveFailure(t *testing.T) {
	repo := newMemoryCartRepo()
	repo.saveErr = errors.New("redis timeout")
	svc := NewCartService(repo, testCatalog())

	_, err := svc.AddItem(context.Background(), "c1", "a", 1)
	assert.ErrorContains(t, err, "failed to save cart")
}
