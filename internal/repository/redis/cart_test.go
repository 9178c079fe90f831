package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/internal/repository"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

func setupTestRedis(t *testing.T) (*CartRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCartRepository(client, 24*time.Hour), mr
}

func sampleCart() *domain.Cart {
	return &domain.Cart{
		CustomerID: "7",
		Lines: []domain.CartLine{
			{LineID: "l-1", ID: 1, UnitID: 10, Quantity: 2, UnitPrice: decimal.RequireFromString("2.50"), Name: "Manzana"},
			{LineID: "l-2", ID: 1, UnitID: 10, Quantity: 1, UnitPrice: decimal.RequireFromString("2.50"), Name: "Manzana"},
		},
		UpdatedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestCartRepository_SaveAndGet(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleCart()))
	assert.True(t, mr.Exists("cart:7"))
	assert.Equal(t, 24*time.Hour, mr.TTL("cart:7"))

	got, err := repo.Get(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "7", got.CustomerID)
	require.Len(t, got.Lines, 2)
	assert.Equal(t, "l-2", got.Lines[1].LineID)
}

func TestCartRepository_GetMissing(t *testing.T) {
	repo, _ := setupTestRedis(t)

	_, err := repo.Get(context.Background(), "nobody")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_GetCorrupt(t *testing.T) {
	repo, mr := setupTestRedis(t)
	require.NoError(t, mr.Set("cart:7", "not-json"))

	_, err := repo.Get(context.Background(), "7")
	require.ErrorIs(t, err, repository.ErrCorruptCart)
}

func TestCartRepository_Delete(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleCart()))
	require.NoError(t, repo.Delete(ctx, "7"))
	assert.False(t, mr.Exists("cart:7"))

	require.NoError(t, repo.Delete(ctx, "7"))
}

func TestCartRepository_Expiry(t *testing.T) {
	repo, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, sampleCart()))
	mr.FastForward(25 * time.Hour)

	_, err := repo.Get(ctx, "7")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_ConnectionError(t *testing.T) {
	repo, mr := setupTestRedis(t)
	mr.Close()

	_, err := repo.Get(context.Background(), "7")
	require.Error(t, err)
	assert.NotErrorIs(t, err, apperrors.ErrNotFound)
}
