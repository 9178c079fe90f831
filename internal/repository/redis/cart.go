package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/internal/repository"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

const keyPrefix = "cart:"

// CartRepository implements repository.CartRepository on Redis. Every Save
// refreshes the key's TTL.
type CartRepository struct {
	client redis.Cmdable
	ttl    time.Duration
}

var _ repository.CartRepository = (*CartRepository)(nil)

// NewCartRepository creates a Redis-backed cart repository. A zero ttl keeps
// carts forever.
func NewCartRepository(client redis.Cmdable, ttl time.Duration) *CartRepository {
	return &CartRepository{client: client, ttl: ttl}
}

// Get loads the cart of customerID.
func (r *CartRepository) Get(ctx context.Context, customerID string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, keyPrefix+customerID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, apperrors.NotFound("cart", customerID)
		}
		return nil, fmt.Errorf("redis get cart: %w", err)
	}
	return repository.DecodeCart(customerID, data)
}

// Save writes the full cart.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	data, err := repository.EncodeCart(cart)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+cart.CustomerID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

// Delete removes the cart of customerID. Deleting a missing cart is not an error.
func (r *CartRepository) Delete(ctx context.Context, customerID string) error {
	if err := r.client.Del(ctx, keyPrefix+customerID).Err(); err != nil {
		return fmt.Errorf("redis del cart: %w", err)
	}
	return nil
}
