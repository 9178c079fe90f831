// Package memory keeps carts in process memory for development and tests.
package memory

import (
	"context"
	"sync"

	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/internal/repository"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

// CartRepository stores encoded carts in a map so that callers never share
// line slices with the store.
type CartRepository struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

var _ repository.CartRepository = (*CartRepository)(nil)

// NewCartRepository creates an empty in-memory cart repository.
func NewCartRepository() *CartRepository {
	return &CartRepository{carts: make(map[string][]byte)}
}

// Get decodes the stored cart for customerID.
func (r *CartRepository) Get(_ context.Context, customerID string) (*domain.Cart, error) {
	r.mu.RLock()
	data, ok := r.carts[customerID]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.NotFound("cart", customerID)
	}
	return repository.DecodeCart(customerID, data)
}

// Save encodes and stores cart, replacing any previous value.
func (r *CartRepository) Save(_ context.Context, cart *domain.Cart) error {
	data, err := repository.EncodeCart(cart)
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.carts[cart.CustomerID] = data
	r.mu.Unlock()
	return nil
}

// Delete removes the cart for customerID. Missing carts are not an error.
func (r *CartRepository) Delete(_ context.Context, customerID string) error {
	r.mu.Lock()
	delete(r.carts, customerID)
	r.mu.Unlock()
	return nil
}

// Put stores raw bytes for customerID, bypassing encoding.
func (r *CartRepository) Put(customerID string, data []byte) {
	r.mu.Lock()
	r.carts[customerID] = data
	r.mu.Unlock()
}
