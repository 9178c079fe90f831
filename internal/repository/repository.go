package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/veryfrut/storefront/internal/domain"
)

// ErrCorruptCart is returned (wrapped) when a persisted cart cannot be decoded.
var ErrCorruptCart = errors.New("corrupt persisted cart")

// CartRepository persists carts keyed by customer id. Get returns an error
// wrapping apperrors.ErrNotFound when no cart has been saved.
type CartRepository interface {
	Get(ctx context.Context, customerID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, customerID string) error
}

// persistedCart is the stored form: the full line list plus its write time.
type persistedCart struct {
	Lines     []domain.CartLine `json:"lines"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// EncodeCart serializes cart for storage.
func EncodeCart(cart *domain.Cart) ([]byte, error) {
	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return json.Marshal(persistedCart{Lines: lines, UpdatedAt: cart.UpdatedAt})
}

// DecodeCart parses a stored cart. Malformed JSON, a missing line list, and
// lines that break cart invariants all yield ErrCorruptCart.
func DecodeCart(customerID string, data []byte) (*domain.Cart, error) {
	var p persistedCart
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	return buildCart(customerID, p.Lines, p.UpdatedAt)
}

// DecodeLines parses a bare line list, as stored in a JSONB column.
func DecodeLines(customerID string, data []byte, updatedAt time.Time) (*domain.Cart, error) {
	var lines []domain.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCart, err)
	}
	return buildCart(customerID, lines, updatedAt)
}

func buildCart(customerID string, lines []domain.CartLine, updatedAt time.Time) (*domain.Cart, error) {
	if lines == nil {
		return nil, fmt.Errorf("%w: missing lines", ErrCorruptCart)
	}
	seen := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		if l.LineID == "" || l.Quantity <= 0 {
			return nil, fmt.Errorf("%w: invalid line %q", ErrCorruptCart, l.LineID)
		}
		if _, dup := seen[l.LineID]; dup {
			return nil, fmt.Errorf("%w: duplicate line %q", ErrCorruptCart, l.LineID)
		}
		seen[l.LineID] = struct{}{}
	}
	return &domain.Cart{CustomerID: customerID, Lines: lines, UpdatedAt: updatedAt}, nil
}
