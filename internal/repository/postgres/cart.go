package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/internal/repository"
	"github.com/veryfrut/storefront/pkg/database"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

const (
	selectCart = `SELECT lines, updated_at FROM carts WHERE customer_id = $1`
	upsertCart = `INSERT INTO carts (customer_id, lines, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (customer_id) DO UPDATE SET lines = EXCLUDED.lines, updated_at = EXCLUDED.updated_at`
	deleteCart = `DELETE FROM carts WHERE customer_id = $1`
)

// CartRepository implements repository.CartRepository on PostgreSQL, storing
// the line list as JSONB.
type CartRepository struct {
	pool database.DBTX
}

var _ repository.CartRepository = (*CartRepository)(nil)

// NewCartRepository creates a PostgreSQL-backed cart repository.
func NewCartRepository(pool database.DBTX) *CartRepository {
	return &CartRepository{pool: pool}
}

// Get loads the cart of customerID.
func (r *CartRepository) Get(ctx context.Context, customerID string) (cart *domain.Cart, err error) {
	ctx, end := database.TraceQuery(ctx, "GetCart", selectCart)
	defer func() { end(err) }()

	var (
		raw       []byte
		updatedAt time.Time
	)
	if err = r.pool.QueryRow(ctx, selectCart, customerID).Scan(&raw, &updatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("cart", customerID)
		}
		return nil, fmt.Errorf("query cart: %w", err)
	}
	return repository.DecodeLines(customerID, raw, updatedAt)
}

// Save upserts the full line list.
func (r *CartRepository) Save(ctx context.Context, cart *domain.Cart) (err error) {
	ctx, end := database.TraceQuery(ctx, "SaveCart", upsertCart)
	defer func() { end(err) }()

	lines := cart.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	if _, err = r.pool.Exec(ctx, upsertCart, cart.CustomerID, lines, cart.UpdatedAt); err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}
	return nil
}

// Delete removes the cart of customerID.
func (r *CartRepository) Delete(ctx context.Context, customerID string) (err error) {
	ctx, end := database.TraceQuery(ctx, "DeleteCart", deleteCart)
	defer func() { end(err) }()

	if _, err = r.pool.Exec(ctx, deleteCart, customerID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	return nil
}
