package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/internal/repository"
	"github.com/veryfrut/storefront/pkg/database"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return mock
}

func TestCartRepository_Get(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(selectCart)).WithArgs("7").
		WillReturnRows(pgxmock.NewRows([]string{"lines", "updated_at"}).
			AddRow([]byte(`[{"lineId":"l-1","id":1,"unitId":10,"quantity":3,"unitPrice":"2.5"}]`), now))

	cart, err := repo.Get(context.Background(), "7")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.True(t, now.Equal(cart.UpdatedAt))
}

func TestCartRepository_GetMissing(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(selectCart)).WithArgs("7").WillReturnError(pgx.ErrNoRows)

	_, err := repo.Get(context.Background(), "7")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCartRepository_GetCorrupt(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery(regexp.QuoteMeta(selectCart)).WithArgs("7").
		WillReturnRows(pgxmock.NewRows([]string{"lines", "updated_at"}).AddRow([]byte(`{"nope":1}`), time.Now()))

	_, err := repo.Get(context.Background(), "7")
	require.ErrorIs(t, err, repository.ErrCorruptCart)
}

func TestCartRepository_Save(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)
	cart := &domain.Cart{
		CustomerID: "7",
		Lines:      []domain.CartLine{{LineID: "l-1", ID: 1, UnitID: 10, Quantity: 1, UnitPrice: decimal.NewFromInt(2)}},
		UpdatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec(regexp.QuoteMeta(upsertCart)).WithArgs("7", cart.Lines, cart.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, repo.Save(context.Background(), cart))
}

func TestCartRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectExec(regexp.QuoteMeta(deleteCart)).WithArgs("7").WillReturnError(errors.New("connection reset"))

	err := repo.Delete(context.Background(), "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delete cart")
}
