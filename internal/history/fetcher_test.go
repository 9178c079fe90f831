package history

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/veryfrut/storefront/internal/domain"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
	"github.com/veryfrut/storefront/pkg/middleware"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFetcher serves fixed data and counts calls per id.
type fakeFetcher struct {
	mu           sync.Mutex
	orders       []domain.Order
	listErr      error
	products     map[int]domain.Product
	areas        map[int]domain.Area
	productCalls map[int]int
	areaCalls    map[int]int
	listCalls    atomic.Int32
	lastToken    atomic.Value
	block        chan struct{}
	inflight     atomic.Int32
	maxInflight  atomic.Int32
}

func newFakeFetcher(orders ...domain.Order) *fakeFetcher {
	return &fakeFetcher{
		orders:       orders,
		products:     map[int]domain.Product{},
		areas:        map[int]domain.Area{},
		productCalls: map[int]int{},
		areaCalls:    map[int]int{},
	}
}

func (f *fakeFetcher) setOrders(orders ...domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = orders
}

func (f *fakeFetcher) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

func (f *fakeFetcher) ListCustomerOrders(ctx context.Context, _ int) ([]domain.Order, error) {
	f.listCalls.Add(1)
	f.lastToken.Store(middleware.TokenFromContext(ctx))
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Order, len(f.orders))
	for i, o := range f.orders {
		out[i] = o.Clone()
	}
	return out, nil
}

func (f *fakeFetcher) enter(ctx context.Context) error {
	n := f.inflight.Add(1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			f.inflight.Add(-1)
			return ctx.Err()
		}
	}
	f.inflight.Add(-1)
	return nil
}

func (f *fakeFetcher) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	f.mu.Lock()
	f.productCalls[id]++
	p, ok := f.products[id]
	f.mu.Unlock()
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("product", "x")
	}
	return &p, nil
}

func (f *fakeFetcher) GetArea(ctx context.Context, id int) (*domain.Area, error) {
	f.mu.Lock()
	f.areaCalls[id]++
	a, ok := f.areas[id]
	f.mu.Unlock()
	if err := f.enter(ctx); err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperrors.NotFound("area", "x")
	}
	return &a, nil
}

func (f *fakeFetcher) calls() (products, areas map[int]int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	products = make(map[int]int, len(f.productCalls))
	for k, v := range f.productCalls {
		products[k] = v
	}
	areas = make(map[int]int, len(f.areaCalls))
	for k, v := range f.areaCalls {
		areas[k] = v
	}
	return products, areas
}

func order(id, areaID int, productIDs ...int) domain.Order {
	o := domain.Order{ID: id, CustomerID: 7, AreaID: areaID, Status: domain.StatusCreated}
	for i, pid := range productIDs {
		o.Items = append(o.Items, domain.OrderItem{ID: id*100 + i, ProductID: pid, Quantity: 1, UnitMeasurementID: 1})
	}
	return o
}
