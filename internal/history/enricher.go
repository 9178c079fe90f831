package history

import (
	"context"
	"log/slog"
	"sort"
	"strconv"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/pkg/tracing"
)

const tracerName = "github.com/veryfrut/storefront/internal/history"

// DetailFetcher resolves products and areas by id.
type DetailFetcher interface {
	GetProduct(ctx context.Context, id int) (*domain.Product, error)
	GetArea(ctx context.Context, id int) (*domain.Area, error)
}

// Enricher attaches product and area details to orders that only carry ids.
type Enricher struct {
	fetch       DetailFetcher
	concurrency int
	logger      *slog.Logger
}

// NewEnricher creates an Enricher issuing at most concurrency fetches at once.
// A concurrency below 1 means unbounded.
func NewEnricher(fetch DetailFetcher, concurrency int, logger *slog.Logger) *Enricher {
	return &Enricher{fetch: fetch, concurrency: concurrency, logger: logger}
}

// Enrich returns copies of orders with details attached from cache, fetching
// every id not yet cached with one request per id. A failed fetch is logged
// and leaves its references unresolved; it never fails the batch.
func (e *Enricher) Enrich(ctx context.Context, orders []domain.Order, cache *Cache) []domain.Order {
	productIDs, areaIDs := missingIDs(orders, cache)

	ctx, span := tracing.Tracer(tracerName).Start(ctx, "history.Enrich")
	defer tracing.End(span, nil,
		attribute.Int("history.orders", len(orders)),
		attribute.Int("history.missing_products", len(productIDs)),
		attribute.Int("history.missing_areas", len(areaIDs)),
	)

	var g errgroup.Group
	if e.concurrency > 0 {
		g.SetLimit(e.concurrency)
	}
	for _, id := range productIDs {
		g.Go(func() error {
			e.resolveProduct(ctx, cache, id)
			return nil
		})
	}
	for _, id := range areaIDs {
		g.Go(func() error {
			e.resolveArea(ctx, cache, id)
			return nil
		})
	}
	_ = g.Wait()

	return merge(orders, cache)
}

// missingIDs returns the sorted distinct product and area ids that orders
// reference without details and that cache does not hold.
func missingIDs(orders []domain.Order, cache *Cache) (products, areas []int) {
	seenP := make(map[int]struct{})
	seenA := make(map[int]struct{})

	for _, o := range orders {
		if o.Area == nil && o.AreaID > 0 {
			if _, dup := seenA[o.AreaID]; !dup {
				seenA[o.AreaID] = struct{}{}
				if _, ok := cache.Area(o.AreaID); ok {
					cacheLookups.WithLabelValues("area", "hit").Inc()
				} else {
					cacheLookups.WithLabelValues("area", "miss").Inc()
					areas = append(areas, o.AreaID)
				}
			}
		}
		for _, it := range o.Items {
			if it.Product != nil || it.ProductID <= 0 {
				continue
			}
			if _, dup := seenP[it.ProductID]; dup {
				continue
			}
			seenP[it.ProductID] = struct{}{}
			if _, ok := cache.Product(it.ProductID); ok {
				cacheLookups.WithLabelValues("product", "hit").Inc()
				continue
			}
			cacheLookups.WithLabelValues("product", "miss").Inc()
			products = append(products, it.ProductID)
		}
	}
	sort.Ints(products)
	sort.Ints(areas)
	return products, areas
}

func (e *Enricher) resolveProduct(ctx context.Context, cache *Cache, id int) {
	_, err, _ := cache.inflight.Do("product:"+strconv.Itoa(id), func() (any, error) {
		if _, ok := cache.Product(id); ok {
			return nil, nil
		}
		p, err := e.fetch.GetProduct(ctx, id)
		if err != nil {
			return nil, err
		}
		cache.products.put(id, *p)
		return nil, nil
	})
	if err != nil {
		detailFetchFailures.WithLabelValues("product").Inc()
		e.logger.WarnContext(ctx, "product detail fetch failed",
			slog.Int("product_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (e *Enricher) resolveArea(ctx context.Context, cache *Cache, id int) {
	_, err, _ := cache.inflight.Do("area:"+strconv.Itoa(id), func() (any, error) {
		if _, ok := cache.Area(id); ok {
			return nil, nil
		}
		a, err := e.fetch.GetArea(ctx, id)
		if err != nil {
			return nil, err
		}
		cache.areas.put(id, *a)
		return nil, nil
	})
	if err != nil {
		detailFetchFailures.WithLabelValues("area").Inc()
		e.logger.WarnContext(ctx, "area detail fetch failed",
			slog.Int("area_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// merge returns copies of orders with every cached detail attached. Orders
// passed in are not modified.
func merge(orders []domain.Order, cache *Cache) []domain.Order {
	out := make([]domain.Order, len(orders))
	for i, o := range orders {
		c := o.Clone()
		if c.Area == nil {
			if a, ok := cache.Area(c.AreaID); ok {
				c.Area = &a
			}
		}
		for j := range c.Items {
			if c.Items[j].Product != nil {
				continue
			}
			if p, ok := cache.Product(c.Items[j].ProductID); ok {
				c.Items[j].Product = &p
			}
		}
		out[i] = c
	}
	return out
}
