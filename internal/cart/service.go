// Package cart implements the server-side shopping cart with write-through
// persistence.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/veryfrut/storefront/internal/backend"
	"github.com/veryfrut/storefront/internal/domain"
	"github.com/veryfrut/storefront/internal/repository"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

// ProductSource resolves products for their current price.
type ProductSource interface {
	GetProduct(ctx context.Context, id int) (*domain.Product, error)
}

// OrderPlacer submits orders to the backend.
type OrderPlacer interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*domain.Order, error)
}

// EventPublisher is the subset of event.Producer used by the cart.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, cart *domain.Cart) error
	PublishCartCleared(ctx context.Context, customerID, reason string) error
	PublishOrderPlaced(ctx context.Context, o *domain.Order) error
}

// AddItemInput is the body of POST /cart/items.
type AddItemInput struct {
	ProductID      int  `json:"productId" validate:"required,gt=0"`
	UnitID         int  `json:"unitId" validate:"required,gt=0"`
	Quantity       int  `json:"quantity" validate:"required,gte=1"`
	AllowDuplicate bool `json:"allowDuplicate"`
}

// UpdateQuantityInput is the body of PUT /cart/items/{productId}/{unitId}.
// Zero or negative quantities remove the line.
type UpdateQuantityInput struct {
	Quantity int `json:"quantity"`
}

// CheckoutInput is the body of POST /cart/checkout.
type CheckoutInput struct {
	AreaID      int    `json:"areaId" validate:"required,gt=0"`
	Observation string `json:"observation" validate:"max=500"`
}

// Service runs cart operations. Mutations of one customer's cart are
// serialized and every change is persisted before the call returns.
type Service struct {
	repo     repository.CartRepository
	products ProductSource
	orders   OrderPlacer
	events   EventPublisher
	logger   *slog.Logger
	locks    *keyedMutex
	now      func() time.Time
}

// NewService creates a cart service persisting through repo.
func NewService(repo repository.CartRepository, products ProductSource, orders OrderPlacer, events EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		products: products,
		orders:   orders,
		events:   events,
		logger:   logger,
		locks:    newKeyedMutex(),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the customer's cart, empty if none is stored.
func (s *Service) Get(ctx context.Context, customerID string) (*domain.Cart, error) {
	if customerID == "" {
		return nil, apperrors.InvalidInput("customer id is required")
	}
	return s.load(ctx, customerID)
}

// AddItem adds a product line at the product's current price for the unit.
func (s *Service) AddItem(ctx context.Context, customerID string, in AddItemInput) (*domain.Cart, error) {
	if customerID == "" {
		return nil, apperrors.InvalidInput("customer id is required")
	}

	product, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, fmt.Errorf("resolve product %d: %w", in.ProductID, err)
	}

	return s.mutate(ctx, customerID, func(c *domain.Cart) (bool, error) {
		line := c.AddLine(*product, in.UnitID, in.Quantity, in.AllowDuplicate)
		s.logger.InfoContext(ctx, "item added to cart",
			slog.String("customer_id", customerID),
			slog.Int("product_id", in.ProductID),
			slog.Int("unit_id", in.UnitID),
			slog.Int("quantity", in.Quantity),
			slog.String("line_id", line.LineID),
		)
		return true, nil
	})
}

// UpdateQuantity sets a line's quantity, removing it when quantity <= 0.
func (s *Service) UpdateQuantity(ctx context.Context, customerID string, productID, unitID, quantity int, lineID string) (*domain.Cart, error) {
	return s.mutate(ctx, customerID, func(c *domain.Cart) (bool, error) {
		if !c.UpdateQuantity(productID, unitID, quantity, lineID) {
			return false, apperrors.NotFound("cart line", lineKey(productID, unitID, lineID))
		}
		return true, nil
	})
}

// RemoveLine removes a line. Removing a missing line returns the cart unchanged.
func (s *Service) RemoveLine(ctx context.Context, customerID string, productID, unitID int, lineID string) (*domain.Cart, error) {
	return s.mutate(ctx, customerID, func(c *domain.Cart) (bool, error) {
		return c.RemoveLine(productID, unitID, lineID), nil
	})
}

// Clear empties the cart and deletes its persisted state.
func (s *Service) Clear(ctx context.Context, customerID string) error {
	if customerID == "" {
		return apperrors.InvalidInput("customer id is required")
	}
	unlock := s.locks.Lock(customerID)
	defer unlock()

	return s.clearLocked(ctx, customerID, "manual")
}

// Checkout places an order with the cart contents, then clears the cart.
func (s *Service) Checkout(ctx context.Context, customerID string, in CheckoutInput) (*domain.Order, error) {
	userID, err := strconv.Atoi(customerID)
	if err != nil || userID <= 0 {
		return nil, apperrors.InvalidInput("customer id must be numeric")
	}

	unlock := s.locks.Lock(customerID)
	defer unlock()

	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if c.IsEmpty() {
		checkoutsTotal.WithLabelValues("empty").Inc()
		return nil, apperrors.InvalidInput("cart is empty")
	}

	groups := c.GroupedView()
	items := make([]backend.OrderItemInput, 0, len(groups))
	for _, g := range groups {
		items = append(items, backend.OrderItemInput{
			ProductID:         g.ProductID,
			Quantity:          g.Quantity,
			UnitMeasurementID: g.UnitID,
		})
	}

	order, err := s.orders.CreateOrder(ctx, backend.CreateOrderRequest{
		UserID:      userID,
		AreaID:      in.AreaID,
		TotalAmount: c.TotalPrice(),
		Observation: in.Observation,
		Items:       items,
	})
	if err != nil {
		checkoutsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("create order: %w", err)
	}
	checkoutsTotal.WithLabelValues("placed").Inc()

	if err := s.events.PublishOrderPlaced(ctx, order); err != nil {
		s.logPublishErr(ctx, "order.placed", customerID, err)
	}

	// The order exists; a failed clear must not report checkout as failed.
	if err := s.clearLocked(ctx, customerID, "checkout"); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("customer_id", customerID),
			slog.Int("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order placed from cart",
		slog.String("customer_id", customerID),
		slog.Int("order_id", order.ID),
		slog.Int("items", len(items)),
	)
	return order, nil
}

// mutate loads the cart under the customer lock, applies fn and, when fn
// reports a change, persists the whole cart and publishes cart.updated.
func (s *Service) mutate(ctx context.Context, customerID string, fn func(*domain.Cart) (bool, error)) (*domain.Cart, error) {
	if customerID == "" {
		return nil, apperrors.InvalidInput("customer id is required")
	}
	unlock := s.locks.Lock(customerID)
	defer unlock()

	c, err := s.load(ctx, customerID)
	if err != nil {
		return nil, err
	}

	changed, err := fn(c)
	if err != nil {
		return nil, err
	}
	if !changed {
		return c, nil
	}

	c.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, c); err != nil {
		return nil, fmt.Errorf("save cart: %w", err)
	}
	if err := s.events.PublishCartUpdated(ctx, c); err != nil {
		s.logPublishErr(ctx, "cart.updated", customerID, err)
	}
	return c, nil
}

// load reads the persisted cart. Missing carts are empty; undecodable ones
// are discarded and treated as empty.
func (s *Service) load(ctx context.Context, customerID string) (*domain.Cart, error) {
	c, err := s.repo.Get(ctx, customerID)
	switch {
	case err == nil:
		return c, nil
	case errors.Is(err, apperrors.ErrNotFound):
		return domain.NewCart(customerID), nil
	case errors.Is(err, repository.ErrCorruptCart):
		corruptCartsDiscarded.Inc()
		s.logger.WarnContext(ctx, "discarding unreadable persisted cart",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
		if derr := s.repo.Delete(ctx, customerID); derr != nil {
			s.logger.WarnContext(ctx, "failed to delete unreadable cart",
				slog.String("customer_id", customerID),
				slog.String("error", derr.Error()),
			)
		}
		return domain.NewCart(customerID), nil
	default:
		return nil, fmt.Errorf("get cart: %w", err)
	}
}

func (s *Service) clearLocked(ctx context.Context, customerID, reason string) error {
	if err := s.repo.Delete(ctx, customerID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	if err := s.events.PublishCartCleared(ctx, customerID, reason); err != nil {
		s.logPublishErr(ctx, "cart.cleared", customerID, err)
	}
	s.logger.InfoContext(ctx, "cart cleared",
		slog.String("customer_id", customerID),
		slog.String("reason", reason),
	)
	return nil
}

func (s *Service) logPublishErr(ctx context.Context, event, customerID string, err error) {
	s.logger.ErrorContext(ctx, "failed to publish "+event+" event",
		slog.String("customer_id", customerID),
		slog.String("error", err.Error()),
	)
}

func lineKey(productID, unitID int, lineID string) string {
	if lineID != "" {
		return lineID
	}
	return strconv.Itoa(productID) + "/" + strconv.Itoa(unitID)
}
