package history

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/veryfrut/storefront/internal/backend"
	"github.com/veryfrut/storefront/internal/domain"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

// OrderBackend reads and patches single orders.
type OrderBackend interface {
	GetOrder(ctx context.Context, id int) (*domain.Order, error)
	UpdateOrder(ctx context.Context, id int, req backend.UpdateOrderRequest) (*domain.Order, error)
}

// OrderEvents is the subset of event.Producer used for order changes.
type OrderEvents interface {
	PublishOrderEdited(ctx context.Context, o *domain.Order) error
	PublishStatusChanged(ctx context.Context, o *domain.Order, from domain.OrderStatus) error
}

// EditOrderInput is the body of PATCH /orders/{id}.
type EditOrderInput struct {
	Items       []backend.OrderItemInput `json:"orderItems" validate:"required,min=1,dive"`
	Observation *string                  `json:"observation,omitempty" validate:"omitempty,max=500"`
}

// OrderService serves order history and order changes.
type OrderService struct {
	history *Manager
	orders  OrderBackend
	events  OrderEvents
	loc     *time.Location
	now     func() time.Time
	logger  *slog.Logger
}

// NewOrderService creates an OrderService judging edit eligibility by the
// calendar day in loc. A nil loc means local time.
func NewOrderService(history *Manager, orders OrderBackend, events OrderEvents, loc *time.Location, logger *slog.Logger) *OrderService {
	if loc == nil {
		loc = time.Local
	}
	return &OrderService{
		history: history,
		orders:  orders,
		events:  events,
		loc:     loc,
		now:     history.cfg.Now,
		logger:  logger,
	}
}

// Editable reports whether o can be edited right now.
func (s *OrderService) Editable(o domain.Order) bool {
	return o.EditableAt(s.now(), s.loc)
}

// List returns the customer's enriched orders. force bypasses the throttle.
func (s *OrderService) List(ctx context.Context, customerID string, force bool) ([]domain.Order, error) {
	return s.history.Orders(ctx, customerID, force)
}

// EditOrder replaces the items of one of the customer's orders. Orders that
// are no longer editable are rejected with ORDER_NOT_EDITABLE.
func (s *OrderService) EditOrder(ctx context.Context, customerID string, orderID int, in EditOrderInput) (*domain.Order, error) {
	current, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if strconv.Itoa(current.CustomerID) != customerID {
		return nil, apperrors.NotFound("order", strconv.Itoa(orderID))
	}
	if !s.Editable(*current) {
		return nil, apperrors.ConflictCode("ORDER_NOT_EDITABLE",
			"only orders in status created can be edited, on the day they were placed")
	}

	updated, err := s.orders.UpdateOrder(ctx, orderID, backend.UpdateOrderRequest{
		Items:       in.Items,
		Observation: in.Observation,
	})
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishOrderEdited(ctx, updated); err != nil {
		s.logger.WarnContext(ctx, "publish order edited failed",
			slog.Int("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.history.ForceRefresh(ctx, customerID); err != nil {
		s.logger.WarnContext(ctx, "history refresh after edit failed",
			slog.String("customer_id", customerID),
			slog.String("error", err.Error()),
		)
	}
	return updated, nil
}

// UpdateOrderStatus moves an order to the next status. Unknown statuses are
// invalid input; anything but the direct successor is a conflict.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID int, status string) (*domain.Order, error) {
	target, err := domain.ParseOrderStatus(status)
	if err != nil {
		return nil, apperrors.InvalidInput(err.Error())
	}

	current, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransitionTo(target) {
		return nil, apperrors.ConflictCode("INVALID_STATUS_TRANSITION",
			"cannot move order from "+string(current.Status)+" to "+string(target))
	}

	updated, err := s.orders.UpdateOrder(ctx, orderID, backend.UpdateOrderRequest{Status: &target})
	if err != nil {
		return nil, err
	}

	if err := s.events.PublishStatusChanged(ctx, updated, current.Status); err != nil {
		s.logger.WarnContext(ctx, "publish status changed failed",
			slog.Int("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.history.ForceRefresh(ctx, strconv.Itoa(updated.CustomerID)); err != nil {
		s.logger.WarnContext(ctx, "history refresh after status change failed",
			slog.Int("order_id", orderID),
			slog.String("error", err.Error()),
		)
	}
	return updated, nil
}
