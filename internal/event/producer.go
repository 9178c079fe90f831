package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/veryfrut/storefront/internal/domain"
	pkgkafka "github.com/veryfrut/storefront/pkg/kafka"
	"github.com/veryfrut/storefront/pkg/logger"
	"github.com/veryfrut/storefront/pkg/middleware"
)

// Topics for storefront domain events.
var (
	TopicCartUpdated        = pkgkafka.Topic("cart", "updated")
	TopicCartCleared        = pkgkafka.Topic("cart", "cleared")
	TopicOrderPlaced        = pkgkafka.Topic("order", "placed")
	TopicOrderEdited        = pkgkafka.Topic("order", "edited")
	TopicOrderStatusChanged = pkgkafka.Topic("order", "status_changed")
)

const (
	AggregateTypeCart  = "cart"
	AggregateTypeOrder = "order"
	Source             = "storefront"
)

// Publisher sends one event to a topic. *pkgkafka.Producer satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// CartUpdatedData is the payload of cart.updated.
type CartUpdatedData struct {
	CustomerID string            `json:"customer_id"`
	Lines      []domain.CartLine `json:"lines"`
	ItemCount  int               `json:"item_count"`
	Total      decimal.Decimal   `json:"total"`
}

// CartClearedData is the payload of cart.cleared.
type CartClearedData struct {
	CustomerID string `json:"customer_id"`
	Reason     string `json:"reason"`
}

// OrderData is the payload of order.placed and order.edited.
type OrderData struct {
	OrderID    int             `json:"order_id"`
	CustomerID int             `json:"customer_id"`
	AreaID     int             `json:"area_id"`
	ItemCount  int             `json:"item_count"`
	Total      decimal.Decimal `json:"total"`
}

// StatusChangedData is the payload of order.status_changed.
type StatusChangedData struct {
	OrderID    int                `json:"order_id"`
	CustomerID int                `json:"customer_id"`
	From       domain.OrderStatus `json:"from"`
	To         domain.OrderStatus `json:"to"`
}

// Producer publishes storefront domain events.
type Producer struct {
	pub    Publisher
	logger *slog.Logger
}

// NewProducer creates a domain event producer over pub.
func NewProducer(pub Publisher, logger *slog.Logger) *Producer {
	return &Producer{pub: pub, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	ev, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		ev.WithCorrelationID(id)
	}
	if actor := middleware.UserIDFromContext(ctx); actor != "" {
		ev.WithActor(actor, middleware.RoleFromContext(ctx))
	}
	if err := p.pub.Publish(ctx, topic, ev); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	p.logger.DebugContext(ctx, "event published",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishCartUpdated publishes the full line list of cart.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	return p.publish(ctx, TopicCartUpdated, cart.CustomerID, AggregateTypeCart, CartUpdatedData{
		CustomerID: cart.CustomerID,
		Lines:      cart.Lines,
		ItemCount:  cart.TotalItemCount(),
		Total:      cart.TotalPrice(),
	})
}

// PublishCartCleared publishes why the cart of customerID was emptied.
func (p *Producer) PublishCartCleared(ctx context.Context, customerID, reason string) error {
	return p.publish(ctx, TopicCartCleared, customerID, AggregateTypeCart, CartClearedData{
		CustomerID: customerID,
		Reason:     reason,
	})
}

func orderData(o *domain.Order) OrderData {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return OrderData{OrderID: o.ID, CustomerID: o.CustomerID, AreaID: o.AreaID, ItemCount: n, Total: o.TotalAmount}
}

// PublishOrderPlaced publishes a newly created order.
func (p *Producer) PublishOrderPlaced(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderPlaced, strconv.Itoa(o.ID), AggregateTypeOrder, orderData(o))
}

// PublishOrderEdited publishes an order after a same-day edit.
func (p *Producer) PublishOrderEdited(ctx context.Context, o *domain.Order) error {
	return p.publish(ctx, TopicOrderEdited, strconv.Itoa(o.ID), AggregateTypeOrder, orderData(o))
}

// PublishStatusChanged publishes an admin status transition.
func (p *Producer) PublishStatusChanged(ctx context.Context, o *domain.Order, from domain.OrderStatus) error {
	return p.publish(ctx, TopicOrderStatusChanged, strconv.Itoa(o.ID), AggregateTypeOrder, StatusChangedData{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		From:       from,
		To:         o.Status,
	})
}
