package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidStatus is returned for status strings outside the known set.
var ErrInvalidStatus = errors.New("invalid order status")

// OrderStatus is the closed set of order states.
type OrderStatus string

const (
	StatusCreated   OrderStatus = "created"
	StatusInProcess OrderStatus = "in_process"
	StatusDelivered OrderStatus = "delivered"
)

// next maps each status to its only allowed successor.
var next = map[OrderStatus]OrderStatus{
	StatusCreated:   StatusInProcess,
	StatusInProcess: StatusDelivered,
}

// ParseOrderStatus parses a wire status. "process" is accepted as an alias
// of in_process.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch s {
	case string(StatusCreated):
		return StatusCreated, nil
	case string(StatusInProcess), "process":
		return StatusInProcess, nil
	case string(StatusDelivered):
		return StatusDelivered, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

// CanTransitionTo reports whether target directly follows s.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	n, ok := next[s]
	return ok && n == target
}

// Terminal reports whether no transition leaves s.
func (s OrderStatus) Terminal() bool {
	_, ok := next[s]
	return !ok
}

// UnmarshalJSON parses a wire status through ParseOrderStatus. Unknown
// statuses are rejected with ErrInvalidStatus.
func (s *OrderStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseOrderStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// OrderItem is one product line of an order. Product is attached lazily.
type OrderItem struct {
	ID                int      `json:"id"`
	ProductID         int      `json:"productId"`
	Quantity          int      `json:"quantity"`
	UnitMeasurementID int      `json:"unitMeasurementId"`
	Product           *Product `json:"product,omitempty"`
}

// ProductName returns the product name, or "Producto #<id>" when unresolved.
func (i OrderItem) ProductName() string {
	if i.Product != nil && i.Product.Name != "" {
		return i.Product.Name
	}
	return "Producto #" + strconv.Itoa(i.ProductID)
}

// Order is the read projection of a backend order. Area is attached lazily.
type Order struct {
	ID          int             `json:"id"`
	CustomerID  int             `json:"userId"`
	AreaID      int             `json:"areaId"`
	Area        *Area           `json:"area,omitempty"`
	Items       []OrderItem     `json:"orderItems"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Observation string          `json:"observation,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// AreaName returns the area name, or "Área #<id>" when unresolved.
func (o Order) AreaName() string {
	if o.Area != nil && o.Area.Name != "" {
		return o.Area.Name
	}
	return "Área #" + strconv.Itoa(o.AreaID)
}

// EditableAt reports whether the order can still be edited at now: its status
// is created and it was placed on the same calendar day in loc.
func (o Order) EditableAt(now time.Time, loc *time.Location) bool {
	if o.Status != StatusCreated {
		return false
	}
	if loc == nil {
		loc = time.Local
	}
	y1, m1, d1 := o.CreatedAt.In(loc).Date()
	y2, m2, d2 := now.In(loc).Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// Clone returns a copy whose Items slice can be modified independently.
func (o Order) Clone() Order {
	c := o
	c.Items = append([]OrderItem(nil), o.Items...)
	return c
}
