package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/veryfrut/storefront/internal/domain"
)

type cartView struct {
	CustomerID string            `json:"customerId"`
	Lines      []domain.CartLine `json:"lines"`
	TotalPrice decimal.Decimal   `json:"totalPrice"`
	TotalItems int               `json:"totalItems"`
	UpdatedAt  time.Time         `json:"updatedAt"`
}

func newCartView(c *domain.Cart) cartView {
	lines := c.Lines
	if lines == nil {
		lines = []domain.CartLine{}
	}
	return cartView{
		CustomerID: c.CustomerID,
		Lines:      lines,
		TotalPrice: c.TotalPrice(),
		TotalItems: c.TotalItemCount(),
		UpdatedAt:  c.UpdatedAt,
	}
}

type groupedCartView struct {
	Groups     []domain.LineGroup `json:"groups"`
	TotalPrice decimal.Decimal    `json:"totalPrice"`
	TotalItems int                `json:"totalItems"`
}

type orderItemView struct {
	ID                int             `json:"id"`
	ProductID         int             `json:"productId"`
	ProductName       string          `json:"productName"`
	Quantity          int             `json:"quantity"`
	UnitMeasurementID int             `json:"unitMeasurementId"`
	Product           *domain.Product `json:"product,omitempty"`
}

type orderView struct {
	ID          int                `json:"id"`
	CustomerID  int                `json:"userId"`
	AreaID      int                `json:"areaId"`
	AreaName    string             `json:"areaName"`
	Area        *domain.Area       `json:"area,omitempty"`
	Status      domain.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	Observation string             `json:"observation,omitempty"`
	CreatedAt   time.Time          `json:"createdAt"`
	Editable    bool               `json:"editable"`
	Items       []orderItemView    `json:"orderItems"`
}

func newOrderView(o domain.Order, editable bool) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{
			ID:                it.ID,
			ProductID:         it.ProductID,
			ProductName:       it.ProductName(),
			Quantity:          it.Quantity,
			UnitMeasurementID: it.UnitMeasurementID,
			Product:           it.Product,
		}
	}
	return orderView{
		ID:          o.ID,
		CustomerID:  o.CustomerID,
		AreaID:      o.AreaID,
		AreaName:    o.AreaName(),
		Area:        o.Area,
		Status:      o.Status,
		TotalAmount: o.TotalAmount,
		Observation: o.Observation,
		CreatedAt:   o.CreatedAt,
		Editable:    editable,
		Items:       items,
	}
}
