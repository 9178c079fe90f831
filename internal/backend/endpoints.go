package backend

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/veryfrut/storefront/internal/domain"
	apperrors "github.com/veryfrut/storefront/pkg/errors"
)

// LoginResult is the backend's answer to a successful login.
type LoginResult struct {
	Token string      `json:"access_token"`
	User  domain.User `json:"user"`
}

// OrderItemInput is an item of an order being created or edited.
type OrderItemInput struct {
	ProductID         int `json:"productId" validate:"required,gt=0"`
	Quantity          int `json:"quantity" validate:"required,gt=0"`
	UnitMeasurementID int `json:"unitMeasurementId" validate:"required,gt=0"`
}

// CreateOrderRequest is the body of POST /orders.
type CreateOrderRequest struct {
	UserID      int              `json:"userId"`
	AreaID      int              `json:"areaId"`
	TotalAmount decimal.Decimal  `json:"totalAmount"`
	Observation string           `json:"observation,omitempty"`
	Items       []OrderItemInput `json:"orderItems"`
}

// UpdateOrderRequest is the body of PATCH /orders/{id}. Nil fields are omitted.
type UpdateOrderRequest struct {
	Items       []OrderItemInput    `json:"orderItems,omitempty"`
	Observation *string             `json:"observation,omitempty"`
	Status      *domain.OrderStatus `json:"status,omitempty"`
}

// ProfileUpdate is the body of PATCH /users/{id}.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
	LastName *string `json:"lastName,omitempty" validate:"omitempty,max=100"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=30"`
}

// PasswordChange is the body of PATCH /users/{id}/password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8"`
}

// Login exchanges credentials for a token.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &res); err != nil {
		return nil, err
	}
	if res.Token == "" {
		return nil, apperrors.Unauthorized("backend returned no token")
	}
	return &res, nil
}

// ListCustomerOrders returns the orders of userID. A 404 means no orders.
func (c *Client) ListCustomerOrders(ctx context.Context, userID int) ([]domain.Order, error) {
	var orders []domain.Order
	err := c.do(ctx, http.MethodGet, pathf("/orders/customer/%s", userID), nil, &orders)
	if errors.Is(err, apperrors.ErrNotFound) {
		return []domain.Order{}, nil
	}
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	return orders, nil
}

// GetOrder fetches one order.
func (c *Client) GetOrder(ctx context.Context, id int) (*domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, http.MethodGet, pathf("/orders/%s", id), nil, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// CreateOrder submits a new order.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// UpdateOrder patches an order.
func (c *Client) UpdateOrder(ctx context.Context, id int, req UpdateOrderRequest) (*domain.Order, error) {
	var o domain.Order
	if err := c.do(ctx, http.MethodPatch, pathf("/orders/%s", id), req, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListProducts returns the catalog, forwarding query filters as-is.
func (c *Client) ListProducts(ctx context.Context, query url.Values) ([]domain.Product, error) {
	path := "/products"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var products []domain.Product
	err := c.do(ctx, http.MethodGet, path, nil, &products)
	if errors.Is(err, apperrors.ErrNotFound) {
		return []domain.Product{}, nil
	}
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []domain.Product{}
	}
	return products, nil
}

// GetProduct fetches one product.
func (c *Client) GetProduct(ctx context.Context, id int) (*domain.Product, error) {
	var p domain.Product
	if err := c.do(ctx, http.MethodGet, pathf("/products/%s", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetArea fetches one area.
func (c *Client) GetArea(ctx context.Context, id int) (*domain.Area, error) {
	var a domain.Area
	if err := c.do(ctx, http.MethodGet, pathf("/areas/%s", id), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// GetUser fetches a user profile.
func (c *Client) GetUser(ctx context.Context, id int) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodGet, pathf("/users/%s", id), nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateUser patches a user profile.
func (c *Client) UpdateUser(ctx context.Context, id int, p ProfileUpdate) (*domain.User, error) {
	var u domain.User
	if err := c.do(ctx, http.MethodPatch, pathf("/users/%s", id), p, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword updates a user's password.
func (c *Client) ChangePassword(ctx context.Context, id int, p PasswordChange) error {
	return c.do(ctx, http.MethodPatch, pathf("/users/%s/password", id), p, nil)
}

// Ping checks that the backend answers at all. Any HTTP response counts.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.baseURL+"/", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.doer.Do(ctx, req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}
