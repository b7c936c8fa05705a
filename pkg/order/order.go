// Package order defines immutable order records and the append-only
// log they are persisted to. An order's item list and total are frozen
// at creation; only the status field may change afterwards, via an
// explicit update keyed by order ID.
package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopbot-dev/shopbot/pkg/cart"
)

// Status values an order moves through after creation.
const (
	StatusCreated   = "created"
	StatusShipped   = "shipped"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// ErrEmptyCart is returned when order creation is attempted with no
// items in the cart.
var ErrEmptyCart = errors.New("cart is empty")

// Customer holds the contact fields collected during checkout.
type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Order is an immutable snapshot of a completed checkout.
type Order struct {
	ID        string          `json:"order_id"`
	Items     []cart.LineItem `json:"items"`
	Total     float64         `json:"total_price"`
	Customer  Customer        `json:"customer"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// New creates an order from the cart contents and customer fields.
// The item list is snapshotted and the total computed at this moment;
// callers clear the cart afterwards. Returns ErrEmptyCart when the
// cart has no items.
func New(c *cart.Cart, customer Customer) (*Order, error) {
	if c.IsEmpty() {
		return nil, ErrEmptyCart
	}

	now := time.Now().UTC()
	return &Order{
		ID:        fmt.Sprintf("ORD-%d", now.UnixNano()),
		Items:     c.Items(),
		Total:     c.Total(),
		Customer:  customer,
		Status:    StatusCreated,
		CreatedAt: now,
	}, nil
}
