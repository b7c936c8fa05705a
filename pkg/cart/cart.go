// Package cart implements the in-memory shopping cart owned by a
// single conversation. Carts preserve insertion order for display and
// are only ever mutated by the session that owns them.
package cart

import (
	"fmt"
	"strings"
)

// LineItem is one product line in a cart.
type LineItem struct {
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Quantity  int     `json:"quantity"`
}

// Subtotal returns unit price times quantity for the line.
func (l LineItem) Subtotal() float64 {
	return l.UnitPrice * float64(l.Quantity)
}

// Cart holds an ordered sequence of line items.
// Cart is not safe for concurrent use; the owning session serializes
// access.
type Cart struct {
	items []LineItem
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// Add inserts a product into the cart. Adding a name that is already
// present increments that line's quantity instead of appending a
// duplicate line.
func (c *Cart) Add(name string, unitPrice float64, quantity int) {
	if quantity <= 0 {
		quantity = 1
	}
	for i := range c.items {
		if c.items[i].Name == name {
			c.items[i].Quantity += quantity
			return
		}
	}
	c.items = append(c.items, LineItem{Name: name, UnitPrice: unitPrice, Quantity: quantity})
}

// Remove deletes the line with the given name, if present.
func (c *Cart) Remove(name string) {
	kept := c.items[:0]
	for _, item := range c.items {
		if item.Name != name {
			kept = append(kept, item)
		}
	}
	c.items = kept
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.items = nil
}

// IsEmpty reports whether the cart has no items.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Items returns a copy of the current line items in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Total returns the sum of unit price times quantity over all lines.
func (c *Cart) Total() float64 {
	var total float64
	for _, item := range c.items {
		total += item.Subtotal()
	}
	return total
}

// Summary renders the cart for display in a reply.
func (c *Cart) Summary() string {
	if c.IsEmpty() {
		return "Your cart is empty."
	}

	var b strings.Builder
	b.WriteString("Your cart:\n")
	for _, item := range c.items {
		fmt.Fprintf(&b, "- %s x %d = %.2f\n", item.Name, item.Quantity, item.Subtotal())
	}
	fmt.Fprintf(&b, "Total: %.2f", c.Total())
	return b.String()
}
