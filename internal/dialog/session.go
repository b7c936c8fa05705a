package dialog

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shopbot-dev/shopbot/pkg/catalog"
	"github.com/shopbot-dev/shopbot/pkg/cart"
)

// Session is one user's conversation: current state, cart, the pending
// product candidate awaiting confirmation, and the customer fields
// collected during checkout. Sessions are never shared between
// conversations; the mutex serializes turns so a message is handled to
// completion before the next one for the same session starts.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.Mutex
	state     State
	cart      *cart.Cart
	pending   *catalog.Product
	name      string
	phone     string
	address   string
	updatedAt time.Time
}

// NewSession creates a session in the start state with an empty cart.
func NewSession() *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		state:     StateStart,
		cart:      cart.New(),
		updatedAt: now,
	}
}

// State returns the current dialogue state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cart returns the session's cart. The cart is only mutated while the
// session lock is held by the engine.
func (s *Session) Cart() *cart.Cart {
	return s.cart
}

// UpdatedAt returns the time of the last handled turn.
func (s *Session) UpdatedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// resetCheckout clears the collected customer fields and the cart.
// Called after an order is created or a checkout is abandoned.
func (s *Session) resetCheckout() {
	s.name = ""
	s.phone = ""
	s.address = ""
	s.cart.Clear()
}
