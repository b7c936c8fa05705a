// Package dialog implements the conversation core: an explicit state
// machine driven by (state, intent) pairs, with collection states that
// consume input as checkout fields. Every handler converts remote
// failures into a reply; the only hard error surfaced to the caller is
// an order-log write failure.
package dialog

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopbot-dev/shopbot/internal/intent"
	"github.com/shopbot-dev/shopbot/internal/llm"
	"github.com/shopbot-dev/shopbot/pkg/order"
	"github.com/shopbot-dev/shopbot/pkg/retrieval"
)

const (
	msgGreeting     = "Hello! Welcome to ShopBot. What would you like to buy?"
	msgFarewell     = "Goodbye! Hope to see you again."
	msgSessionEnded = "This conversation has ended. Start a new session to keep shopping."
	msgNotFound     = "Sorry, I couldn't find any matching products."
	msgCartEmpty    = "Your cart is empty."
	msgAskName      = "Great! What's your full name?"
	msgAskAddress   = "And your delivery address?"
	msgBadPhone     = "That doesn't look right. Please enter a phone number of exactly 11 digits."
	msgDontKnow     = "I don't have an answer for that one."
	msgApology      = "Sorry, I'm having trouble answering right now. Please try again in a moment."
	msgUnclearAdd   = "I'm not sure which product you'd like to add. Could you name it?"

	personaPrompt = "You are ShopBot, a friendly shopping assistant. Keep replies short and helpful."
)

var confirmPhrases = []string{"yes", "y", "yeah", "yep", "yes please", "sure", "ok", "okay", "buy", "buy it", "i'll take it", "confirm"}

var declinePhrases = []string{"no", "n", "nope", "nah", "no thanks", "cancel", "never mind"}

// Retriever is the slice of the retrieval layer the engine needs.
// *retrieval.Retriever satisfies it.
type Retriever interface {
	SearchProducts(ctx context.Context, query string, k int) ([]retrieval.ProductHit, error)
	SearchFAQ(ctx context.Context, query string, k int) ([]retrieval.FAQHit, error)
}

// Turn is the outcome of handling one user message.
type Turn struct {
	// Reply is the text returned to the user.
	Reply string
	// State is the session state after the turn.
	State State
	// Intent is the classified intent, empty when the state consumed
	// the input without routing.
	Intent intent.Intent
	// Path lists the states visited while handling the turn.
	Path []State
	// Order is set when the turn created an order.
	Order *order.Order
}

// Engine routes user messages through the state machine.
type Engine struct {
	classifier intent.Classifier
	retriever  Retriever
	chat       llm.Provider
	orders     order.Log
	logger     *log.Logger
}

// NewEngine creates a dialogue engine. The chat provider is wrapped so
// rate-limited fallback completions are retried exactly once before
// degrading to the static apology.
func NewEngine(classifier intent.Classifier, retriever Retriever, chat llm.Provider, orders order.Log) *Engine {
	return &Engine{
		classifier: classifier,
		retriever:  retriever,
		chat:       llm.NewRetryOnce(chat),
		orders:     orders,
		logger:     log.Default(),
	}
}

// SetLogger replaces the engine's logger.
func (e *Engine) SetLogger(logger *log.Logger) {
	e.logger = logger
}

// HandleMessage handles one user message to completion and returns the
// reply turn. The session lock is held for the whole turn, so messages
// for the same session never overlap.
func (e *Engine) HandleMessage(ctx context.Context, s *Session, message string) (*Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	text := strings.TrimSpace(message)
	turn := &Turn{}

	var err error
	switch {
	case s.state.Terminal():
		turn.Reply = msgSessionEnded
	case s.state == StateStart:
		// The first turn always greets, whatever the intent.
		s.state = StateIdle
		turn.Reply = msgGreeting
	case s.state == StateConfirmBuy:
		e.handleConfirm(s, text, turn)
	case s.state == StateGetName:
		e.handleName(s, text, turn)
	case s.state == StateGetPhone:
		e.handlePhone(s, text, turn)
	case s.state == StateGetAddress:
		err = e.handleAddress(ctx, s, text, turn)
	default:
		e.route(ctx, s, text, turn)
	}
	if err != nil {
		return nil, err
	}

	s.updatedAt = time.Now()
	turn.State = s.state
	turn.Path = append(turn.Path, s.state)
	return turn, nil
}

// route classifies the message and dispatches on (idle, intent).
func (e *Engine) route(ctx context.Context, s *Session, text string, turn *Turn) {
	label, err := e.classifier.Classify(ctx, text)
	if err != nil {
		e.logger.Printf("intent classification failed, treating as unknown: %v", err)
		label = intent.Unknown
	}
	turn.Intent = label

	switch label {
	case intent.Exit:
		s.state = StateEnd
		turn.Reply = msgFarewell
	case intent.Greet:
		turn.Reply = msgGreeting
	case intent.SearchProduct:
		e.handleSearch(ctx, s, text, turn)
	case intent.AddToCart:
		e.handleDirectAdd(ctx, s, text, turn)
	case intent.ViewCart:
		turn.Reply = s.cart.Summary()
	case intent.Checkout:
		e.handleCheckout(s, turn)
	case intent.FAQ:
		e.handleFAQ(ctx, s, text, turn)
	default:
		turn.Reply = e.fallback(ctx, text)
	}
}

// handleSearch looks the query up in the product index. A hit becomes
// the pending candidate and moves the session to confirm_buy; a miss
// stays in idle.
func (e *Engine) handleSearch(ctx context.Context, s *Session, text string, turn *Turn) {
	turn.Path = append(turn.Path, StateProductSearch)

	hits, err := e.retriever.SearchProducts(ctx, text, 1)
	if err != nil {
		e.logger.Printf("product search failed: %v", err)
		turn.Reply = msgApology
		return
	}
	if len(hits) == 0 {
		turn.Reply = msgNotFound
		return
	}

	p := hits[0].Product
	s.pending = &p
	s.state = StateConfirmBuy
	turn.Reply = fmt.Sprintf("I found %s for %.2f. Would you like to buy it?", p.Name, p.Price)
}

// handleConfirm resolves the pending candidate. A confirmation adds it
// to the cart, a decline drops it; anything else re-prompts and the
// state stays confirm_buy. The input is never rerouted as a search.
func (e *Engine) handleConfirm(s *Session, text string, turn *Turn) {
	if s.pending == nil {
		s.state = StateIdle
		turn.Reply = msgNotFound
		return
	}

	switch {
	case matchesPhrase(text, confirmPhrases):
		turn.Path = append(turn.Path, StateAddToCart)
		s.cart.Add(s.pending.Name, s.pending.Price, 1)
		turn.Reply = fmt.Sprintf("Added %s to your cart. Anything else?", s.pending.Name)
		s.pending = nil
		s.state = StateIdle
	case matchesPhrase(text, declinePhrases):
		turn.Reply = fmt.Sprintf("Okay, I won't add %s. What else can I do for you?", s.pending.Name)
		s.pending = nil
		s.state = StateIdle
	default:
		turn.Reply = fmt.Sprintf("Would you like to buy %s? Please answer yes or no.", s.pending.Name)
	}
}

// handleDirectAdd covers "add X to cart" said from idle: a k=1 product
// lookup whose hit goes straight into the cart.
func (e *Engine) handleDirectAdd(ctx context.Context, s *Session, text string, turn *Turn) {
	turn.Path = append(turn.Path, StateAddToCart)

	hits, err := e.retriever.SearchProducts(ctx, text, 1)
	if err != nil {
		e.logger.Printf("product search failed: %v", err)
		turn.Reply = msgApology
		return
	}
	if len(hits) == 0 {
		turn.Reply = msgUnclearAdd
		return
	}

	p := hits[0].Product
	s.cart.Add(p.Name, p.Price, 1)
	turn.Reply = fmt.Sprintf("Added %s to your cart. Anything else?", p.Name)
}

func (e *Engine) handleCheckout(s *Session, turn *Turn) {
	turn.Path = append(turn.Path, StateCheckout)

	if s.cart.IsEmpty() {
		turn.Reply = msgCartEmpty
		return
	}
	s.state = StateGetName
	turn.Reply = msgAskName
}

func (e *Engine) handleName(s *Session, text string, turn *Turn) {
	// Stored verbatim, no validation.
	s.name = text
	s.state = StateGetPhone
	turn.Reply = fmt.Sprintf("Thanks, %s! What's your phone number?", s.name)
}

func (e *Engine) handlePhone(s *Session, text string, turn *Turn) {
	if !validPhone(text) {
		turn.Reply = msgBadPhone
		return
	}
	s.phone = text
	s.state = StateGetAddress
	turn.Reply = msgAskAddress
}

// handleAddress completes checkout: the order is snapshotted from the
// cart, appended to the log, and the cart and collected fields are
// cleared. A log write failure is returned to the caller unhandled.
func (e *Engine) handleAddress(ctx context.Context, s *Session, text string, turn *Turn) error {
	s.address = text

	ord, err := order.New(s.cart, order.Customer{
		Name:    s.name,
		Phone:   s.phone,
		Address: s.address,
	})
	if err != nil {
		// The cart emptied mid-flow; abandon the checkout.
		s.resetCheckout()
		s.state = StateIdle
		turn.Reply = msgCartEmpty
		return nil
	}

	if err := e.orders.Append(ctx, ord); err != nil {
		return fmt.Errorf("append order %s: %w", ord.ID, err)
	}

	s.resetCheckout()
	s.state = StateIdle
	turn.Order = ord
	turn.Reply = fmt.Sprintf("Your order is confirmed!\nOrder ID: %s\nTotal: %.2f", ord.ID, ord.Total)
	return nil
}

func (e *Engine) handleFAQ(ctx context.Context, s *Session, text string, turn *Turn) {
	turn.Path = append(turn.Path, StateFAQ)

	hits, err := e.retriever.SearchFAQ(ctx, text, 1)
	if err != nil {
		e.logger.Printf("faq search failed: %v", err)
		turn.Reply = msgApology
		return
	}
	if len(hits) == 0 {
		turn.Reply = msgDontKnow
		return
	}
	turn.Reply = hits[0].FAQ.Answer
}

// fallback asks the chat model for an open-ended persona reply. The
// provider wrapper retries once on a rate limit; any remaining failure
// degrades to the static apology.
func (e *Engine) fallback(ctx context.Context, text string) string {
	resp, err := e.chat.CreateCompletion(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: personaPrompt},
			{Role: "user", Content: text},
		},
		Temperature: 0.3,
	})
	if err != nil {
		e.logger.Printf("fallback completion failed: %v", err)
		return msgApology
	}
	return resp.Content
}

// validPhone accepts exactly 11 digit characters.
func validPhone(s string) bool {
	if len(s) != 11 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func matchesPhrase(text string, phrases []string) bool {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, p := range phrases {
		if lower == p || strings.HasPrefix(lower, p+" ") || strings.HasPrefix(lower, p+",") {
			return true
		}
	}
	return false
}
