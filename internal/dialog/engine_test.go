package dialog

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopbot-dev/shopbot/internal/intent"
	"github.com/shopbot-dev/shopbot/internal/llm"
	"github.com/shopbot-dev/shopbot/pkg/catalog"
	"github.com/shopbot-dev/shopbot/pkg/order"
	"github.com/shopbot-dev/shopbot/pkg/retrieval"
)

// fakeRetriever serves canned hits keyed by substring match.
type fakeRetriever struct {
	products []catalog.Product
	faqs     []catalog.FAQ
	err      error
}

func (f *fakeRetriever) SearchProducts(ctx context.Context, query string, k int) ([]retrieval.ProductHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	var hits []retrieval.ProductHit
	for _, p := range f.products {
		if containsFold(p.Name, query) || containsFold(query, p.Name) {
			hits = append(hits, retrieval.ProductHit{Product: p})
		}
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

func (f *fakeRetriever) SearchFAQ(ctx context.Context, query string, k int) ([]retrieval.FAQHit, error) {
	if f.err != nil {
		return nil, f.err
	}
	var hits []retrieval.FAQHit
	for _, q := range f.faqs {
		hits = append(hits, retrieval.FAQHit{FAQ: q})
		if len(hits) == k {
			break
		}
	}
	return hits, nil
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func newTestEngine(t *testing.T) (*Engine, *llm.MockProvider, order.Log) {
	t.Helper()

	retriever := &fakeRetriever{
		products: []catalog.Product{
			{ID: "p1", Name: "gaming mouse", Price: 500},
			{ID: "p2", Name: "keyboard", Price: 1200},
		},
		faqs: []catalog.FAQ{
			{Question: "What is your return policy?", Answer: "Returns accepted within 30 days."},
		},
	}

	mock := llm.NewMockProvider("mock")
	orders, err := order.NewFileLog(filepath.Join(t.TempDir(), "orders.jsonl"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = orders.Close() })

	return NewEngine(intent.NewKeywordClassifier(), retriever, mock, orders), mock, orders
}

func say(t *testing.T, e *Engine, s *Session, message string) *Turn {
	t.Helper()
	turn, err := e.HandleMessage(context.Background(), s, message)
	require.NoError(t, err)
	return turn
}

func TestFullPurchaseFlow(t *testing.T) {
	e, _, orders := newTestEngine(t)
	s := NewSession()

	inputs := []string{"hi", "gaming mouse", "yes", "checkout", "Jane Doe", "09123456789", "123 Main St"}
	wantStates := []State{StateIdle, StateConfirmBuy, StateIdle, StateGetName, StateGetPhone, StateGetAddress, StateIdle}

	var last *Turn
	for i, in := range inputs {
		last = say(t, e, s, in)
		assert.Equal(t, wantStates[i], last.State, "after input %q", in)
	}

	require.NotNil(t, last.Order)
	assert.Equal(t, 500.0, last.Order.Total)
	require.Len(t, last.Order.Items, 1)
	assert.Equal(t, "gaming mouse", last.Order.Items[0].Name)
	assert.Equal(t, "Jane Doe", last.Order.Customer.Name)
	assert.Equal(t, "09123456789", last.Order.Customer.Phone)
	assert.Contains(t, last.Reply, last.Order.ID)

	// The order reached the log.
	records, err := orders.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, last.Order.ID, records[0].ID)

	// Cart and collected fields are cleared after checkout.
	assert.True(t, s.Cart().IsEmpty())
}

func TestFirstTurnAlwaysGreets(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	// Even a non-greeting first input gets the greeting.
	turn := say(t, e, s, "checkout")
	assert.Equal(t, StateIdle, turn.State)
	assert.Equal(t, msgGreeting, turn.Reply)
}

func TestPhoneValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	say(t, e, s, "gaming mouse")
	say(t, e, s, "yes")
	say(t, e, s, "checkout")
	say(t, e, s, "Jane Doe")

	// Non-digit input re-prompts without advancing.
	turn := say(t, e, s, "abc")
	assert.Equal(t, StateGetPhone, turn.State)
	assert.Equal(t, msgBadPhone, turn.Reply)

	// 10 digits is too short.
	turn = say(t, e, s, "0912345678")
	assert.Equal(t, StateGetPhone, turn.State)

	// 11 digits with a letter in between.
	turn = say(t, e, s, "0912345678x")
	assert.Equal(t, StateGetPhone, turn.State)

	// Exactly 11 digits advances.
	turn = say(t, e, s, "12345678901")
	assert.Equal(t, StateGetAddress, turn.State)
}

func TestCheckoutEmptyCart(t *testing.T) {
	e, _, orders := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	turn := say(t, e, s, "checkout")
	assert.Equal(t, StateIdle, turn.State)
	assert.Equal(t, msgCartEmpty, turn.Reply)

	records, err := orders.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSearchMissStaysIdle(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	turn := say(t, e, s, "find me a flying carpet")
	assert.Equal(t, StateIdle, turn.State)
	assert.Equal(t, msgNotFound, turn.Reply)
}

func TestConfirmRePromptAndDecline(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	say(t, e, s, "gaming mouse")

	// A reply that is neither confirmation nor decline re-prompts and
	// is never treated as a new search.
	turn := say(t, e, s, "keyboard")
	assert.Equal(t, StateConfirmBuy, turn.State)
	assert.Contains(t, turn.Reply, "yes or no")
	assert.True(t, s.Cart().IsEmpty())

	// A decline drops the candidate.
	turn = say(t, e, s, "no thanks")
	assert.Equal(t, StateIdle, turn.State)
	assert.True(t, s.Cart().IsEmpty())
}

func TestExitEndsSession(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	turn := say(t, e, s, "bye")
	assert.Equal(t, StateEnd, turn.State)
	assert.Equal(t, msgFarewell, turn.Reply)

	// No transition out of end.
	turn = say(t, e, s, "hi")
	assert.Equal(t, StateEnd, turn.State)
	assert.Equal(t, msgSessionEnded, turn.Reply)
}

func TestViewCart(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	say(t, e, s, "gaming mouse")
	say(t, e, s, "yes")

	turn := say(t, e, s, "view cart")
	assert.Equal(t, StateIdle, turn.State)
	assert.Contains(t, turn.Reply, "gaming mouse")
	assert.Contains(t, turn.Reply, "500.00")
}

func TestFAQAnswer(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	turn := say(t, e, s, "what is your return policy")
	assert.Equal(t, StateIdle, turn.State)
	assert.Equal(t, "Returns accepted within 30 days.", turn.Reply)
}

func TestFallbackUsesProvider(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	mock.QueueResponse("I can help with peripherals!")
	s := NewSession()

	say(t, e, s, "hi")
	turn := say(t, e, s, "xyzzy")
	assert.Equal(t, intent.Unknown, turn.Intent)
	assert.Equal(t, "I can help with peripherals!", turn.Reply)
	require.Len(t, mock.Calls, 1)
}

func TestFallbackRetriesRateLimitThenDegrades(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	mock.QueueError(llm.NewProviderError("mock", llm.ErrorCodeRateLimit, "slow down", nil))
	mock.QueueError(llm.NewProviderError("mock", llm.ErrorCodeRateLimit, "still slow", nil))
	s := NewSession()

	say(t, e, s, "hi")
	turn := say(t, e, s, "xyzzy")
	assert.Equal(t, msgApology, turn.Reply)
	// One retry, then degrade.
	assert.Len(t, mock.Calls, 2)
}

func TestFallbackDegradesImmediatelyOnOtherFailures(t *testing.T) {
	e, mock, _ := newTestEngine(t)
	mock.QueueError(llm.NewProviderError("mock", llm.ErrorCodeAuthentication, "bad key", nil))
	s := NewSession()

	say(t, e, s, "hi")
	turn := say(t, e, s, "xyzzy")
	assert.Equal(t, msgApology, turn.Reply)
	assert.Len(t, mock.Calls, 1)
}

func TestOrderLogWriteFailureIsHard(t *testing.T) {
	retriever := &fakeRetriever{
		products: []catalog.Product{{ID: "p1", Name: "gaming mouse", Price: 500}},
	}
	mock := llm.NewMockProvider("mock")
	orders, err := order.NewFileLog(filepath.Join(t.TempDir(), "orders.jsonl"))
	require.NoError(t, err)
	e := NewEngine(intent.NewKeywordClassifier(), retriever, mock, orders)
	s := NewSession()

	say(t, e, s, "hi")
	say(t, e, s, "gaming mouse")
	say(t, e, s, "yes")
	say(t, e, s, "checkout")
	say(t, e, s, "Jane Doe")
	say(t, e, s, "09123456789")

	// Closing the log makes the append fail; the error surfaces.
	require.NoError(t, orders.Close())
	_, err = e.HandleMessage(context.Background(), s, "123 Main St")
	require.Error(t, err)
}

func TestCollectionStateIgnoresIntents(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	say(t, e, s, "gaming mouse")
	say(t, e, s, "yes")
	say(t, e, s, "checkout")

	// "view cart" while collecting the name is stored as the name.
	turn := say(t, e, s, "view cart")
	assert.Equal(t, StateGetPhone, turn.State)
	assert.Contains(t, turn.Reply, "view cart")
}

func TestRepeatedAddIncrementsQuantity(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	for i := 0; i < 2; i++ {
		say(t, e, s, "gaming mouse")
		say(t, e, s, "yes")
	}

	items := s.Cart().Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 1000.0, s.Cart().Total())
}

func TestSessionsAreIndependent(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s1 := NewSession()
	s2 := NewSession()

	say(t, e, s1, "hi")
	say(t, e, s1, "gaming mouse")
	say(t, e, s1, "yes")

	say(t, e, s2, "hi")
	assert.True(t, s2.Cart().IsEmpty())
	assert.Equal(t, StateIdle, s2.State())
	assert.Equal(t, StateIdle, s1.State())
	assert.False(t, s1.Cart().IsEmpty())
}

func TestTurnPathRecordsTransientStates(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	say(t, e, s, "hi")
	turn := say(t, e, s, "gaming mouse")
	assert.Equal(t, []State{StateProductSearch, StateConfirmBuy}, turn.Path)

	turn = say(t, e, s, "yes")
	assert.Equal(t, []State{StateAddToCart, StateIdle}, turn.Path)
}

func TestOrderIDFormat(t *testing.T) {
	e, _, _ := newTestEngine(t)
	s := NewSession()

	for _, in := range []string{"hi", "gaming mouse", "yes", "checkout", "Jane Doe", "09123456789"} {
		say(t, e, s, in)
	}
	turn := say(t, e, s, "123 Main St")
	require.NotNil(t, turn.Order)
	assert.True(t, len(turn.Order.ID) > 4 && turn.Order.ID[:4] == "ORD-", fmt.Sprintf("unexpected order id %s", turn.Order.ID))
}
