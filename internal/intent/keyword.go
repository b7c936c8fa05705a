package intent

import (
	"context"
	"strings"
)

// KeywordClassifier matches messages against fixed phrase lists. It is
// deterministic and needs no backend, which makes it the default for
// tests and offline runs. Rules are checked in order; the first hit
// wins, and unmatched messages fall through to search_product when
// they look like a query, otherwise unknown.
type KeywordClassifier struct{}

// NewKeywordClassifier creates a keyword-based classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

type keywordRule struct {
	intent  Intent
	phrases []string
}

// Ordered: more specific intents before broader ones, so "add to cart"
// never matches the bare "cart" rule.
var rules = []keywordRule{
	{Exit, []string{"bye", "goodbye", "exit", "quit", "see you"}},
	{Checkout, []string{"checkout", "check out", "place order", "place my order", "buy now", "purchase"}},
	{AddToCart, []string{"add to cart", "add it", "add this", "add that", "add the"}},
	{ViewCart, []string{"view cart", "show cart", "show my cart", "my cart", "what's in my cart", "cart"}},
	{FAQ, []string{"return policy", "refund", "shipping", "delivery", "warranty", "how long", "do you ship", "payment method"}},
	{Greet, []string{"hi", "hello", "hey", "good morning", "good afternoon", "good evening"}},
	{SearchProduct, []string{"search", "looking for", "do you have", "find me", "show me", "i want", "i need", "price of"}},
}

// Classify never returns an error; the error return satisfies the
// Classifier interface.
func (c *KeywordClassifier) Classify(ctx context.Context, message string) (Intent, error) {
	text := strings.ToLower(strings.TrimSpace(message))
	if text == "" {
		return Unknown, nil
	}

	for _, rule := range rules {
		for _, phrase := range rule.phrases {
			if matches(text, phrase) {
				return rule.intent, nil
			}
		}
	}

	// Multi-word messages that matched nothing are treated as product
	// queries; single tokens stay unknown.
	if strings.ContainsRune(text, ' ') {
		return SearchProduct, nil
	}
	return Unknown, nil
}

// matches reports whether phrase occurs in text on word boundaries, so
// "hi" does not match "shipping".
func matches(text, phrase string) bool {
	idx := 0
	for {
		i := strings.Index(text[idx:], phrase)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(phrase)
		startOK := start == 0 || !isWordChar(text[start-1])
		endOK := end == len(text) || !isWordChar(text[end])
		if startOK && endOK {
			return true
		}
		idx = start + 1
	}
}

func isWordChar(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b == '\''
}
