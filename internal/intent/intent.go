// Package intent classifies user messages into the closed set of
// intents the dialogue engine understands. Two classifiers exist: a
// keyword matcher that needs no backend and an LLM-backed classifier
// that constrains the model to the intent list.
package intent

import "context"

// Intent is one of the closed set of recognized user intents.
type Intent string

const (
	Greet         Intent = "greet"
	SearchProduct Intent = "search_product"
	AddToCart     Intent = "add_to_cart"
	ViewCart      Intent = "view_cart"
	Checkout      Intent = "checkout"
	FAQ           Intent = "faq"
	Exit          Intent = "exit"
	Unknown       Intent = "unknown"
)

// All lists every recognized intent, unknown included.
var All = []Intent{Greet, SearchProduct, AddToCart, ViewCart, Checkout, FAQ, Exit, Unknown}

// Parse maps a raw string onto the intent set. Anything outside the
// set becomes Unknown; classification never fails open.
func Parse(s string) Intent {
	for _, it := range All {
		if s == string(it) {
			return it
		}
	}
	return Unknown
}

// Classifier assigns an intent to a user message.
type Classifier interface {
	Classify(ctx context.Context, message string) (Intent, error)
}
