package dialog

// State is a dialogue state. A session rests in one of the stable
// states between turns; the transient states are visited while a
// single turn is handled and appear in the turn's path.
type State string

const (
	StateStart         State = "start"
	StateIdle          State = "idle"
	StateProductSearch State = "product_search"
	StateConfirmBuy    State = "confirm_buy"
	StateAddToCart     State = "add_to_cart"
	StateGetName       State = "get_name"
	StateGetPhone      State = "get_phone"
	StateGetAddress    State = "get_address"
	StateCheckout      State = "checkout"
	StateFAQ           State = "faq"
	StateEnd           State = "end"
)

// Terminal reports whether the state accepts no further input.
func (s State) Terminal() bool {
	return s == StateEnd
}

// Collecting reports whether the state consumes the next input as a
// field of the in-progress flow instead of routing it by intent.
// Intent routing never hijacks a collection mid-flow.
func (s State) Collecting() bool {
	switch s {
	case StateConfirmBuy, StateGetName, StateGetPhone, StateGetAddress:
		return true
	default:
		return false
	}
}
