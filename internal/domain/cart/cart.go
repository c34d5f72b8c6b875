// Package cart implements the order cart engine: an ordered set of line
// items and the monetary totals derived from it.
//
// State values are immutable. Every operation returns a new State and leaves
// its input untouched, so a caller can keep an old State around and compare.
package cart

import (
	"github.com/shopspring/decimal"
)

// minQuantity is the floor applied by ChangeQuantity.
const minQuantity = 1

// DefaultTaxRate is the combined tax and fees rate applied to the subtotal.
var DefaultTaxRate = decimal.RequireFromString("0.08")

// LineItem is one product entry in the cart.
type LineItem struct {
	ID        int
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	// ImageRef is passed through to presentation untouched.
	ImageRef string
}

// LineTotal returns UnitPrice * Quantity at full precision.
func (i LineItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// State is an ordered sequence of line items.
type State struct {
	items []LineItem
}

// Items returns a copy of the line items in cart order.
func (s State) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns the number of line items.
func (s State) Len() int { return len(s.items) }

// Empty reports whether the cart holds no items.
func (s State) Empty() bool { return len(s.items) == 0 }

// Item returns the first line item with the given id.
func (s State) Item(id int) (LineItem, bool) {
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return LineItem{}, false
}

// Quantity returns the total number of units across all line items.
func (s State) Quantity() int {
	n := 0
	for _, it := range s.items {
		n += it.Quantity
	}
	return n
}

func (s State) has(id int) bool {
	_, ok := s.Item(id)
	return ok
}

// Totals holds the figures derived from a State. They are never stored;
// call Engine.ComputeTotals again after every mutation.
type Totals struct {
	Subtotal   decimal.Decimal
	TaxAndFees decimal.Decimal
	Total      decimal.Decimal
}

// Engine applies cart intents and derives totals at a fixed tax rate.
type Engine struct {
	taxRate decimal.Decimal
}

// Option configures an Engine.
type Option func(*Engine)

// WithTaxRate overrides DefaultTaxRate.
func WithTaxRate(rate decimal.Decimal) Option {
	return func(e *Engine) {
		e.taxRate = rate
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{taxRate: DefaultTaxRate}
	for _, o := range opts {
		o(e)
	}
	return e
}

// TaxRate returns the rate used by ComputeTotals.
func (e *Engine) TaxRate() decimal.Decimal { return e.taxRate }

// Initialize builds a State from a seed list. The seed is copied as given:
// duplicate ids are neither merged nor rejected here (see ValidateSeed).
func (e *Engine) Initialize(items []LineItem) State {
	out := make([]LineItem, len(items))
	copy(out, items)
	return State{items: out}
}

// ChangeQuantity adds delta to the quantity of the item with the given id,
// flooring the result at 1. A missing id returns s unchanged.
//
// Decrementing never deletes an item; only RemoveItem does.
func (e *Engine) ChangeQuantity(s State, id, delta int) State {
	if !s.has(id) {
		return s
	}

	next := make([]LineItem, len(s.items))
	for i, it := range s.items {
		if it.ID == id {
			it.Quantity = max(minQuantity, it.Quantity+delta)
		}
		next[i] = it
	}

	// The floor above already keeps quantities positive. This pass holds the
	// quantity >= 1 invariant independently of the floor value.
	return State{items: dropNonPositive(next)}
}

// RemoveItem deletes the item with the given id. A missing id returns s
// unchanged.
func (e *Engine) RemoveItem(s State, id int) State {
	if !s.has(id) {
		return s
	}

	next := make([]LineItem, 0, len(s.items)-1)
	for _, it := range s.items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	return State{items: next}
}

// ComputeTotals derives subtotal, tax and fees, and total from s. No
// rounding is applied; round only when formatting for display.
func (e *Engine) ComputeTotals(s State) Totals {
	subtotal := decimal.Zero
	for _, it := range s.items {
		subtotal = subtotal.Add(it.LineTotal())
	}
	tax := subtotal.Mul(e.taxRate)

	return Totals{
		Subtotal:   subtotal,
		TaxAndFees: tax,
		Total:      subtotal.Add(tax),
	}
}

func dropNonPositive(items []LineItem) []LineItem {
	out := items[:0]
	for _, it := range items {
		if it.Quantity > 0 {
			out = append(out, it)
		}
	}
	return out
}
