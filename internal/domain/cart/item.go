package cart

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// InvalidItemError indicates a line item that cannot enter a cart.
type InvalidItemError struct {
	ID     int
	Reason string
}

func (e *InvalidItemError) Error() string {
	return fmt.Sprintf("invalid line item %d: %s", e.ID, e.Reason)
}

// DuplicateItemError indicates a seed list that carries the same id twice.
type DuplicateItemError struct {
	ID int
}

func (e *DuplicateItemError) Error() string {
	return fmt.Sprintf("duplicate line item %d", e.ID)
}

// NewLineItem validates and builds a LineItem. Callers construct items once
// at the boundary; the engine itself trusts what it is given.
func NewLineItem(id int, name string, price decimal.Decimal, quantity int, imageRef string) (LineItem, error) {
	name = strings.TrimSpace(name)
	switch {
	case id <= 0:
		return LineItem{}, &InvalidItemError{ID: id, Reason: "id must be positive"}
	case name == "":
		return LineItem{}, &InvalidItemError{ID: id, Reason: "name is required"}
	case price.IsNegative():
		return LineItem{}, &InvalidItemError{ID: id, Reason: "unit price must not be negative"}
	case quantity < minQuantity:
		return LineItem{}, &InvalidItemError{ID: id, Reason: "quantity must be at least 1"}
	}

	return LineItem{
		ID:        id,
		Name:      name,
		UnitPrice: price,
		Quantity:  quantity,
		ImageRef:  imageRef,
	}, nil
}

// ValidateSeed checks that every item is well formed and ids are unique.
func ValidateSeed(items []LineItem) error {
	seen := make(map[int]struct{}, len(items))
	for _, it := range items {
		if _, err := NewLineItem(it.ID, it.Name, it.UnitPrice, it.Quantity, it.ImageRef); err != nil {
			return err
		}
		if _, ok := seen[it.ID]; ok {
			return &DuplicateItemError{ID: it.ID}
		}
		seen[it.ID] = struct{}{}
	}
	return nil
}
