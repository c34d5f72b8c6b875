package menu

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested menu item does not exist.
var ErrNotFound = errors.New("menu item not found")

// Category groups dishes on the menu.
type Category string

const (
	CategoryStarters Category = "starters"
	CategoryMains    Category = "mains"
	CategoryDesserts Category = "desserts"
)

// Categories lists categories in menu order.
var Categories = []Category{CategoryStarters, CategoryMains, CategoryDesserts}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryStarters, CategoryMains, CategoryDesserts:
		return true
	}
	return false
}

// Item is a dish available to order.
type Item struct {
	ID          int
	Name        string
	Description string
	Price       decimal.Decimal
	Category    Category
	ImageURL    string
}

// Repository defines read operations for the menu.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	ListByCategory(ctx context.Context, category Category) ([]Item, error)
	GetByID(ctx context.Context, id int) (*Item, error)
	GetByIDs(ctx context.Context, ids []int) ([]Item, error)
}
