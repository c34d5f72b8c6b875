package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// ErrDuplicateID is returned by Repository.Create when the order ID is taken.
var ErrDuplicateID = errors.New("order id already exists")

// Status is the fulfilment state shown in order history.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Order is a confirmed customer order. Amounts are rounded to the
// currency's minor unit when the order is placed.
type Order struct {
	ID                string
	SessionID         string
	Lines             []Line
	Subtotal          decimal.Decimal
	TaxAndFees        decimal.Decimal
	Total             decimal.Decimal
	Currency          currency.Unit
	Delivery          DeliveryDetails
	EstimatedDelivery string
	Status            Status
	CreatedAt         time.Time
}

// Line is one dish on a confirmed order.
type Line struct {
	ItemID    int
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// List returns up to limit orders, newest first.
	List(ctx context.Context, limit int) ([]Order, error)
}

// Notifier announces placed orders to other systems.
type Notifier interface {
	OrderPlaced(ctx context.Context, order *Order) error
}

// NopNotifier discards notifications.
type NopNotifier struct{}

// OrderPlaced implements Notifier.
func (NopNotifier) OrderPlaced(context.Context, *Order) error { return nil }
