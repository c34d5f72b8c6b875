package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/xenking/cloud-kitchen/internal/domain/order"
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository keeps orders in insertion order.
type OrderRepository struct {
	mu     sync.RWMutex
	orders []order.Order
	byID   map[string]int
}

// NewOrderRepository returns an empty OrderRepository.
func NewOrderRepository() *OrderRepository {
	return &OrderRepository{byID: make(map[string]int)}
}

// Create stores a copy of o. IDs must be unique.
func (r *OrderRepository) Create(_ context.Context, o *order.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[o.ID]; ok {
		return fmt.Errorf("creating order %q: %w", o.ID, order.ErrDuplicateID)
	}
	stored := *o
	stored.Lines = slices.Clone(o.Lines)

	r.byID[o.ID] = len(r.orders)
	r.orders = append(r.orders, stored)
	return nil
}

// Get returns a copy of the order with the given ID.
func (r *OrderRepository) Get(_ context.Context, id string) (*order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.byID[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	o := r.orders[i]
	o.Lines = slices.Clone(o.Lines)
	return &o, nil
}

// List returns up to limit orders, newest first.
func (r *OrderRepository) List(_ context.Context, limit int) ([]order.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := min(limit, len(r.orders))
	out := make([]order.Order, 0, n)
	for i := len(r.orders) - 1; i >= 0 && len(out) < n; i-- {
		o := r.orders[i]
		o.Lines = slices.Clone(o.Lines)
		out = append(out, o)
	}
	return out, nil
}
