package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/xenking/cloud-kitchen/internal/domain/address"
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository keeps saved addresses in a map keyed by ID.
type AddressRepository struct {
	mu   sync.RWMutex
	byID map[string]address.Address
}

// NewAddressRepository returns an empty AddressRepository.
func NewAddressRepository() *AddressRepository {
	return &AddressRepository{byID: make(map[string]address.Address)}
}

// Create stores a copy of a. IDs must be unique.
func (r *AddressRepository) Create(_ context.Context, a *address.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[a.ID]; ok {
		return fmt.Errorf("creating address %q: already exists", a.ID)
	}
	r.byID[a.ID] = *a
	return nil
}

// Get returns a copy of the address with the given ID.
func (r *AddressRepository) Get(_ context.Context, id string) (*address.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, address.ErrNotFound
	}
	return &a, nil
}

// List returns all addresses, oldest first.
func (r *AddressRepository) List(_ context.Context) ([]address.Address, error) {
	r.mu.RLock()
	out := make([]address.Address, 0, len(r.byID))
	for _, a := range r.byID {
		out = append(out, a)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b address.Address) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// Update replaces name and delivery details, filling a.CreatedAt from the
// stored address.
func (r *AddressRepository) Update(_ context.Context, a *address.Address) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[a.ID]
	if !ok {
		return address.ErrNotFound
	}
	stored.Name = a.Name
	stored.Delivery = a.Delivery
	r.byID[a.ID] = stored
	a.CreatedAt = stored.CreatedAt
	return nil
}

// Delete removes the address with the given ID.
func (r *AddressRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return address.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}
