// Package address keeps a customer's saved delivery addresses so checkout
// can reuse them by ID.
package address

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/xenking/cloud-kitchen/internal/domain/order"
)

// ErrNotFound is returned when a saved address does not exist.
var ErrNotFound = errors.New("address not found")

const maxNameLen = 40

// Address is a named, saved set of delivery details such as "Home".
type Address struct {
	ID        string
	Name      string
	Delivery  order.DeliveryDetails
	CreatedAt time.Time
}

// Repository defines persistence operations for saved addresses.
type Repository interface {
	Create(ctx context.Context, a *Address) error
	Get(ctx context.Context, id string) (*Address, error)
	// List returns all addresses, oldest first.
	List(ctx context.Context) ([]Address, error)
	// Update replaces name and delivery details, keeping ID and CreatedAt.
	Update(ctx context.Context, a *Address) error
	Delete(ctx context.Context, id string) error
}

// Book validates addresses before they reach the repository.
type Book struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

// NewBook creates a Book on top of repo.
func NewBook(repo Repository) *Book {
	return &Book{
		repo:  repo,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Save stores a new address and returns it with ID and CreatedAt set.
func (b *Book) Save(ctx context.Context, name string, dd order.DeliveryDetails) (*Address, error) {
	a, err := normalize(name, dd)
	if err != nil {
		return nil, err
	}
	a.ID = b.newID()
	a.CreatedAt = b.now().UTC().Truncate(time.Microsecond)
	if err := b.repo.Create(ctx, a); err != nil {
		return nil, errors.Wrap(err, "create address")
	}
	return a, nil
}

// Update replaces the name and delivery details of an existing address.
func (b *Book) Update(ctx context.Context, id, name string, dd order.DeliveryDetails) (*Address, error) {
	a, err := normalize(name, dd)
	if err != nil {
		return nil, err
	}
	a.ID = id
	if err := b.repo.Update(ctx, a); err != nil {
		return nil, errors.Wrap(err, "update address")
	}
	return a, nil
}

// Get returns one saved address.
func (b *Book) Get(ctx context.Context, id string) (*Address, error) {
	a, err := b.repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get address")
	}
	return a, nil
}

// List returns every saved address, oldest first.
func (b *Book) List(ctx context.Context) ([]Address, error) {
	list, err := b.repo.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list addresses")
	}
	return list, nil
}

// Delete removes a saved address. Orders already placed keep their copy.
func (b *Book) Delete(ctx context.Context, id string) error {
	if err := b.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "delete address")
	}
	return nil
}

// normalize trims input and validates it with the checkout rules plus a
// required name. Every invalid field is reported in one *order.ValidationError.
func normalize(name string, dd order.DeliveryDetails) (*Address, error) {
	a := &Address{
		Name:     strings.TrimSpace(name),
		Delivery: dd.Normalize(),
	}

	fields := make(map[string]string)
	var vErr *order.ValidationError
	if err := a.Delivery.Validate(); errors.As(err, &vErr) {
		fields = vErr.Fields
	}
	if n := utf8.RuneCountInString(a.Name); n == 0 || n > maxNameLen {
		fields["name"] = "Please enter a name of up to 40 characters."
	}
	if len(fields) > 0 {
		return nil, &order.ValidationError{Fields: fields}
	}
	return a, nil
}
