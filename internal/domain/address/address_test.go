package address_test

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cloud-kitchen/internal/domain/address"
	"github.com/xenking/cloud-kitchen/internal/domain/order"
	"github.com/xenking/cloud-kitchen/internal/storage/memory"
)

var home = order.DeliveryDetails{
	FullName: "Ada Lovelace",
	Address:  "123 Velvet Lane",
	City:     "London",
	ZipCode:  "12345",
}

func TestBook_SaveAndList(t *testing.T) {
	ctx := context.Background()
	book := address.NewBook(memory.NewAddressRepository())

	first, err := book.Save(ctx, " Home ", order.DeliveryDetails{
		FullName: " Ada Lovelace",
		Address:  "123 Velvet Lane ",
		City:     "London",
		ZipCode:  "12345",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)
	assert.Equal(t, "Home", first.Name)
	assert.Equal(t, home, first.Delivery)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := book.Save(ctx, "Work", home)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	list, err := book.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	got, err := book.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, *first, *got)
}

func TestBook_Validation(t *testing.T) {
	book := address.NewBook(memory.NewAddressRepository())

	tests := []struct {
		name       string
		label      string
		delivery   order.DeliveryDetails
		wantFields []string
	}{
		{name: "missing name", label: "  ", delivery: home, wantFields: []string{"name"}},
		{name: "long name", label: "a very long name that goes past forty chars", delivery: home, wantFields: []string{"name"}},
		{name: "bad delivery", label: "Home", delivery: order.DeliveryDetails{FullName: "A", Address: "1", City: "L", ZipCode: "x"}, wantFields: []string{"address", "city", "fullName", "zipCode"}},
		{name: "both", label: "", delivery: order.DeliveryDetails{}, wantFields: []string{"address", "city", "fullName", "name", "zipCode"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := book.Save(context.Background(), tt.label, tt.delivery)

			var vErr *order.ValidationError
			require.ErrorAs(t, err, &vErr)
			fields := make([]string, 0, len(vErr.Fields))
			for f := range vErr.Fields {
				fields = append(fields, f)
			}
			assert.ElementsMatch(t, tt.wantFields, fields)
		})
	}

	list, err := book.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestBook_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	book := address.NewBook(memory.NewAddressRepository())

	saved, err := book.Save(ctx, "Home", home)
	require.NoError(t, err)

	moved := home
	moved.Address = "456 Tech Avenue"
	updated, err := book.Update(ctx, saved.ID, "Work", moved)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, updated.ID)
	assert.Equal(t, "Work", updated.Name)
	assert.True(t, saved.CreatedAt.Equal(updated.CreatedAt))

	got, err := book.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, "456 Tech Avenue", got.Delivery.Address)

	_, err = book.Update(ctx, saved.ID, "", moved)
	var vErr *order.ValidationError
	require.ErrorAs(t, err, &vErr)

	require.NoError(t, book.Delete(ctx, saved.ID))
	require.ErrorIs(t, book.Delete(ctx, saved.ID), address.ErrNotFound)

	_, err = book.Get(ctx, saved.ID)
	require.ErrorIs(t, err, address.ErrNotFound)
	_, err = book.Update(ctx, saved.ID, "Work", moved)
	require.ErrorIs(t, err, address.ErrNotFound)
}

type failingRepo struct{ address.Repository }

func (failingRepo) Create(context.Context, *address.Address) error {
	return errors.New("disk full")
}

func TestBook_SaveError(t *testing.T) {
	_, err := address.NewBook(failingRepo{}).Save(context.Background(), "Home", home)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create address")
}
