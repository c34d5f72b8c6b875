package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cloud-kitchen/internal/domain/address"
	"github.com/xenking/cloud-kitchen/internal/domain/auth"
	"github.com/xenking/cloud-kitchen/internal/domain/menu"
	"github.com/xenking/cloud-kitchen/internal/domain/order"
)

func testMenu() []menu.Item {
	return []menu.Item{
		{ID: 3, Name: "Lava Cake", Price: decimal.RequireFromString("15.00"), Category: menu.CategoryDesserts},
		{ID: 1, Name: "Truffle Risotto", Price: decimal.RequireFromString("28.50"), Category: menu.CategoryMains},
		{ID: 4, Name: "Burrata", Price: decimal.RequireFromString("18.00"), Category: menu.CategoryStarters},
		{ID: 2, Name: "Seared Scallops", Price: decimal.RequireFromString("34.00"), Category: menu.CategoryMains},
	}
}

func TestMenuRepository(t *testing.T) {
	ctx := context.Background()
	src := testMenu()
	r := NewMenuRepository(src)

	all, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, it := range all {
		assert.Equal(t, i+1, it.ID)
	}

	all[0].Name = "mutated"
	again, _ := r.List(ctx)
	assert.Equal(t, "Truffle Risotto", again[0].Name)

	mains, err := r.ListByCategory(ctx, menu.CategoryMains)
	require.NoError(t, err)
	require.Len(t, mains, 2)
	assert.Equal(t, 1, mains[0].ID)

	it, err := r.GetByID(ctx, 4)
	require.NoError(t, err)
	assert.Equal(t, "Burrata", it.Name)

	_, err = r.GetByID(ctx, 42)
	require.ErrorIs(t, err, menu.ErrNotFound)

	some, err := r.GetByIDs(ctx, []int{3, 42, 1, 3})
	require.NoError(t, err)
	require.Len(t, some, 2)
	assert.Equal(t, 1, some[0].ID)
	assert.Equal(t, 3, some[1].ID)
}

func TestOrderRepository(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()

	for i := 1; i <= 3; i++ {
		require.NoError(t, r.Create(ctx, &order.Order{
			ID:        fmt.Sprintf("CKL-2024-0000%d", i),
			Lines:     []order.Line{{ItemID: i, Quantity: 1}},
			CreatedAt: time.Now(),
		}))
	}
	require.ErrorIs(t, r.Create(ctx, &order.Order{ID: "CKL-2024-00001"}), order.ErrDuplicateID)

	got, err := r.Get(ctx, "CKL-2024-00002")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Lines[0].ItemID)

	got.Lines[0].ItemID = 99
	again, _ := r.Get(ctx, "CKL-2024-00002")
	assert.Equal(t, 2, again.Lines[0].ItemID)

	_, err = r.Get(ctx, "missing")
	require.ErrorIs(t, err, order.ErrNotFound)

	list, err := r.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "CKL-2024-00003", list[0].ID)
	assert.Equal(t, "CKL-2024-00002", list[1].ID)

	list, err = r.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestOrderRepository_Concurrent(t *testing.T) {
	ctx := context.Background()
	r := NewOrderRepository()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.Create(ctx, &order.Order{ID: fmt.Sprintf("CKL-2024-%05d", i)})
			_, _ = r.List(ctx, 5)
		}()
	}
	wg.Wait()

	list, err := r.List(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, list, 20)
}

func TestAddressRepository(t *testing.T) {
	ctx := context.Background()
	r := NewAddressRepository()
	base := time.Date(2024, 7, 15, 18, 30, 0, 0, time.UTC)

	work := &address.Address{ID: "b", Name: "Work", CreatedAt: base.Add(time.Minute)}
	home := &address.Address{ID: "a", Name: "Home", CreatedAt: base}
	require.NoError(t, r.Create(ctx, work))
	require.NoError(t, r.Create(ctx, home))
	require.Error(t, r.Create(ctx, &address.Address{ID: "a"}))

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Home", list[0].Name)
	assert.Equal(t, "Work", list[1].Name)

	upd := &address.Address{ID: "a", Name: "Flat", Delivery: order.DeliveryDetails{City: "Paris"}}
	require.NoError(t, r.Update(ctx, upd))
	assert.True(t, base.Equal(upd.CreatedAt))

	got, err := r.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Flat", got.Name)
	assert.Equal(t, "Paris", got.Delivery.City)

	require.ErrorIs(t, r.Update(ctx, &address.Address{ID: "zzz"}), address.ErrNotFound)
	require.NoError(t, r.Delete(ctx, "a"))
	require.ErrorIs(t, r.Delete(ctx, "a"), address.ErrNotFound)
	_, err = r.Get(ctx, "a")
	require.ErrorIs(t, err, address.ErrNotFound)
}

func TestAPIKeyRepository(t *testing.T) {
	pepper := []byte("pepper")
	r := NewAPIKeyRepository(auth.APIKeyInfo{
		ID:      "frontend",
		KeyHash: auth.HashKey(pepper, "secret"),
		Scopes:  []string{auth.ScopeCheckout},
	})
	a := auth.NewAuthenticator(r, pepper)

	info, err := a.Authenticate(context.Background(), "secret", auth.ScopeCheckout)
	require.NoError(t, err)
	assert.Equal(t, "frontend", info.ID)

	_, err = a.Authenticate(context.Background(), "other", auth.ScopeCheckout)
	require.ErrorIs(t, err, auth.ErrUnauthorized)
}
