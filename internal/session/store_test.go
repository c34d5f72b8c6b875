package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/goleak"

	"github.com/xenking/cloud-kitchen/internal/domain/cart"
)

func seed() []cart.LineItem {
	return []cart.LineItem{
		{ID: 1, Name: "Truffle Risotto", UnitPrice: decimal.RequireFromString("28.50"), Quantity: 1},
		{ID: 2, Name: "Seared Scallops", UnitPrice: decimal.RequireFromString("34.00"), Quantity: 2},
	}
}

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s, err := NewStore(cart.NewEngine(), Config{TTL: ttl}, noop.NewMeterProvider())
	require.NoError(t, err)
	return s
}

func quantity(t *testing.T, snap Snapshot, id int) int {
	t.Helper()
	it, ok := snap.State.Item(id)
	require.True(t, ok, "item %d not in cart", id)
	return it.Quantity
}

func TestOpen(t *testing.T) {
	s := newTestStore(t, time.Minute)

	snap, err := s.Open(context.Background(), seed())
	require.NoError(t, err)

	assert.NotEmpty(t, snap.ID)
	assert.Equal(t, 2, snap.State.Len())
	assert.True(t, decimal.RequireFromString("104.22").Equal(snap.Totals.Total))
	assert.Equal(t, 1, s.Len())
}

func TestOpen_RejectsDuplicateSeed(t *testing.T) {
	s := newTestStore(t, time.Minute)
	items := append(seed(), seed()[0])

	_, err := s.Open(context.Background(), items)

	var dupErr *cart.DuplicateItemError
	require.ErrorAs(t, err, &dupErr)
	assert.Equal(t, 0, s.Len())
}

func TestOpen_EmptySeed(t *testing.T) {
	s := newTestStore(t, time.Minute)

	snap, err := s.Open(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, snap.State.Empty())
	assert.True(t, snap.Totals.Total.IsZero())
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, time.Minute)
	snap, err := s.Open(ctx, seed())
	require.NoError(t, err)

	snap, err = s.Apply(ctx, snap.ID, Intent{Kind: IntentIncrement, ItemID: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, quantity(t, snap, 1))

	snap, err = s.Apply(ctx, snap.ID, Intent{Kind: IntentDecrement, ItemID: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, quantity(t, snap, 2))

	snap, err = s.Apply(ctx, snap.ID, Intent{Kind: IntentDecrement, ItemID: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, quantity(t, snap, 2), "decrement floors at one")

	snap, err = s.Apply(ctx, snap.ID, Intent{Kind: IntentRemove, ItemID: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.State.Len())

	snap, err = s.Apply(ctx, snap.ID, Intent{Kind: IntentRemove, ItemID: 99})
	require.NoError(t, err)
	assert.Equal(t, 1, snap.State.Len())

	got, err := s.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, quantity(t, got, 1))
	assert.True(t, decimal.RequireFromString("57").Equal(got.Totals.Subtotal))
}

func TestApply_InvalidIntent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, time.Minute)
	snap, err := s.Open(ctx, seed())
	require.NoError(t, err)

	_, err = s.Apply(ctx, snap.ID, Intent{Kind: "double", ItemID: 1})

	var iiErr *InvalidIntentError
	require.ErrorAs(t, err, &iiErr)
	assert.Equal(t, IntentKind("double"), iiErr.Kind)
}

func TestApply_UnknownSession(t *testing.T) {
	s := newTestStore(t, time.Minute)

	_, err := s.Apply(context.Background(), "missing", Intent{Kind: IntentIncrement, ItemID: 1})
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.Get(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApply_ConcurrentIntentsAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, time.Minute)
	snap, err := s.Open(ctx, seed())
	require.NoError(t, err)

	const workers = 50
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Apply(ctx, snap.ID, Intent{Kind: IntentIncrement, ItemID: 2})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 2+workers, quantity(t, got, 2))
}

func TestClose(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, time.Minute)
	snap, err := s.Open(ctx, seed())
	require.NoError(t, err)

	final, err := s.Close(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, final.State.Len())
	assert.Equal(t, 0, s.Len())

	_, err = s.Get(ctx, snap.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Close(ctx, snap.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckout(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, time.Minute)
	snap, err := s.Open(ctx, seed())
	require.NoError(t, err)

	var committed Snapshot
	final, err := s.Checkout(ctx, snap.ID, func(got Snapshot) error {
		committed = got
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, committed, final)
	assert.Equal(t, 0, s.Len())

	_, err = s.Get(ctx, snap.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Checkout(ctx, snap.ID, func(Snapshot) error { return nil })
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCheckout_CommitErrorKeepsSession(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, time.Minute)
	snap, err := s.Open(ctx, seed())
	require.NoError(t, err)

	errCommit := errors.New("commit failed")
	_, err = s.Checkout(ctx, snap.ID, func(Snapshot) error { return errCommit })
	require.ErrorIs(t, err, errCommit)

	got, err := s.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, quantity(t, got, 2))
	assert.Equal(t, 1, s.Len())
}

func TestCheckout_HoldsSessionDuringCommit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, time.Minute)
	snap, err := s.Open(ctx, seed())
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	checkoutDone := make(chan error, 1)
	go func() {
		_, err := s.Checkout(ctx, snap.ID, func(Snapshot) error {
			close(entered)
			<-release
			return nil
		})
		checkoutDone <- err
	}()
	<-entered

	applyDone := make(chan error, 1)
	go func() {
		_, err := s.Apply(ctx, snap.ID, Intent{Kind: IntentIncrement, ItemID: 1})
		applyDone <- err
	}()
	secondDone := make(chan error, 1)
	go func() {
		_, err := s.Checkout(ctx, snap.ID, func(Snapshot) error { return nil })
		secondDone <- err
	}()

	select {
	case <-applyDone:
		t.Fatal("intent applied while checkout held the session")
	case <-secondDone:
		t.Fatal("second checkout ran while the first held the session")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-checkoutDone)
	require.ErrorIs(t, <-applyDone, ErrNotFound)
	require.ErrorIs(t, <-secondDone, ErrNotFound)
}

func TestCheckout_EvictedDuringCommit(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, time.Minute)
	snap, err := s.Open(ctx, seed())
	require.NoError(t, err)

	other, err := s.Open(ctx, seed())
	require.NoError(t, err)

	_, err = s.Checkout(ctx, snap.ID, func(Snapshot) error {
		s.mu.Lock()
		delete(s.sessions, snap.ID)
		s.mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	_, err = s.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Len())
}

func TestEvictIdle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10*time.Minute)

	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	now := start
	s.now = func() time.Time { return now }

	stale, err := s.Open(ctx, seed())
	require.NoError(t, err)

	now = start.Add(8 * time.Minute)
	fresh, err := s.Open(ctx, seed())
	require.NoError(t, err)

	now = start.Add(11 * time.Minute)
	assert.Equal(t, 1, s.evictIdle(ctx, now))

	_, err = s.Get(ctx, stale.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = s.Get(ctx, fresh.ID)
	require.NoError(t, err)
}

func TestEvictIdle_ActivityKeepsSessionAlive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, 10*time.Minute)

	start := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	now := start
	s.now = func() time.Time { return now }

	snap, err := s.Open(ctx, seed())
	require.NoError(t, err)

	now = start.Add(9 * time.Minute)
	_, err = s.Apply(ctx, snap.ID, Intent{Kind: IntentIncrement, ItemID: 1})
	require.NoError(t, err)

	now = start.Add(15 * time.Minute)
	assert.Equal(t, 0, s.evictIdle(ctx, now))
}

func TestRun_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestStore(t, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, s.Running, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
	assert.False(t, s.Running())
}

func TestRun_EvictsInBackground(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newTestStore(t, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Open(ctx, seed())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx)
	}()

	require.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
}
