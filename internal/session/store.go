// Package session owns live carts. Every session holds exactly one cart
// state; intents on a session are applied one at a time in arrival order,
// while different sessions proceed independently.
//
// Sessions live in memory only and are destroyed on Close or after being
// idle for longer than the configured TTL.
package session

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/xenking/cloud-kitchen/internal/domain/cart"
)

// ErrNotFound is returned for unknown, closed or expired sessions.
var ErrNotFound = errors.New("cart session not found")

// InvalidIntentError indicates an intent kind the store does not know.
type InvalidIntentError struct {
	Kind IntentKind
}

func (e *InvalidIntentError) Error() string {
	return "invalid cart intent " + string(e.Kind)
}

// IntentKind names a user action forwarded by the front-end.
type IntentKind string

const (
	IntentIncrement IntentKind = "increment"
	IntentDecrement IntentKind = "decrement"
	IntentRemove    IntentKind = "remove"
)

// Intent is one user action against one line item.
type Intent struct {
	Kind   IntentKind
	ItemID int
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID     string
	State  cart.State
	Totals cart.Totals
}

// Config controls session lifetime.
type Config struct {
	// TTL is how long a session may stay idle before it is evicted.
	TTL time.Duration
}

type session struct {
	mu     sync.Mutex
	state  cart.State
	closed bool

	// lastSeen is unix nanos, read by the janitor without taking mu.
	lastSeen atomic.Int64
}

// Store holds all live sessions.
type Store struct {
	engine *cart.Engine
	ttl    time.Duration
	now    func() time.Time
	newID  func() string

	mu       sync.RWMutex
	sessions map[string]*session

	running atomic.Bool

	intents metric.Int64Counter
	live    metric.Int64UpDownCounter
}

// NewStore creates a Store that applies intents with engine.
func NewStore(engine *cart.Engine, cfg Config, mp metric.MeterProvider) (*Store, error) {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}

	meter := mp.Meter("github.com/xenking/cloud-kitchen/internal/session")
	intents, err := meter.Int64Counter("kitchen.cart.intents",
		metric.WithDescription("Cart intents applied to sessions"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create intents counter")
	}
	live, err := meter.Int64UpDownCounter("kitchen.cart.sessions",
		metric.WithDescription("Live cart sessions"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create sessions counter")
	}

	return &Store{
		engine:   engine,
		ttl:      cfg.TTL,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		sessions: make(map[string]*session),
		intents:  intents,
		live:     live,
	}, nil
}

// Engine returns the engine used to apply intents.
func (s *Store) Engine() *cart.Engine { return s.engine }

// Open starts a session seeded with items.
func (s *Store) Open(ctx context.Context, seed []cart.LineItem) (Snapshot, error) {
	if err := cart.ValidateSeed(seed); err != nil {
		return Snapshot{}, err
	}

	sess := &session{state: s.engine.Initialize(seed)}
	sess.lastSeen.Store(s.now().UnixNano())
	id := s.newID()

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	s.live.Add(ctx, 1)
	zctx.From(ctx).Debug("Cart session opened",
		zap.String("session_id", id),
		zap.Int("items", len(seed)),
	)
	return s.snapshot(id, sess.state), nil
}

// Get returns the current state of a session.
func (s *Store) Get(_ context.Context, id string) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return Snapshot{}, ErrNotFound
	}
	sess.lastSeen.Store(s.now().UnixNano())
	return s.snapshot(id, sess.state), nil
}

// Apply runs one intent against a session. An item id that is not in the
// cart leaves it unchanged.
func (s *Store) Apply(ctx context.Context, id string, in Intent) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return Snapshot{}, ErrNotFound
	}

	switch in.Kind {
	case IntentIncrement:
		sess.state = s.engine.ChangeQuantity(sess.state, in.ItemID, 1)
	case IntentDecrement:
		sess.state = s.engine.ChangeQuantity(sess.state, in.ItemID, -1)
	case IntentRemove:
		sess.state = s.engine.RemoveItem(sess.state, in.ItemID)
	default:
		return Snapshot{}, &InvalidIntentError{Kind: in.Kind}
	}
	sess.lastSeen.Store(s.now().UnixNano())

	s.intents.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", string(in.Kind))))
	return s.snapshot(id, sess.state), nil
}

// Close ends a session and returns its final state. The cart is gone
// afterwards.
func (s *Store) Close(ctx context.Context, id string) (Snapshot, error) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return Snapshot{}, ErrNotFound
	}

	// Waits for an in-flight Apply to finish.
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.closed = true

	s.live.Add(ctx, -1)
	return s.snapshot(id, sess.state), nil
}

// Checkout hands the current state of a session to commit while holding the
// session, so no intent can land between the read and the end of the
// session. The session is destroyed only when commit succeeds; otherwise it
// stays open unchanged and commit's error is returned.
func (s *Store) Checkout(ctx context.Context, id string, commit func(Snapshot) error) (Snapshot, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return Snapshot{}, ErrNotFound
	}
	sess.lastSeen.Store(s.now().UnixNano())

	snap := s.snapshot(id, sess.state)
	if err := commit(snap); err != nil {
		return Snapshot{}, err
	}
	sess.closed = true

	s.mu.Lock()
	// The janitor may have evicted the session while commit ran.
	owned := s.sessions[id] == sess
	if owned {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if owned {
		s.live.Add(ctx, -1)
	}
	return snap, nil
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Running reports whether the janitor loop is active.
func (s *Store) Running() bool { return s.running.Load() }

// Run evicts idle sessions every TTL/2 until ctx is cancelled.
func (s *Store) Run(ctx context.Context) error {
	s.running.Store(true)
	defer s.running.Store(false)

	ticker := time.NewTicker(s.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := s.evictIdle(ctx, s.now()); n > 0 {
				zctx.From(ctx).Info("Evicted idle cart sessions", zap.Int("count", n))
			}
		}
	}
}

// evictIdle removes sessions idle for longer than the TTL at now.
func (s *Store) evictIdle(ctx context.Context, now time.Time) int {
	cutoff := now.Add(-s.ttl).UnixNano()

	var evicted []*session
	s.mu.Lock()
	for id, sess := range s.sessions {
		if sess.lastSeen.Load() < cutoff {
			delete(s.sessions, id)
			evicted = append(evicted, sess)
		}
	}
	s.mu.Unlock()

	for _, sess := range evicted {
		sess.mu.Lock()
		sess.closed = true
		sess.mu.Unlock()
	}
	if len(evicted) > 0 {
		s.live.Add(ctx, -int64(len(evicted)))
	}
	return len(evicted)
}

func (s *Store) lookup(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

func (s *Store) snapshot(id string, st cart.State) Snapshot {
	return Snapshot{
		ID:     id,
		State:  st,
		Totals: s.engine.ComputeTotals(st),
	}
}
