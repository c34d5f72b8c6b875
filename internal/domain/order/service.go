package order

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/xenking/cloud-kitchen/internal/session"
	"github.com/xenking/cloud-kitchen/pkg/money"
)

// ErrEmptyCart is returned when checking out a cart with no items.
var ErrEmptyCart = errors.New("cart is empty")

// DefaultEstimatedDelivery is shown on the confirmation when not configured.
const DefaultEstimatedDelivery = "30-45 minutes"

// maxIDAttempts bounds retries when a generated order ID is already taken.
const maxIDAttempts = 3

// Carts is the subset of the session store used at checkout.
type Carts interface {
	// Checkout runs commit on the session's state while holding the session
	// and ends the session only if commit succeeds.
	Checkout(ctx context.Context, id string, commit func(session.Snapshot) error) (session.Snapshot, error)
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	SessionID string
	Delivery  DeliveryDetails
}

// ServiceConfig holds non-dependency settings for the Service.
type ServiceConfig struct {
	Currency          currency.Unit
	EstimatedDelivery string
}

// Service turns cart sessions into confirmed orders.
type Service struct {
	carts    Carts
	orders   Repository
	notifier Notifier
	tracer   trace.Tracer

	currency          currency.Unit
	estimatedDelivery string

	now   func() time.Time
	newID func(time.Time) string
}

// NewService creates an order Service.
func NewService(
	cfg ServiceConfig,
	carts Carts,
	orders Repository,
	notifier Notifier,
	tp trace.TracerProvider,
) *Service {
	if cfg.Currency == (currency.Unit{}) {
		cfg.Currency = currency.USD
	}
	if cfg.EstimatedDelivery == "" {
		cfg.EstimatedDelivery = DefaultEstimatedDelivery
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Service{
		carts:             carts,
		orders:            orders,
		notifier:          notifier,
		tracer:            tp.Tracer("github.com/xenking/cloud-kitchen/internal/domain/order"),
		currency:          cfg.Currency,
		estimatedDelivery: cfg.EstimatedDelivery,
		now:               time.Now,
		newID:             newOrderID,
	}
}

// PlaceOrder validates delivery details, converts the session's cart into an
// order, persists it and ends the session.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("session.id", req.SessionID)),
	)
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	delivery := req.Delivery.Normalize()
	if err := delivery.Validate(); err != nil {
		return nil, err
	}

	var o *Order
	snap, err := s.carts.Checkout(ctx, req.SessionID, func(snap session.Snapshot) error {
		if snap.State.Empty() {
			return ErrEmptyCart
		}
		o = s.newOrder(snap, delivery)
		span.SetAttributes(attribute.String("order.id", o.ID))
		return s.create(ctx, o)
	})
	switch {
	case errors.Is(err, ErrEmptyCart):
		return nil, ErrEmptyCart
	case err != nil:
		return nil, errors.Wrap(err, "checkout cart")
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID), zap.String("session_id", snap.ID))
	if err := s.notifier.OrderPlaced(ctx, o); err != nil {
		lg.Error("Publish order placed", zap.Error(err))
	}

	lg.Info("Order placed",
		zap.String("total", money.Format(o.Total, o.Currency)),
		zap.Int("lines", len(o.Lines)),
	)
	return o, nil
}

// newOrder builds an order from a cart snapshot, rounding totals to the
// currency's standard scale.
func (s *Service) newOrder(snap session.Snapshot, delivery DeliveryDetails) *Order {
	now := s.now()
	items := snap.State.Items()
	lines := make([]Line, len(items))
	for i, it := range items {
		lines[i] = Line{
			ItemID:    it.ID,
			Name:      it.Name,
			UnitPrice: it.UnitPrice,
			Quantity:  it.Quantity,
			LineTotal: money.Round(it.LineTotal(), s.currency),
		}
	}

	return &Order{
		ID:                s.newID(now),
		SessionID:         snap.ID,
		Lines:             lines,
		Subtotal:          money.Round(snap.Totals.Subtotal, s.currency),
		TaxAndFees:        money.Round(snap.Totals.TaxAndFees, s.currency),
		Total:             money.Round(snap.Totals.Total, s.currency),
		Currency:          s.currency,
		Delivery:          delivery,
		EstimatedDelivery: s.estimatedDelivery,
		Status:            StatusProcessing,
		CreatedAt:         now,
	}
}

// create persists o, drawing a fresh ID when the generated one is taken.
func (s *Service) create(ctx context.Context, o *Order) error {
	for attempt := 1; ; attempt++ {
		err := s.orders.Create(ctx, o)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateID) || attempt == maxIDAttempts {
			return fmt.Errorf("create order: %w", err)
		}
		zctx.From(ctx).Warn("Order ID collision, retrying", zap.String("order_id", o.ID))
		o.ID = s.newID(o.CreatedAt)
	}
}

// Get returns a placed order by ID.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	o, err := s.orders.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// History returns up to limit orders, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 20
	}
	orders, err := s.orders.List(ctx, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// newOrderID returns an id such as "CKL-2024-8A3D4F01".
func newOrderID(now time.Time) string {
	id := uuid.New()
	suffix := strings.ToUpper(hex.EncodeToString(id[:])[:8])
	return fmt.Sprintf("CKL-%d-%s", now.Year(), suffix)
}
