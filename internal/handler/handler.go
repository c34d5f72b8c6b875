// Package handler serves the cart, checkout, menu, order history and saved
// address HTTP API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/text/currency"

	"github.com/xenking/cloud-kitchen/internal/domain/address"
	"github.com/xenking/cloud-kitchen/internal/domain/auth"
	"github.com/xenking/cloud-kitchen/internal/domain/cart"
	"github.com/xenking/cloud-kitchen/internal/domain/menu"
	"github.com/xenking/cloud-kitchen/internal/domain/order"
	"github.com/xenking/cloud-kitchen/internal/session"
)

// Carts is the session store as used by the API.
type Carts interface {
	Open(ctx context.Context, seed []cart.LineItem) (session.Snapshot, error)
	Get(ctx context.Context, id string) (session.Snapshot, error)
	Apply(ctx context.Context, id string, in session.Intent) (session.Snapshot, error)
}

// Orders is the order service as used by the API.
type Orders interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
	Get(ctx context.Context, id string) (*order.Order, error)
	History(ctx context.Context, limit int) ([]order.Order, error)
}

// Addresses is the address book as used by the API.
type Addresses interface {
	Save(ctx context.Context, name string, dd order.DeliveryDetails) (*address.Address, error)
	Update(ctx context.Context, id, name string, dd order.DeliveryDetails) (*address.Address, error)
	Get(ctx context.Context, id string) (*address.Address, error)
	List(ctx context.Context) ([]address.Address, error)
	Delete(ctx context.Context, id string) error
}

// CartLine requests quantity of a menu item in a new cart.
type CartLine struct {
	MenuItemID int
	Quantity   int
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// DefaultCart seeds carts opened without a body.
	DefaultCart []CartLine
	// Currency formats display strings. Defaults to USD.
	Currency currency.Unit
}

// Handler implements the HTTP API on top of the domain services.
type Handler struct {
	menu      menu.Repository
	carts     Carts
	orders    Orders
	addresses Addresses
	// authn guards checkout when set.
	authn *auth.Authenticator

	defaultCart []CartLine
	currency    currency.Unit
}

// NewHandler constructs a Handler. A nil authn leaves checkout open.
func NewHandler(
	cfg HandlerConfig,
	menuRepo menu.Repository,
	carts Carts,
	orders Orders,
	addresses Addresses,
	authn *auth.Authenticator,
) *Handler {
	if cfg.Currency == (currency.Unit{}) {
		cfg.Currency = currency.USD
	}
	return &Handler{
		menu:        menuRepo,
		carts:       carts,
		orders:      orders,
		addresses:   addresses,
		authn:       authn,
		defaultCart: cfg.DefaultCart,
		currency:    cfg.Currency,
	}
}

// Routes mounts the API on r. It is meant for r.Route("/api", h.Routes).
func (h *Handler) Routes(r chi.Router) {
	r.Route("/menu", func(r chi.Router) {
		r.Get("/", h.listMenu)
		r.Get("/{itemID}", h.getMenuItem)
	})

	r.Route("/carts", func(r chi.Router) {
		r.Post("/", h.openCart)
		r.Route("/{cartID}", func(r chi.Router) {
			r.Get("/", h.getCart)
			r.Post("/items/{itemID}/increment", h.applyIntent(session.IntentIncrement))
			r.Post("/items/{itemID}/decrement", h.applyIntent(session.IntentDecrement))
			r.Delete("/items/{itemID}", h.applyIntent(session.IntentRemove))
			r.With(h.requireAPIKey(auth.ScopeCheckout)).Post("/checkout", h.checkout)
		})
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.listOrders)
		r.Get("/{orderID}", h.getOrder)
		r.Post("/{orderID}/reorder", h.reorder)
	})

	r.Route("/addresses", func(r chi.Router) {
		r.Get("/", h.listAddresses)
		r.Post("/", h.saveAddress)
		r.Get("/{addressID}", h.getAddress)
		r.Put("/{addressID}", h.updateAddress)
		r.Delete("/{addressID}", h.deleteAddress)
	})
}

// NotFound answers unknown routes with a JSON error.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}

// MethodNotAllowed answers known routes hit with the wrong method.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
