package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/cloud-kitchen/internal/domain/order"
)

const maxHistoryLimit = 100

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if len(body) == 0 {
		h.fail(w, r, badRequest("delivery details are required", nil))
		return
	}
	req, err := decodeCheckout(body)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	delivery := req.delivery
	if req.addressID != "" {
		saved, err := h.addresses.Get(r.Context(), req.addressID)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		delivery = saved.Delivery
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		SessionID: chi.URLParam(r, "cartID"),
		Delivery:  delivery,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/orders/"+o.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// checkoutRequest carries either inline delivery details or the ID of a
// saved address. A saved address wins when both are sent.
type checkoutRequest struct {
	delivery  order.DeliveryDetails
	addressID string
}

func decodeCheckout(body []byte) (checkoutRequest, error) {
	var req checkoutRequest
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key == "addressId" {
			v, err := d.Str()
			req.addressID = v
			return err
		}
		return decodeDeliveryField(d, key, &req.delivery)
	})
	if err != nil {
		return req, badRequest("decode delivery details", err)
	}
	return req, nil
}

// decodeDeliveryField reads one delivery field into dd and skips unknown keys.
func decodeDeliveryField(d *jx.Decoder, key string, dd *order.DeliveryDetails) error {
	var err error
	switch key {
	case "fullName":
		dd.FullName, err = d.Str()
	case "address":
		dd.Address, err = d.Str()
	case "city":
		dd.City, err = d.Str()
	case "zipCode":
		dd.ZipCode, err = d.Str()
	default:
		err = d.Skip()
	}
	return err
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxHistoryLimit {
			h.fail(w, r, badRequest("limit must be between 1 and "+strconv.Itoa(maxHistoryLimit), nil))
			return
		}
		limit = n
	}

	orders, err := h.orders.History(r.Context(), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i])
			}
		})
	})
}

// reorder opens a new cart holding the lines of a past order at current menu
// prices. Dishes no longer on the menu reject the request with 422.
func (h *Handler) reorder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	lines := make([]CartLine, len(o.Lines))
	for i, l := range o.Lines {
		lines[i] = CartLine{MenuItemID: l.ItemID, Quantity: l.Quantity}
	}
	seed, err := h.buildSeed(r, lines)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	snap, err := h.carts.Open(r.Context(), seed)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/carts/"+snap.ID)
	h.writeCart(w, http.StatusCreated, snap)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	unit := o.Currency
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range o.Lines {
					e.Obj(func(e *jx.Encoder) {
						e.Field("itemId", func(e *jx.Encoder) { e.Int(l.ItemID) })
						e.Field("name", func(e *jx.Encoder) { e.Str(l.Name) })
						e.Field("unitPrice", func(e *jx.Encoder) { encodeMoney(e, l.UnitPrice, unit) })
						e.Field("quantity", func(e *jx.Encoder) { e.Int(l.Quantity) })
						e.Field("lineTotal", func(e *jx.Encoder) { encodeMoney(e, l.LineTotal, unit) })
					})
				}
			})
		})
		e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, o.Subtotal, unit) })
		e.Field("taxAndFees", func(e *jx.Encoder) { encodeMoney(e, o.TaxAndFees, unit) })
		e.Field("total", func(e *jx.Encoder) { encodeMoney(e, o.Total, unit) })
		e.Field("currency", func(e *jx.Encoder) { e.Str(unit.String()) })
		e.Field("delivery", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) { encodeDeliveryFields(e, o.Delivery) })
		})
		e.Field("estimatedDelivery", func(e *jx.Encoder) { e.Str(o.EstimatedDelivery) })
		e.Field("status", func(e *jx.Encoder) { e.Str(string(o.Status)) })
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
	})
}

func encodeDeliveryFields(e *jx.Encoder, dd order.DeliveryDetails) {
	e.Field("fullName", func(e *jx.Encoder) { e.Str(dd.FullName) })
	e.Field("address", func(e *jx.Encoder) { e.Str(dd.Address) })
	e.Field("city", func(e *jx.Encoder) { e.Str(dd.City) })
	e.Field("zipCode", func(e *jx.Encoder) { e.Str(dd.ZipCode) })
}
