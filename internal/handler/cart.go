package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/cloud-kitchen/internal/domain/cart"
	"github.com/xenking/cloud-kitchen/internal/session"
)

// UnknownMenuItemError is returned when a cart is opened with an item that
// is not on the menu.
type UnknownMenuItemError struct {
	ID int
}

func (e *UnknownMenuItemError) Error() string {
	return fmt.Sprintf("menu item %d not found", e.ID)
}

func (h *Handler) openCart(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	lines := h.defaultCart
	if len(body) > 0 {
		requested, ok, err := decodeCartLines(body)
		if err != nil {
			h.fail(w, r, err)
			return
		}
		if ok {
			lines = requested
		}
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

// buildSeed resolves requested lines against the menu, keeping their order.
func (h *Handler) buildSeed(r *http.Request, lines []CartLine) ([]cart.LineItem, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	ids := make([]int, len(lines))
	for i, l := range lines {
		ids[i] = l.MenuItemID
	}
	items, err := h.menu.GetByIDs(r.Context(), ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]int, len(items))
	for i, it := range items {
		byID[it.ID] = i
	}

	seed := make([]cart.LineItem, 0, len(lines))
	for _, l := range lines {
		i, ok := byID[l.MenuItemID]
		if !ok {
			return nil, &UnknownMenuItemError{ID: l.MenuItemID}
		}
		it := items[i]
		li, err := cart.NewLineItem(it.ID, it.Name, it.Price, l.Quantity, it.ImageURL)
		if err != nil {
			return nil, err
		}
		seed = append(seed, li)
	}
	return seed, nil
}

// decodeCartLines reads {"items": [...]}. ok is false when the body has no
// items key, in which case the caller falls back to the default cart.
func decodeCartLines(body []byte) (lines []CartLine, ok bool, err error) {
	d := jx.DecodeBytes(body)
	err = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "items" {
			return d.Skip()
		}
		ok = true
		return d.Arr(func(d *jx.Decoder) error {
			var l CartLine
			if err := d.Obj(func(d *jx.Decoder, key string) error {
				var err error
				switch key {
				case "menuItemId":
					l.MenuItemID, err = d.Int()
				case "quantity":
					l.Quantity, err = d.Int()
				default:
					err = d.Skip()
				}
				return err
			}); err != nil {
				return err
			}
			lines = append(lines, l)
			return nil
		})
	})
	if err != nil {
		return nil, false, badRequest("decode cart", err)
	}
	return lines, ok, nil
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	snap, err := h.carts.Get(r.Context(), chi.URLParam(r, "cartID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeCart(w, http.StatusOK, snap)
}

func (h *Handler) applyIntent(kind session.IntentKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := intParam(r, "itemID")
		if err != nil {
			h.fail(w, r, err)
			return
		}
		snap, err := h.carts.Apply(r.Context(), chi.URLParam(r, "cartID"), session.Intent{
			Kind:   kind,
			ItemID: itemID,
		})
		if err != nil {
			h.fail(w, r, err)
			return
		}
		h.writeCart(w, http.StatusOK, snap)
	}
}

// writeCart renders a session snapshot as the cart view.
func (h *Handler) writeCart(w http.ResponseWriter, status int, snap session.Snapshot) {
	items := snap.State.Items()
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("id", func(e *jx.Encoder) { e.Str(snap.ID) })
			e.Field("items", func(e *jx.Encoder) {
				e.Arr(func(e *jx.Encoder) {
					for _, it := range items {
						e.Obj(func(e *jx.Encoder) {
							e.Field("id", func(e *jx.Encoder) { e.Int(it.ID) })
							e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
							e.Field("unitPrice", func(e *jx.Encoder) { encodeMoney(e, it.UnitPrice, h.currency) })
							e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
							e.Field("imageRef", func(e *jx.Encoder) { e.Str(it.ImageRef) })
							e.Field("lineTotal", func(e *jx.Encoder) { encodeMoney(e, it.LineTotal(), h.currency) })
						})
					}
				})
			})
			e.Field("itemCount", func(e *jx.Encoder) { e.Int(snap.State.Quantity()) })
			e.Field("empty", func(e *jx.Encoder) { e.Bool(snap.State.Empty()) })
			e.Field("totals", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					e.Field("subtotal", func(e *jx.Encoder) { encodeMoney(e, snap.Totals.Subtotal, h.currency) })
					e.Field("taxAndFees", func(e *jx.Encoder) { encodeMoney(e, snap.Totals.TaxAndFees, h.currency) })
					e.Field("total", func(e *jx.Encoder) { encodeMoney(e, snap.Totals.Total, h.currency) })
				})
			})
		})
	})
}
