package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/xenking/cloud-kitchen/internal/domain/address"
	"github.com/xenking/cloud-kitchen/internal/domain/order"
)

func (h *Handler) listAddresses(w http.ResponseWriter, r *http.Request) {
	list, err := h.addresses.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range list {
				encodeAddress(e, &list[i])
			}
		})
	})
}

func (h *Handler) getAddress(w http.ResponseWriter, r *http.Request) {
	a, err := h.addresses.Get(r.Context(), chi.URLParam(r, "addressID"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeAddress(e, a) })
}

func (h *Handler) saveAddress(w http.ResponseWriter, r *http.Request) {
	name, dd, err := readAddress(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.addresses.Save(r.Context(), name, dd)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/addresses/"+a.ID)
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeAddress(e, a) })
}

func (h *Handler) updateAddress(w http.ResponseWriter, r *http.Request) {
	name, dd, err := readAddress(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	a, err := h.addresses.Update(r.Context(), chi.URLParam(r, "addressID"), name, dd)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeAddress(e, a) })
}

func (h *Handler) deleteAddress(w http.ResponseWriter, r *http.Request) {
	if err := h.addresses.Delete(r.Context(), chi.URLParam(r, "addressID")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// readAddress decodes {"name", "fullName", "address", "city", "zipCode"}.
func readAddress(w http.ResponseWriter, r *http.Request) (string, order.DeliveryDetails, error) {
	var (
		name string
		dd   order.DeliveryDetails
	)
	body, err := readBody(w, r)
	if err != nil {
		return name, dd, err
	}
	if len(body) == 0 {
		return name, dd, badRequest("address is required", nil)
	}

	err = jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		if key == "name" {
			v, err := d.Str()
			name = v
			return err
		}
		return decodeDeliveryField(d, key, &dd)
	})
	if err != nil {
		return name, dd, badRequest("decode address", err)
	}
	return name, dd, nil
}

func encodeAddress(e *jx.Encoder, a *address.Address) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(a.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(a.Name) })
		encodeDeliveryFields(e, a.Delivery)
		e.Field("createdAt", func(e *jx.Encoder) { e.Str(a.CreatedAt.UTC().Format(time.RFC3339)) })
	})
}
