package handler

import (
	"net/http"

	"github.com/go-faster/jx"

	"github.com/xenking/cloud-kitchen/internal/domain/menu"
)

func (h *Handler) listMenu(w http.ResponseWriter, r *http.Request) {
	var (
		items []menu.Item
		err   error
	)
	if raw := r.URL.Query().Get("category"); raw != "" {
		category := menu.Category(raw)
		if !category.Valid() {
			h.fail(w, r, badRequest("unknown category "+raw, nil))
			return
		}
		items, err = h.menu.ListByCategory(r.Context(), category)
	} else {
		items, err = h.menu.List(r.Context())
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range items {
				h.encodeMenuItem(e, &items[i])
			}
		})
	})
}

func (h *Handler) getMenuItem(w http.ResponseWriter, r *http.Request) {
	id, err := intParam(r, "itemID")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	it, err := h.menu.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { h.encodeMenuItem(e, it) })
}

func (h *Handler) encodeMenuItem(e *jx.Encoder, it *menu.Item) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Int(it.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(it.Name) })
		e.Field("description", func(e *jx.Encoder) { e.Str(it.Description) })
		e.Field("price", func(e *jx.Encoder) { encodeMoney(e, it.Price, h.currency) })
		e.Field("category", func(e *jx.Encoder) { e.Str(string(it.Category)) })
		e.Field("imageUrl", func(e *jx.Encoder) { e.Str(it.ImageURL) })
	})
}
