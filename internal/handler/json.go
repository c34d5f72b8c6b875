package handler

import (
	"bytes"
	"io"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/text/currency"

	"github.com/xenking/cloud-kitchen/internal/domain/address"
	"github.com/xenking/cloud-kitchen/internal/domain/auth"
	"github.com/xenking/cloud-kitchen/internal/domain/cart"
	"github.com/xenking/cloud-kitchen/internal/domain/menu"
	"github.com/xenking/cloud-kitchen/internal/domain/order"
	"github.com/xenking/cloud-kitchen/internal/session"
	"github.com/xenking/cloud-kitchen/pkg/money"
)

const maxBodyBytes = 64 << 10

// badRequestError marks malformed input: JSON, path or query values.
type badRequestError struct {
	msg string
	err error
}

func (e *badRequestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *badRequestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &badRequestError{msg: msg, err: err}
}

// readBody returns the request body with surrounding whitespace removed.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, badRequest("read body", err)
	}
	return bytes.TrimSpace(data), nil
}

func intParam(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badRequest("invalid "+name+" "+strconv.Quote(raw), nil)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)
	encode(e)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeErrorFields(w, code, msg, nil)
}

// writeErrorFields writes {"code","message"} plus an optional "fields" map
// of per-field messages.
func writeErrorFields(w http.ResponseWriter, code int, msg string, fields map[string]string) {
	writeJSON(w, code, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(code) })
			e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
			if len(fields) == 0 {
				return
			}
			names := make([]string, 0, len(fields))
			for name := range fields {
				names = append(names, name)
			}
			sort.Strings(names)
			e.Field("fields", func(e *jx.Encoder) {
				e.Obj(func(e *jx.Encoder) {
					for _, name := range names {
						e.Field(name, func(e *jx.Encoder) { e.Str(fields[name]) })
					}
				})
			})
		})
	})
}

// fail maps domain errors to HTTP responses. Unknown errors are logged and
// reported as 500 without details.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	var (
		badReq     *badRequestError
		unknown    *UnknownMenuItemError
		invalid    *cart.InvalidItemError
		duplicate  *cart.DuplicateItemError
		validation *order.ValidationError
		intent     *session.InvalidIntentError
	)
	switch {
	case errors.As(err, &badReq), errors.As(err, &intent):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, menu.ErrNotFound),
		errors.Is(err, session.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, address.ErrNotFound):
		writeError(w, http.StatusNotFound, rootMessage(err))
	case errors.As(err, &validation):
		writeErrorFields(w, http.StatusUnprocessableEntity, "invalid delivery details", validation.Fields)
	case errors.As(err, &unknown), errors.As(err, &invalid), errors.As(err, &duplicate):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, order.ErrEmptyCart):
		writeError(w, http.StatusUnprocessableEntity, order.ErrEmptyCart.Error())
	default:
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// rootMessage returns the sentinel's message without wrapping context.
func rootMessage(err error) string {
	for _, sentinel := range []error{menu.ErrNotFound, session.ErrNotFound, order.ErrNotFound, address.ErrNotFound} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// encodeMoney writes {"amount":"96.50","display":"$96.50"}.
func encodeMoney(e *jx.Encoder, amount decimal.Decimal, unit currency.Unit) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("amount", func(e *jx.Encoder) { e.Str(money.Fixed(amount, unit)) })
		e.Field("display", func(e *jx.Encoder) { e.Str(money.Format(amount, unit)) })
	})
}
