package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// APIKeyHeader carries the client API key.
const APIKeyHeader = "api_key"

// requireAPIKey rejects requests without a key holding scope. It is a
// no-op when the handler has no authenticator.
func (h *Handler) requireAPIKey(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if h.authn == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			info, err := h.authn.Authenticate(r.Context(), r.Header.Get(APIKeyHeader), scope)
			if err != nil {
				h.fail(w, r, err)
				return
			}
			zctx.From(r.Context()).Debug("Authenticated", zap.String("api_key_id", info.ID))
			next.ServeHTTP(w, r)
		})
	}
}
