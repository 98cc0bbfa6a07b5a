package response

import (
	"net/http"

	"github.com/darkauth/server/internal/reqctx"
)

// RequestIDFromContext extracts the request id the RequestID middleware sets.
func RequestIDFromContext(r *http.Request) string {
	return reqctx.GetRequestID(r.Context())
}
