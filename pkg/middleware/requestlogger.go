package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/utafrali/storefront-checkout/pkg/logger"
)

// Session headers, in lookup order. The gateway sets X-User-ID for signed-in
// shoppers; anonymous storefront sessions send X-Session-ID.
const (
	SessionIDHeader = "X-Session-ID"
	UserIDHeader    = "X-User-ID"
)

// SessionIDFromRequest returns the checkout session identifier of r, or "".
func SessionIDFromRequest(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get(SessionIDHeader)); id != "" {
		return id
	}
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

// RequestLogger stores a request-scoped logger in the context, enriched with
// correlation_id, session_id, trace_id and span_id. Mount it after
// RequestLogging and Tracing so those values exist.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			if id := SessionIDFromRequest(r); id != "" {
				ctx = logger.WithSessionID(ctx, id)
			}

			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
