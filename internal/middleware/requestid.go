package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/tallyhq/tally/internal/ctxkeys"
)

// RequestID assigns each request a correlation id, echoed in the X-Request-ID
// response header and attached to error responses.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set("X-Request-ID", id)
		ctx := ctxkeys.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
