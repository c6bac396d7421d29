package middleware

import "net/http"

// Chain wraps h in the given middlewares so that requests pass through them
// in the order listed: Chain(mux, RequestID, RequestLogging) stamps the
// request id before the logger runs.
func Chain(h http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}
