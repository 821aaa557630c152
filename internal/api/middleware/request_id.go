// Package middleware holds HTTP middleware shared by the API server.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
)

// contextKey is a private type so context keys cannot collide.
type contextKey string

const requestIDKey contextKey = "request_id"

// HeaderRequestID is the inbound/outbound request id header.
const HeaderRequestID = "X-Request-ID"

// RequestID attaches a request id to every request: the client-supplied
// X-Request-ID when present, otherwise a freshly generated one. The id is
// echoed on the response and stored in the request context for log
// correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(HeaderRequestID)
		if id == "" {
			id = newRequestID()
		}
		w.Header().Set(HeaderRequestID, id)
		ctx := context.WithValue(r.Context(), requestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID returns the request id bound to ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func newRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return "unknown"
	}
	return hex.EncodeToString(b)
}
