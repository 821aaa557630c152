package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDGeneratesWhenMissing(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == "" {
		t.Fatal("handler must observe a generated request id")
	}
	if got := rr.Header().Get(HeaderRequestID); got != seen {
		t.Fatalf("response header %q does not match context id %q", got, seen)
	}
	if len(seen) != 16 {
		t.Fatalf("generated id length = %d, want 16 hex chars", len(seen))
	}
}

func TestRequestIDHonorsClientHeader(t *testing.T) {
	var seen string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "client-supplied-id")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, r)

	if seen != "client-supplied-id" {
		t.Fatalf("context id = %q, want the client-supplied one", seen)
	}
	if got := rr.Header().Get(HeaderRequestID); got != "client-supplied-id" {
		t.Fatalf("response header = %q", got)
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if got := GetRequestID(r.Context()); got != "" {
		t.Fatalf("expected empty id outside the middleware, got %q", got)
	}
}
