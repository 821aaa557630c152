package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/quangmanh-dev/webscan/internal/shared/constants"
	sharederrors "github.com/quangmanh-dev/webscan/internal/shared/errors"
	"github.com/quangmanh-dev/webscan/internal/store"
)

func newTestStore(t *testing.T, backing store.Store) *Store {
	t.Helper()
	s, err := NewStore([]byte("test-signing-secret"), backing, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return s
}

func requestWithCookie(cookie *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/v1/scan", nil)
	if cookie != nil {
		r.AddCookie(cookie)
	}
	return r
}

func TestNewStoreRequiresSecret(t *testing.T) {
	if _, err := NewStore(nil, nil, nil); err != sharederrors.ErrSigningSecretMissing {
		t.Fatalf("expected ErrSigningSecretMissing, got %v", err)
	}
}

func TestResolveWithoutCookieCreatesSession(t *testing.T) {
	s := newTestStore(t, store.NewMemory())

	rec, setCookie := s.Resolve(context.Background(), requestWithCookie(nil))
	if rec == nil || rec.ID == "" {
		t.Fatal("expected a fresh record with an id")
	}
	if rec.Role != "" {
		t.Fatalf("fresh session must have no role, got %q", rec.Role)
	}
	if setCookie == nil {
		t.Fatal("expected a Set-Cookie for the fresh session")
	}
	if setCookie.Name != constants.SessionCookieName {
		t.Fatalf("cookie name = %q", setCookie.Name)
	}
	if !strings.Contains(setCookie.Value, ".") {
		t.Fatalf("cookie must carry id.tag, got %q", setCookie.Value)
	}
}

func TestResolveRoundTripReturnsSameID(t *testing.T) {
	s := newTestStore(t, store.NewMemory())
	ctx := context.Background()

	rec, cookie := s.Resolve(ctx, requestWithCookie(nil))

	again, setCookie := s.Resolve(ctx, requestWithCookie(cookie))
	if again.ID != rec.ID {
		t.Fatalf("round-trip id = %s, want %s", again.ID, rec.ID)
	}
	if setCookie != nil {
		t.Fatal("valid cookie must not be reissued")
	}
}

func TestResolveRejectsTamperedCookie(t *testing.T) {
	s := newTestStore(t, store.NewMemory())
	ctx := context.Background()

	rec, cookie := s.Resolve(ctx, requestWithCookie(nil))

	forged := *cookie
	forged.Value = "other-session-id." + strings.SplitN(cookie.Value, ".", 2)[1]

	fresh, setCookie := s.Resolve(ctx, requestWithCookie(&forged))
	if fresh.ID == rec.ID || fresh.ID == "other-session-id" {
		t.Fatalf("tampered cookie must yield a new session, got %s", fresh.ID)
	}
	if setCookie == nil {
		t.Fatal("tampered cookie must trigger a reissued cookie")
	}
}

func TestResolveRejectsGarbageCookie(t *testing.T) {
	s := newTestStore(t, store.NewMemory())

	garbage := &http.Cookie{Name: constants.SessionCookieName, Value: "no-separator"}
	rec, setCookie := s.Resolve(context.Background(), requestWithCookie(garbage))
	if rec == nil || setCookie == nil {
		t.Fatal("garbage cookie must fall back to a fresh session")
	}
}

func TestElevatePersistsAcrossResolutions(t *testing.T) {
	backing := store.NewMemory()
	s := newTestStore(t, backing)
	ctx := context.Background()

	rec, cookie := s.Resolve(ctx, requestWithCookie(nil))
	if err := s.Elevate(ctx, rec); err != nil {
		t.Fatalf("Elevate: %v", err)
	}
	if !rec.IsSuperAdmin() {
		t.Fatal("in-hand record must be elevated immediately")
	}

	again, _ := s.Resolve(ctx, requestWithCookie(cookie))
	if again.Role != RoleSuperAdmin {
		t.Fatalf("re-resolved role = %q, want %q", again.Role, RoleSuperAdmin)
	}
}

func TestElevateWithoutBackingStoreIsBestEffort(t *testing.T) {
	s := newTestStore(t, nil)
	ctx := context.Background()

	rec, cookie := s.Resolve(ctx, requestWithCookie(nil))
	if err := s.Elevate(ctx, rec); err != nil {
		t.Fatalf("Elevate without store: %v", err)
	}
	if !rec.IsSuperAdmin() {
		t.Fatal("in-hand record must still be elevated")
	}

	// Stateless mode cannot remember the role across requests.
	again, _ := s.Resolve(ctx, requestWithCookie(cookie))
	if again.ID != rec.ID {
		t.Fatalf("stateless round-trip id = %s, want %s", again.ID, rec.ID)
	}
	if again.IsSuperAdmin() {
		t.Fatal("role must not survive without a durable store")
	}
}

func TestResolveExpiredRecordCreatesNewSession(t *testing.T) {
	backing := store.NewMemory()
	s := newTestStore(t, backing)
	ctx := context.Background()

	rec, cookie := s.Resolve(ctx, requestWithCookie(nil))

	s.now = func() time.Time {
		return time.Now().Add(constants.SessionCookieMaxAge + time.Hour)
	}
	fresh, setCookie := s.Resolve(ctx, requestWithCookie(cookie))
	if fresh.ID == rec.ID {
		t.Fatal("expired session must not be reused")
	}
	if setCookie == nil {
		t.Fatal("expired session must trigger a reissued cookie")
	}
}

func TestCookieValueVerifies(t *testing.T) {
	s := newTestStore(t, nil)
	rec := &Record{ID: "abc"}

	cookie := s.Cookie(rec)
	id, ok := s.verify(cookie.Value)
	if !ok || id != "abc" {
		t.Fatalf("verify(%q) = %q, %v", cookie.Value, id, ok)
	}
}

func TestPresentedRequiresVerifiedCookie(t *testing.T) {
	s := newTestStore(t, nil)
	rec := &Record{ID: "abc"}

	if id := s.Presented(requestWithCookie(nil)); id != "" {
		t.Fatalf("Presented without cookie = %q, want empty", id)
	}
	if id := s.Presented(requestWithCookie(s.Cookie(rec))); id != "abc" {
		t.Fatalf("Presented = %q, want abc", id)
	}

	forged := &http.Cookie{Name: constants.SessionCookieName, Value: "abc.deadbeef"}
	if id := s.Presented(requestWithCookie(forged)); id != "" {
		t.Fatalf("Presented with forged tag = %q, want empty", id)
	}
}

func TestPresentedCreatesNoState(t *testing.T) {
	backing := store.NewMemory()
	s := newTestStore(t, backing)

	rec := &Record{ID: "ghost"}
	if id := s.Presented(requestWithCookie(s.Cookie(rec))); id != "ghost" {
		t.Fatalf("Presented = %q, want ghost", id)
	}
	if _, err := backing.Get(context.Background(), "session:ghost"); err == nil {
		t.Fatal("Presented must not persist a record")
	}
}
