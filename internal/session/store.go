// Package session issues, verifies, and elevates per-visitor sessions. The
// cookie is a bearer token for a session id only: it carries the id plus an
// HMAC integrity tag, never the role. Role is authoritative server-side
// state looked up by id, so it cannot be forged client-side.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/quangmanh-dev/webscan/internal/shared/constants"
	sharederrors "github.com/quangmanh-dev/webscan/internal/shared/errors"
	"github.com/quangmanh-dev/webscan/internal/store"
)

// RoleSuperAdmin is the only non-anonymous role. It is set solely through
// explicit elevation and never downgraded automatically.
const RoleSuperAdmin = "sa"

// Record is the per-visitor session state.
type Record struct {
	ID        string    `json:"id"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	LastSeen  time.Time `json:"lastSeen"`
}

// IsSuperAdmin reports whether the session has been elevated.
func (r *Record) IsSuperAdmin() bool {
	return r != nil && r.Role == RoleSuperAdmin
}

// Store resolves and elevates sessions. The signing secret is injected at
// construction; core logic never reads ambient state. The backing store is
// optional: without it, sessions are verified statelessly and elevation is
// best-effort for the lifetime of the in-hand record only.
type Store struct {
	secret  []byte
	backing store.Store
	logger  *zap.Logger

	now func() time.Time // test seam
}

// NewStore builds a session store. The secret must be non-empty; callers in
// non-production modes may pass an ephemeral one.
func NewStore(secret []byte, backing store.Store, logger *zap.Logger) (*Store, error) {
	if len(secret) == 0 {
		return nil, sharederrors.ErrSigningSecretMissing
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{secret: secret, backing: backing, logger: logger, now: time.Now}, nil
}

// Resolve extracts the session cookie from r and returns the caller's
// record. A missing, tampered, or expired cookie falls back to a fresh
// anonymous session. Unverified claims are never trusted. The returned
// cookie is nil when the presented one is already valid.
func (s *Store) Resolve(ctx context.Context, r *http.Request) (*Record, *http.Cookie) {
	cookie, err := r.Cookie(constants.SessionCookieName)
	if err == nil {
		if id, ok := s.verify(cookie.Value); ok {
			if rec := s.lookup(ctx, id); rec != nil {
				return rec, nil
			}
		}
	}
	return s.create(ctx)
}

// Presented returns the session id proven by r's cookie. It returns "" when
// no cookie is present or verification fails, and it never creates state, so
// callers can use it to distinguish returning sessions from first contact.
func (s *Store) Presented(r *http.Request) string {
	cookie, err := r.Cookie(constants.SessionCookieName)
	if err != nil {
		return ""
	}
	id, ok := s.verify(cookie.Value)
	if !ok {
		return ""
	}
	return id
}

// Elevate sets the record's role to super-admin and persists the change so a
// later resolution of the same id observes it. Without a backing store the
// elevation only survives as long as the in-hand record.
func (s *Store) Elevate(ctx context.Context, rec *Record) error {
	rec.Role = RoleSuperAdmin
	if s.backing == nil {
		s.logger.Warn("session elevation is in-memory only, no durable store bound",
			zap.String("session", rec.ID))
		return nil
	}
	if err := s.persist(ctx, rec); err != nil {
		return fmt.Errorf("persisting elevated session %s: %w", rec.ID, err)
	}
	return nil
}

// Cookie builds the Set-Cookie value binding rec's id to its integrity tag.
func (s *Store) Cookie(rec *Record) *http.Cookie {
	return &http.Cookie{
		Name:     constants.SessionCookieName,
		Value:    rec.ID + "." + s.tag(rec.ID),
		Path:     "/",
		MaxAge:   int(constants.SessionCookieMaxAge.Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	}
}

// verify splits and checks a cookie value, returning the session id when the
// integrity tag matches.
func (s *Store) verify(value string) (string, bool) {
	id, tag, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	want := s.tag(id)
	if !hmac.Equal([]byte(tag), []byte(want)) {
		return "", false
	}
	return id, true
}

// lookup retrieves the durable record for id, or reconstructs an anonymous
// one when no store is bound. A nil return means the session must be
// re-created (record expired or unreadable).
func (s *Store) lookup(ctx context.Context, id string) *Record {
	if s.backing == nil {
		// Stateless mode: the verified id is all the state there is.
		return &Record{ID: id, CreatedAt: s.now(), LastSeen: s.now()}
	}

	raw, err := s.backing.Get(ctx, "session:"+id)
	if err != nil {
		if !errors.Is(err, store.ErrKeyNotFound) {
			s.logger.Warn("session store read failed, reconstructing anonymous session",
				zap.String("session", id), zap.Error(err))
			return &Record{ID: id, CreatedAt: s.now(), LastSeen: s.now()}
		}
		// Verified cookie but no record: the store lost it or it was
		// created by another deployment. Reconstruct without role.
		rec := &Record{ID: id, CreatedAt: s.now(), LastSeen: s.now()}
		s.persistBestEffort(ctx, rec)
		return rec
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		s.logger.Warn("discarding corrupt session record", zap.String("session", id))
		return nil
	}
	if s.now().Sub(rec.CreatedAt) > constants.SessionCookieMaxAge {
		return nil
	}
	rec.LastSeen = s.now()
	s.persistBestEffort(ctx, &rec)
	return &rec
}

// create mints a new anonymous session and its Set-Cookie.
func (s *Store) create(ctx context.Context) (*Record, *http.Cookie) {
	rec := &Record{
		ID:        uuid.NewString(),
		CreatedAt: s.now(),
		LastSeen:  s.now(),
	}
	if s.backing != nil {
		s.persistBestEffort(ctx, rec)
	}
	return rec, s.Cookie(rec)
}

func (s *Store) persist(ctx context.Context, rec *Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.backing.Put(ctx, "session:"+rec.ID, raw)
}

func (s *Store) persistBestEffort(ctx context.Context, rec *Record) {
	if err := s.persist(ctx, rec); err != nil {
		s.logger.Warn("session store write failed",
			zap.String("session", rec.ID), zap.Error(err))
	}
}

// tag computes the hex HMAC-SHA256 integrity tag over a session id.
func (s *Store) tag(id string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}
