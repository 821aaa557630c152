// Package ratelimit implements a fixed-window request counter over a durable
// key-value store. The store may be eventually consistent: two concurrent
// checks for the same key can both read a stale count and briefly over-admit.
// The contract is "approximately at most max per window" for abuse
// mitigation, not hard quotas, so no locking is layered on top.
package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/quangmanh-dev/webscan/internal/shared/constants"
	"github.com/quangmanh-dev/webscan/internal/store"
)

// Decision is the outcome of one limiter check. Reset is the window boundary
// in epoch milliseconds.
type Decision struct {
	Allowed   bool
	Remaining int
	Reset     int64
}

// record is the persisted counter state for one key.
type record struct {
	Count int   `json:"count"`
	Reset int64 `json:"reset"`
}

// Config carries the tunable limiter policy.
type Config struct {
	Max    int
	Window time.Duration
}

// Limiter answers "allowed?" for (key, window) pairs. With no store bound it
// fails open: scanning degrades gracefully instead of becoming unusable.
type Limiter struct {
	store  store.Store
	cfg    Config
	logger *zap.Logger

	now func() time.Time // test seam
}

// New builds a Limiter. A nil backing store means every check is allowed.
// Zero config fields fall back to the documented defaults.
func New(backing store.Store, cfg Config, logger *zap.Logger) *Limiter {
	if cfg.Max <= 0 {
		cfg.Max = constants.DefaultRateLimitMax
	}
	if cfg.Window <= 0 {
		cfg.Window = constants.DefaultRateLimitWindow
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{store: backing, cfg: cfg, logger: logger, now: time.Now}
}

// Check counts one request against key's current window and reports whether
// it is admitted. The updated record is written back after every check;
// store failures fail open.
func (l *Limiter) Check(ctx context.Context, key string) Decision {
	nowMs := l.now().UnixMilli()
	open := Decision{
		Allowed:   true,
		Remaining: l.cfg.Max - 1,
		Reset:     nowMs + l.cfg.Window.Milliseconds(),
	}
	if l.store == nil {
		return open
	}

	rec, err := l.load(ctx, key)
	if err != nil {
		l.logger.Warn("rate limit store read failed, failing open",
			zap.String("key", key), zap.Error(err))
		return open
	}

	if rec == nil || nowMs >= rec.Reset {
		// Fresh window.
		rec = &record{Count: 1, Reset: nowMs + l.cfg.Window.Milliseconds()}
	} else {
		rec.Count++
	}

	if err := l.save(ctx, key, rec); err != nil {
		l.logger.Warn("rate limit store write failed, failing open",
			zap.String("key", key), zap.Error(err))
		return open
	}

	if rec.Count > l.cfg.Max {
		return Decision{Allowed: false, Remaining: 0, Reset: rec.Reset}
	}
	return Decision{Allowed: true, Remaining: l.cfg.Max - rec.Count, Reset: rec.Reset}
}

func (l *Limiter) load(ctx context.Context, key string) (*record, error) {
	raw, err := l.store.Get(ctx, "ratelimit:"+key)
	if err != nil {
		if errors.Is(err, store.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// Corrupt counter: start a fresh window rather than blocking the key.
		l.logger.Warn("discarding corrupt rate limit record", zap.String("key", key))
		return nil, nil
	}
	return &rec, nil
}

func (l *Limiter) save(ctx context.Context, key string, rec *record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return l.store.Put(ctx, "ratelimit:"+key, raw)
}
