// Package api exposes the scan core over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/quangmanh-dev/webscan/internal/api/middleware"
	"github.com/quangmanh-dev/webscan/internal/ratelimit"
	"github.com/quangmanh-dev/webscan/internal/scan"
	"github.com/quangmanh-dev/webscan/internal/session"
	"github.com/quangmanh-dev/webscan/internal/shared/constants"
	sharederrors "github.com/quangmanh-dev/webscan/internal/shared/errors"
)

// ScanRequest is the inbound scan payload.
type ScanRequest struct {
	URL      string   `json:"url"`
	Mode     string   `json:"mode"`
	Selected []string `json:"selected,omitempty"`
	AdminKey string   `json:"adminKey,omitempty"`
}

// Runner dispatches one validated scan context.
type Runner interface {
	Run(ctx context.Context, sc scan.Context) scan.Bundle
}

// Config wires the server's collaborators. Everything is injected; the
// server reads no ambient state.
type Config struct {
	Sessions    *session.Store
	Limiter     *ratelimit.Limiter
	Dispatcher  Runner
	AdminKey    string // empty disables super-admin elevation entirely
	Logger      *zap.Logger
	CORSOrigins []string // empty = allow all
}

// Server is the HTTP surface of the scan core.
type Server struct {
	cfg Config
	mux *http.ServeMux
}

// NewServer builds the server and its routes.
func NewServer(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	srv := &Server{cfg: cfg, mux: http.NewServeMux()}
	srv.routes()
	return srv
}

// ServeHTTP applies the middleware chain: RequestID -> Logging -> CORS -> mux.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handler := middleware.RequestID(s.withLogging(s.withCORS(s.mux)))
	handler.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/scan", s.handleScan)
	s.mux.HandleFunc("/api/v1/health", s.handleHealth)
	s.mux.HandleFunc("/api/v1/ready", s.handleReady)

	// Unversioned aliases for older clients.
	s.mux.HandleFunc("/api/scan", s.handleScan)
	s.mux.HandleFunc("/api/health", s.handleHealth)

	// Everything else gets the structured error body, not the mux default.
	s.mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusNotFound,
		sharederrors.WithCode(sharederrors.CodeNotFound, errors.New("no such route")))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, r)
		return
	}
	if s.cfg.Dispatcher == nil {
		s.writeError(w, r, http.StatusServiceUnavailable,
			errors.New("dispatcher not configured"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// handleScan runs the full inbound flow: rate limiting, session resolution,
// validation, authorization, dispatch.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, r)
		return
	}
	ctx := r.Context()

	// The limiter runs before session resolution so a blocked request never
	// mints or persists a session record.
	decision := ratelimit.Decision{Allowed: true}
	if s.cfg.Limiter != nil {
		decision = s.cfg.Limiter.Check(ctx, s.rateLimitKey(r))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(decision.Reset, 10))
	}
	if !decision.Allowed {
		retryAfter := (decision.Reset - time.Now().UnixMilli()) / 1000
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
		s.writeError(w, r, http.StatusTooManyRequests,
			sharederrors.WithCode(sharederrors.CodeRateLimited, sharederrors.ErrRateLimited))
		return
	}

	rec, setCookie := s.cfg.Sessions.Resolve(ctx, r)
	if setCookie != nil {
		http.SetCookie(w, setCookie)
	}

	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodyBytes)
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest,
			sharederrors.WithCode(sharederrors.CodeBadRequest, err))
		return
	}

	target, err := validateTarget(req.URL)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err)
		return
	}
	mode, ok := scan.ParseMode(req.Mode)
	if !ok {
		s.writeError(w, r, http.StatusBadRequest,
			sharederrors.WithCode(sharederrors.CodeInvalidMode, sharederrors.ErrInvalidMode))
		return
	}

	if mode == scan.ModeSuperAdmin {
		if err := s.authorizeSuperAdmin(ctx, rec, req.AdminKey); err != nil {
			s.writeError(w, r, http.StatusForbidden, err)
			return
		}
	}

	bundle := s.cfg.Dispatcher.Run(ctx, scan.Context{
		URL:      target,
		RawURL:   req.URL,
		Mode:     mode,
		Selected: req.Selected,
	})
	writeJSON(w, http.StatusOK, bundle)
}

// authorizeSuperAdmin admits already-elevated sessions, or elevates the
// session when the presented admin key matches. The mode field reaching the
// dispatcher as super-admin therefore always means elevation succeeded.
func (s *Server) authorizeSuperAdmin(ctx context.Context, rec *session.Record, adminKey string) error {
	if rec.IsSuperAdmin() {
		return nil
	}
	if adminKey == "" {
		return sharederrors.WithCode(sharederrors.CodeAdminKeyRequired, sharederrors.ErrAdminKeyRequired)
	}
	if s.cfg.AdminKey == "" ||
		subtle.ConstantTimeCompare([]byte(adminKey), []byte(s.cfg.AdminKey)) != 1 {
		return sharederrors.WithCode(sharederrors.CodeAdminKeyInvalid, sharederrors.ErrAdminKeyInvalid)
	}
	if err := s.cfg.Sessions.Elevate(ctx, rec); err != nil {
		// The in-hand record is elevated; durable persistence failed.
		s.cfg.Logger.Warn("session elevation persistence failed",
			zap.String("session", rec.ID), zap.Error(err))
	}
	return nil
}

// validateTarget enforces the URL contract before any dispatch side effects.
// Failures carry their stable code.
func validateTarget(raw string) (*url.URL, error) {
	if len(raw) > constants.MaxTargetURLLength {
		return nil, sharederrors.WithCode(sharederrors.CodeURLTooLong, sharederrors.ErrURLTooLong)
	}
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, sharederrors.WithCode(sharederrors.CodeInvalidURL, sharederrors.ErrInvalidURL)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, sharederrors.WithCode(sharederrors.CodeInvalidURL, sharederrors.ErrInvalidURL)
	}
	return parsed, nil
}

// rateLimitKey derives the limiter key. Only a session id proven by a
// presented, verified cookie may key the window: a freshly minted id would
// hand every cookie-less request a fresh window and the limiter would never
// block the clients that refuse cookies. Everything else keys by caller IP.
func (s *Server) rateLimitKey(r *http.Request) string {
	if id := s.cfg.Sessions.Presented(r); id != "" {
		return "scan:" + id
	}
	return "scan:" + clientIP(r)
}

// clientIP extracts the caller address, honoring X-Forwarded-For.
func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		if idx := strings.Index(forwarded, ","); idx > 0 {
			return strings.TrimSpace(forwarded[:idx])
		}
		return strings.TrimSpace(forwarded)
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndex(addr, ":"); idx > 0 {
		addr = addr[:idx]
	}
	return addr
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		allowOrigin := "*"
		if len(s.cfg.CORSOrigins) > 0 {
			allowOrigin = ""
			for _, allowed := range s.cfg.CORSOrigins {
				if allowed == origin {
					allowOrigin = origin
					break
				}
			}
		}
		if allowOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "3600")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(lrw, r)

		s.cfg.Logger.Info("http_request",
			zap.String("request_id", middleware.GetRequestID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote_addr", r.RemoteAddr),
			zap.Int("status", lrw.statusCode),
			zap.Duration("duration", time.Since(start)),
			zap.Int64("bytes", lrw.bytesWritten),
		)
	})
}

// loggingResponseWriter captures status code and bytes written for the
// request log.
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	n, err := lrw.ResponseWriter.Write(b)
	lrw.bytesWritten += int64(n)
	return n, err
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError emits the structured error body. The stable code is read off
// the error itself; anything not wrapped with a code reports INTERNAL.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		s.requestLogger(r).Error("internal_server_error",
			zap.Error(err), zap.Int("status", status))
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]string{"error": msg, "code": sharederrors.CodeOf(err)})
}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	return s.cfg.Logger.With(
		zap.String("request_id", middleware.GetRequestID(r.Context())),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, http.StatusMethodNotAllowed,
		sharederrors.WithCode(sharederrors.CodeMethodNotAllowed, errors.New("method not allowed")))
}
