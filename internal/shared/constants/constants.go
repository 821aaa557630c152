package constants

import "time"

const (
	// MaxTargetURLLength caps the length of a target URL accepted for scanning.
	MaxTargetURLLength = 2000
	// MaxRequestBodyBytes caps the size of an inbound scan request body.
	MaxRequestBodyBytes = 1 << 20
)

const (
	// DefaultRateLimitMax is the default number of requests admitted per window.
	DefaultRateLimitMax = 15
	// DefaultRateLimitWindow is the default fixed-window length.
	DefaultRateLimitWindow = 60 * time.Second
)

const (
	// SessionCookieName is the cookie that carries the session id and integrity tag.
	SessionCookieName = "ws_session"
	// SessionCookieMaxAge bounds how long a session cookie is honored by browsers.
	SessionCookieMaxAge = 30 * 24 * time.Hour
)

const (
	// DefaultModuleTimeout bounds a single scan module's latency.
	DefaultModuleTimeout = 10 * time.Second
	// TLSSoonExpiryWindow warns when a certificate expires inside this window.
	TLSSoonExpiryWindow = 14 * 24 * time.Hour
)
