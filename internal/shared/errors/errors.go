package errors

import "errors"

// Domain errors
var (
	// Scan request errors
	ErrInvalidURL  = errors.New("target URL is not a valid absolute URL")
	ErrURLTooLong  = errors.New("target URL exceeds the maximum length")
	ErrInvalidMode = errors.New("unknown scan mode")

	// Authorization errors
	ErrAdminKeyRequired = errors.New("admin key required for super-admin mode")
	ErrAdminKeyInvalid  = errors.New("admin key is not valid")

	// Session errors
	ErrSigningSecretMissing = errors.New("session signing secret is not configured")

	// Rate limit errors
	ErrRateLimited = errors.New("rate limit exceeded")

	// Store errors
	ErrKeyNotFound = errors.New("key not found")
)

// Stable machine-readable codes carried on every externally visible error
// response, so callers can branch without parsing messages.
const (
	CodeInvalidURL       = "INVALID_URL"
	CodeURLTooLong       = "URL_TOO_LONG"
	CodeInvalidMode      = "INVALID_MODE"
	CodeAdminKeyRequired = "ADMIN_KEY_REQUIRED"
	CodeAdminKeyInvalid  = "ADMIN_KEY_INVALID"
	CodeRateLimited      = "RATE_LIMITED"
	CodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	CodeBadRequest       = "BAD_REQUEST"
	CodeNotFound         = "NOT_FOUND"
	CodeInternal         = "INTERNAL"
)

// CodedError pairs a sentinel error with its stable API code.
type CodedError struct {
	Code string
	Err  error
}

func (e *CodedError) Error() string {
	return e.Err.Error()
}

func (e *CodedError) Unwrap() error {
	return e.Err
}

// WithCode wraps err with a stable code for the API layer.
func WithCode(code string, err error) *CodedError {
	return &CodedError{Code: code, Err: err}
}

// CodeOf extracts the stable code from err, or CodeInternal when none is attached.
func CodeOf(err error) string {
	var coded *CodedError
	if errors.As(err, &coded) {
		return coded.Code
	}
	return CodeInternal
}
