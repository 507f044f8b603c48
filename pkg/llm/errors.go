package llm

import "errors"

// Error codes shared by all providers. Providers map their native errors
// to one of these.
const (
	ErrCodeAuthentication = "authentication_error"
	ErrCodeRateLimit      = "rate_limit_exceeded"
	ErrCodeModelNotFound  = "model_not_found"
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeContextLength  = "context_length_exceeded"
	ErrCodeServerError    = "server_error"
	ErrCodeTimeout        = "timeout"
	ErrCodeUnavailable    = "service_unavailable"
)

// ProviderError is a typed error from a generation backend.
type ProviderError struct {
	Code    string // One of the ErrCode* constants.
	Message string
	Err     error // Underlying error, may be nil.
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a typed provider error.
func NewProviderError(code, message string, err error) *ProviderError {
	return &ProviderError{Code: code, Message: message, Err: err}
}

// Code returns the ErrCode* of err, or "" when err is not a ProviderError.
func Code(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

func IsAuthenticationError(err error) bool { return hasCode(err, ErrCodeAuthentication) }
func IsRateLimitError(err error) bool      { return hasCode(err, ErrCodeRateLimit) }
func IsModelNotFoundError(err error) bool  { return hasCode(err, ErrCodeModelNotFound) }
func IsContextLengthError(err error) bool  { return hasCode(err, ErrCodeContextLength) }
func IsServerError(err error) bool         { return hasCode(err, ErrCodeServerError) }
func IsTimeoutError(err error) bool        { return hasCode(err, ErrCodeTimeout) }

// IsUnavailableError reports whether the backend could not be reached.
func IsUnavailableError(err error) bool { return hasCode(err, ErrCodeUnavailable) }

// IsRetryable reports whether the error is transient.
func IsRetryable(err error) bool {
	return IsRateLimitError(err) || IsServerError(err) || IsTimeoutError(err) || IsUnavailableError(err)
}

func hasCode(err error, code string) bool {
	return Code(err) == code
}
