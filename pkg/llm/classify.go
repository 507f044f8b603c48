package llm

import (
	"context"
	"errors"
	"net"
	"strings"
)

// FromStatus classifies an HTTP error status shared by every backend API.
// It returns nil for statuses below 400 so providers can layer their own
// cases (missing model, oversized prompt) in front of it.
func FromStatus(status int, message string, err error) *ProviderError {
	switch {
	case status == 401 || status == 403:
		return NewProviderError(ErrCodeAuthentication, message, err)
	case status == 429:
		return NewProviderError(ErrCodeRateLimit, message, err)
	case status == 503:
		return NewProviderError(ErrCodeUnavailable, message, err)
	case status >= 500:
		return NewProviderError(ErrCodeServerError, message, err)
	case status >= 400:
		return NewProviderError(ErrCodeInvalidRequest, message, err)
	}
	return nil
}

// FromTransport classifies an error that never produced an HTTP status.
// Cancellation and timeouts map to ErrCodeTimeout, refused or unresolvable
// hosts to ErrCodeUnavailable; the chain skips the backend on either.
func FromTransport(backend string, err error) *ProviderError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProviderError(ErrCodeTimeout, "request timed out or cancelled", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewProviderError(ErrCodeTimeout, backend+" request timed out", err)
	}
	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") {
		return NewProviderError(ErrCodeUnavailable, backend+" backend unreachable", err)
	}
	return NewProviderError(ErrCodeServerError, backend+" error", err)
}
