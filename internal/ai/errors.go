package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/kiranshivaraju/brandlens/pkg/models"
)

var (
	ErrTimeout             = errors.New("ai provider timeout")
	ErrAuth                = errors.New("ai provider rejected credentials")
	ErrRateLimited         = errors.New("ai provider rate limited")
	ErrProviderUnavailable = errors.New("ai provider unavailable")
	ErrEmptyResponse       = errors.New("ai provider returned empty response")
	ErrInvalidResponse     = errors.New("ai provider returned invalid response")
	ErrUnknownProvider     = errors.New("unknown ai provider")
)

// Classify maps a provider error onto the failure taxonomy.
// Errors that match no sentinel are treated as the provider being unavailable.
func Classify(err error) models.FailureKind {
	switch {
	case errors.Is(err, ErrEmptyResponse):
		return models.FailureEmptyResponse
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return models.FailureTimeout
	case errors.Is(err, ErrAuth):
		return models.FailureAuth
	case errors.Is(err, ErrRateLimited):
		return models.FailureRateLimited
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.FailureTimeout
	}
	return models.FailureProviderUnavailable
}

// ClassifyStatus returns the sentinel for an unsuccessful HTTP status.
func ClassifyStatus(code int) error {
	switch {
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		return ErrAuth
	case code == http.StatusTooManyRequests:
		return ErrRateLimited
	case code == http.StatusRequestTimeout, code == http.StatusGatewayTimeout:
		return ErrTimeout
	case code >= 500:
		return ErrProviderUnavailable
	default:
		return ErrInvalidResponse
	}
}

// StatusError wraps the sentinel for code with the response body for context.
func StatusError(code int, body string) error {
	if len(body) > 200 {
		body = body[:200]
	}
	return fmt.Errorf("%w: status %d: %s", ClassifyStatus(code), code, body)
}

// TransportError maps transport-level errors to sentinel errors.
func TransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
}
