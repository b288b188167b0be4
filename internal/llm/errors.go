package llm

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Veraticus/plancost/internal/common"
)

// StatusOverloaded is returned by Anthropic when the API is overloaded.
const StatusOverloaded = 529

// ErrEmptyResponse is returned when a provider answers without any text.
var ErrEmptyResponse = errors.New("no content in response")

// APIError is a non-200 answer from a provider.
type APIError struct {
	Provider   string
	Body       string
	StatusCode int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

// IsTransientStatus reports whether a status code is worth retrying:
// rate limiting, overload and server errors.
func IsTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == StatusOverloaded || code >= 500
}

func statusError(provider string, code int, body []byte) error {
	apiErr := &APIError{Provider: provider, StatusCode: code, Body: truncate(string(body), 512)}
	return &common.RetryableError{Err: apiErr, Retryable: IsTransientStatus(code)}
}

func transportError(err error) error {
	return &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
}

// StatusCode extracts the HTTP status of a provider error, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
