package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrNotFound matches responses for an unknown user or gist id.
	ErrNotFound = errors.New("github: not found")

	// ErrUnavailable matches transport failures, 5xx responses, rate limit
	// rejections and undecodable bodies.
	ErrUnavailable = errors.New("github: upstream unavailable")
)

// APIError represents a non-2xx response from the GitHub REST API.
type APIError struct {
	// StatusCode is the HTTP response status code.
	StatusCode int

	// Message is the top-level error description from GitHub, or the raw
	// body when it was not the usual JSON envelope.
	Message string
}

func (err *APIError) Error() string {
	return fmt.Sprintf("github: HTTP %d: %s", err.StatusCode, err.Message)
}

// Is lets callers classify API errors with errors.Is against ErrNotFound and
// ErrUnavailable.
func (err *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return err.StatusCode == http.StatusNotFound
	case ErrUnavailable:
		return err.StatusCode >= 500 ||
			err.StatusCode == http.StatusTooManyRequests ||
			(err.StatusCode == http.StatusForbidden && isRateLimitMessage(err.Message))
	}
	return false
}

// IsNotFound reports whether err is a GitHub 404 response.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// isRateLimitMessage checks whether a 403 message is a rate limit rather than
// a permission problem.
func isRateLimitMessage(message string) bool {
	lower := strings.ToLower(message)
	return strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "abuse detection")
}

// outcome maps an error to the metrics label used for upstream calls.
func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
