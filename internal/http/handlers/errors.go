// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and give clients a stable, machine-readable
// taxonomy next to the human-readable message. Generic codes mirror HTTP status
// semantics; the two dependency codes tell a client which side failed:
//
//   - upstream_unavailable: GitHub could not be reached or answered with an
//     error other than 404 (502).
//   - store_unavailable: the favorites store failed (503).
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "upstream_unavailable",
//	  "message": "github is unavailable"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"

	// Dependency failures:
	ErrCodeUpstreamUnavailable = "upstream_unavailable"
	ErrCodeStoreUnavailable    = "store_unavailable"
)
