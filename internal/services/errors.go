// Package services defines the business logic that joins public gist data
// with the favorites store. This file centralizes service-level error values
// so they are returned consistently by service methods and checked by callers
// with errors.Is.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import (
	"errors"
	"fmt"

	"github.com/tbourn/go-gist-favorites/internal/github"
)

var (
	// ErrUpstreamNotFound indicates GitHub reported the gist or user as
	// missing.
	ErrUpstreamNotFound = errors.New("upstream: not found")

	// ErrUpstreamUnavailable covers transport failures, 5xx responses, rate
	// limiting and undecodable payloads from GitHub.
	ErrUpstreamUnavailable = errors.New("upstream: unavailable")

	// ErrStoreUnavailable wraps any failure of the favorites store.
	ErrStoreUnavailable = errors.New("favorites store unavailable")

	// ErrInvalidUsername is returned for an empty or blank username.
	ErrInvalidUsername = errors.New("username is empty")

	// ErrInvalidGistID is returned for an empty or blank gist id.
	ErrInvalidGistID = errors.New("gist id is empty")
)

// classifyUpstream maps a client error onto the service taxonomy while
// keeping the original chain reachable.
func classifyUpstream(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, github.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrUpstreamNotFound, err)
	}
	// Unavailable and anything unclassified (e.g. a plain 403 or a canceled
	// request) are treated as the upstream being unusable for this call.
	return fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
