package telemetry

import "errors"

// Feed client errors.
var (
	// ErrNotFound indicates the requested resource does not exist upstream.
	ErrNotFound = errors.New("feed resource not found")

	// ErrRateLimited indicates the feed rejected the request with 429.
	ErrRateLimited = errors.New("feed rate limited")

	// ErrFeedUnavailable indicates an upstream server failure.
	ErrFeedUnavailable = errors.New("feed unavailable")

	// ErrBadPayload indicates the response body could not be decoded.
	ErrBadPayload = errors.New("malformed feed payload")
)
