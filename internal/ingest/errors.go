package ingest

import "errors"

// Sentinel errors for the ingestion failure taxonomy. Handlers map these to
// HTTP status codes; callers should test with errors.Is.
var (
	// ErrInvalidInput means a required identity or classification field is
	// missing or malformed. The client must fix the event before retrying.
	ErrInvalidInput = errors.New("invalid input")
	// ErrRateLimited means the product exceeded its per-window event cap.
	// The event is dropped, not queued; the client may retry next window.
	ErrRateLimited = errors.New("rate limited")
	// ErrStoreUnavailable means the event store rejected the write after the
	// bounded retry. Transient; the caller should retry per its own policy.
	ErrStoreUnavailable = errors.New("store unavailable")
)
