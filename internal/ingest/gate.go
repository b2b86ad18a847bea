// Package ingest validates, sanitizes, and rate-limits incoming error events
// before appending them to the event store. Malformed optional fields are
// sanitized rather than rejected; missing identity or classification fields
// reject the event, since grouping cannot work without them.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"watchpost/internal/event/domain"
	"watchpost/internal/fingerprint"
)

// Field caps. Oversized values are truncated, never bounced: the one event
// past the cap might be the one that explains an incident.
const (
	maxMessageLen   = 2000
	maxStackLen     = 10000
	maxURLLen       = 2000
	maxUserAgentLen = 500
	maxRouteLen     = 500
	maxVersionLen   = 100
	maxMetadataLen  = 5000
)

// Store write policy: one bounded retry with fixed backoff, each attempt
// under its own timeout, before surfacing ErrStoreUnavailable.
const (
	storeTimeout = 5 * time.Second
	retryBackoff = 250 * time.Millisecond
)

// Submission is the ingestion boundary payload for one error event.
type Submission struct {
	Product       string          `json:"product"`
	Message       string          `json:"error_message"`
	StackTrace    string          `json:"stack_trace"`
	ErrorType     string          `json:"error_type"`
	Source        string          `json:"source"`
	Fingerprint   string          `json:"fingerprint"`
	OccurredAt    *time.Time      `json:"occurred_at"`
	RequestURL    string          `json:"request_url"`
	RequestMethod string          `json:"request_method"`
	RequestStatus int             `json:"request_status"`
	CurrentRoute  string          `json:"current_route"`
	AppVersion    string          `json:"app_version"`
	UserAgent     string          `json:"user_agent"`
	UserID        string          `json:"user_id"`
	Environment   string          `json:"environment"`
	Metadata      json.RawMessage `json:"metadata"`
}

// EventWriter is the slice of the event store the gate needs.
type EventWriter interface {
	Insert(ctx context.Context, e *domain.ErrorEvent) error
}

// Gate validates and persists incoming error events.
type Gate struct {
	store   EventWriter
	limiter *WindowLimiter
	nowF    func() time.Time
}

// NewGate returns a gate writing accepted events through store, limited by limiter.
func NewGate(store EventWriter, limiter *WindowLimiter) *Gate {
	return &Gate{store: store, limiter: limiter, nowF: time.Now}
}

// Ingest validates, sanitizes, rate-limits, and stores one event. On success
// it returns the new event's ID. All failure paths return a typed error
// (ErrInvalidInput, ErrRateLimited, ErrStoreUnavailable); Ingest never panics.
func (g *Gate) Ingest(ctx context.Context, sub Submission) (string, error) {
	e, err := g.validate(sub)
	if err != nil {
		return "", err
	}

	if g.limiter != nil && !g.limiter.Allow(e.Product) {
		return "", fmt.Errorf("%w: product %q exceeded its event cap", ErrRateLimited, e.Product)
	}

	if err := g.append(ctx, e); err != nil {
		return "", err
	}
	return e.ID, nil
}

// validate hard-rejects on missing required fields and sanitizes the rest.
func (g *Gate) validate(sub Submission) (*domain.ErrorEvent, error) {
	if sub.Product == "" {
		return nil, fmt.Errorf("%w: product is required", ErrInvalidInput)
	}
	if sub.Message == "" {
		return nil, fmt.Errorf("%w: error_message is required", ErrInvalidInput)
	}
	if !fingerprint.Valid(sub.Fingerprint) {
		return nil, fmt.Errorf("%w: fingerprint must be 16 lowercase hex chars", ErrInvalidInput)
	}
	errorType := domain.ErrorType(sub.ErrorType)
	if !errorType.Valid() {
		return nil, fmt.Errorf("%w: unknown error_type %q", ErrInvalidInput, sub.ErrorType)
	}
	source := domain.Source(sub.Source)
	if !source.Valid() {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidInput, sub.Source)
	}

	now := g.nowF().UTC()
	occurredAt := now
	if sub.OccurredAt != nil && !sub.OccurredAt.IsZero() {
		occurredAt = sub.OccurredAt.UTC()
	}

	env := domain.Environment(sub.Environment)
	if !env.Valid() {
		env = domain.EnvironmentProduction
	}

	// user_id must look like a UUID or it is silently dropped; a garbage
	// identifier would corrupt distinct-user counts.
	userID := sub.UserID
	if userID != "" {
		if _, err := uuid.Parse(userID); err != nil {
			userID = ""
		}
	}

	meta := sanitizeMetadata(sub.Metadata)

	return &domain.ErrorEvent{
		ID:            uuid.NewString(),
		Product:       sub.Product,
		Message:       truncate(sub.Message, maxMessageLen),
		StackTrace:    truncate(sub.StackTrace, maxStackLen),
		ErrorType:     errorType,
		Source:        source,
		Fingerprint:   sub.Fingerprint,
		OccurredAt:    occurredAt,
		RequestURL:    truncate(sub.RequestURL, maxURLLen),
		RequestMethod: truncate(sub.RequestMethod, 16),
		RequestStatus: sub.RequestStatus,
		CurrentRoute:  truncate(sub.CurrentRoute, maxRouteLen),
		AppVersion:    truncate(sub.AppVersion, maxVersionLen),
		UserAgent:     truncate(sub.UserAgent, maxUserAgentLen),
		UserID:        userID,
		Environment:   env,
		Metadata:      meta,
		CreatedAt:     now,
	}, nil
}

// append writes the event with one bounded retry and fixed backoff.
func (g *Gate) append(ctx context.Context, e *domain.ErrorEvent) error {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrStoreUnavailable, ctx.Err())
			case <-time.After(retryBackoff):
			}
		}
		writeCtx, cancel := context.WithTimeout(ctx, storeTimeout)
		err := g.store.Insert(writeCtx, e)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, lastErr)
}

// sanitizeMetadata keeps metadata only when it is a JSON object within the
// serialized size cap; anything else (arrays, scalars, malformed or oversized
// input) becomes an empty object and never rejects the event.
func sanitizeMetadata(raw json.RawMessage) []byte {
	empty := []byte("{}")
	if len(raw) == 0 {
		return empty
	}
	if len(raw) > maxMetadataLen {
		return empty
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return empty
	}
	if !json.Valid(trimmed) {
		return empty
	}
	return trimmed
}

// truncate cuts s to at most max bytes, backing up to a rune boundary so a
// multibyte character straddling the cap is dropped whole and the stored
// string stays valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}
