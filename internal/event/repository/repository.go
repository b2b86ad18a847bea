package repository

import (
	"context"
	"time"

	"watchpost/internal/event/domain"
)

// Repository defines persistence for error events. The store is append-only:
// there is no update or delete path for events.
type Repository interface {
	// Insert appends one event. The event must have ID and CreatedAt set.
	Insert(ctx context.Context, e *domain.ErrorEvent) error
	// ListSince returns events with occurred_at >= since, ordered by created_at
	// ascending. product "" means all products.
	ListSince(ctx context.Context, product string, since time.Time) ([]*domain.ErrorEvent, error)
	// ListBetween returns events for product with occurred_at in [from, to),
	// ordered by created_at ascending. product "" means all products.
	ListBetween(ctx context.Context, product string, from, to time.Time) ([]*domain.ErrorEvent, error)
	// CountBetween returns the number of events for product with occurred_at in [from, to).
	CountBetween(ctx context.Context, product string, from, to time.Time) (int64, error)
	// ProductsSince returns the distinct products with at least one event since the given time.
	ProductsSince(ctx context.Context, since time.Time) ([]string, error)
}
