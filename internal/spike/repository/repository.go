package repository

import (
	"context"
	"time"

	"watchpost/internal/spike/domain"
)

// Repository defines persistence for spike alerts. The cooldown lives on the
// rows themselves (most recent alerted_at per product) so debounce survives
// restarts and works across instances.
type Repository interface {
	// InsertIfCooldownElapsed inserts the alert unless any alert for the same
	// product (acknowledged or not) has alerted_at after cutoff. Returns true
	// if the row was inserted. Single conditional statement: two racing
	// detector runs cannot both insert.
	InsertIfCooldownElapsed(ctx context.Context, a *domain.Alert, cutoff time.Time) (bool, error)
	// GetByID returns the alert for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Alert, error)
	// Acknowledge sets acknowledged and stamps acknowledged_at for id if it is
	// not already acknowledged. Returns the number of rows updated (0 or 1).
	Acknowledge(ctx context.Context, id string, at time.Time) (int64, error)
	// List returns alerts newest first. product "" means all; limit <= 0 uses a default.
	List(ctx context.Context, product string, limit int) ([]*domain.Alert, error)
}
