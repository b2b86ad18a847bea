// Package producer defines the interface for publishing spike alerts (e.g. to Kafka).
package producer

import (
	"context"

	"watchpost/internal/spike/domain"
)

// Producer publishes spike alerts. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Publish sends a single alert. Implementations may block briefly; call from a goroutine if needed.
	// Returns an error only on write failure; callers typically log and ignore.
	Publish(ctx context.Context, alert *domain.Alert) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
