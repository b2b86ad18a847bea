// Package spike compares each product's recent error rate to its rolling
// 7-day baseline and raises alerts when the rate exceeds a multiplier of
// that baseline. Alert debounce is durable: it keys off the most recent
// spike_alerts row per product, not process-local state.
package spike

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"watchpost/internal/spike/domain"
	"watchpost/internal/spike/repository"
)

// ErrNotFound is returned when acknowledging an unknown alert id.
var ErrNotFound = errors.New("alert not found")

// baselineHours is the number of full hours in the baseline window
// [now-7d, now-1h): the trailing week excluding the current hour.
const baselineHours = 7*24 - 1

// EventCounter is the slice of the event store the detector needs.
type EventCounter interface {
	CountBetween(ctx context.Context, product string, from, to time.Time) (int64, error)
	ProductsSince(ctx context.Context, since time.Time) ([]string, error)
}

// Publisher delivers triggered alerts to the external alerter pipeline.
// Best-effort: the detector logs and ignores publish failures.
type Publisher interface {
	Publish(ctx context.Context, a *domain.Alert) error
}

// Detector runs spike detection across all active products.
type Detector struct {
	events EventCounter
	alerts repository.Repository
	// publisher may be nil; then triggered alerts are only persisted.
	publisher Publisher

	// Threshold is the multiplier over baseline that triggers an alert.
	Threshold float64
	// Cooldown is the minimum gap between alerts for one product.
	Cooldown time.Duration
	// MinCount is the absolute floor for alerting with a zero baseline, so a
	// product's first handful of errors ever does not page anyone.
	MinCount int64

	nowF func() time.Time
}

// NewDetector returns a detector with the given policy. publisher may be nil.
func NewDetector(events EventCounter, alerts repository.Repository, publisher Publisher,
	threshold float64, cooldown time.Duration, minCount int64) *Detector {
	return &Detector{
		events:    events,
		alerts:    alerts,
		publisher: publisher,
		Threshold: threshold,
		Cooldown:  cooldown,
		MinCount:  minCount,
		nowF:      time.Now,
	}
}

// Scan evaluates every product with events in the trailing 7 days and returns
// the alerts created in this run. Products already inside their cooldown
// window are skipped by the conditional insert, so two racing scans cannot
// both alert.
func (d *Detector) Scan(ctx context.Context) ([]*domain.Alert, error) {
	now := d.nowF().UTC()
	products, err := d.events.ProductsSince(ctx, now.Add(-7*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("spike: list products: %w", err)
	}

	var created []*domain.Alert
	for _, product := range products {
		alert, err := d.evaluate(ctx, product, now)
		if err != nil {
			return created, err
		}
		if alert == nil {
			continue
		}

		inserted, err := d.alerts.InsertIfCooldownElapsed(ctx, alert, now.Add(-d.Cooldown))
		if err != nil {
			return created, fmt.Errorf("spike: insert alert for %s: %w", product, err)
		}
		if !inserted {
			continue // within cooldown, debounced
		}
		created = append(created, alert)

		if d.publisher != nil {
			if err := d.publisher.Publish(ctx, alert); err != nil {
				log.Printf("spike: publish alert for %s failed: %v", product, err)
			}
		}
	}
	return created, nil
}

// evaluate returns the alert to raise for product, or nil when the current
// rate does not qualify as a spike.
func (d *Detector) evaluate(ctx context.Context, product string, now time.Time) (*domain.Alert, error) {
	current, err := d.events.CountBetween(ctx, product, now.Add(-time.Hour), now)
	if err != nil {
		return nil, fmt.Errorf("spike: current count for %s: %w", product, err)
	}
	if current == 0 {
		return nil, nil
	}

	baselineTotal, err := d.events.CountBetween(ctx, product, now.Add(-7*24*time.Hour), now.Add(-time.Hour))
	if err != nil {
		return nil, fmt.Errorf("spike: baseline count for %s: %w", product, err)
	}
	baselineAvg := float64(baselineTotal) / float64(baselineHours)

	var multiplier float64
	if baselineAvg == 0 {
		// No prior history: no rate classification is possible. Alert only
		// past the absolute floor.
		if current < d.MinCount {
			return nil, nil
		}
		multiplier = float64(current)
	} else {
		multiplier = float64(current) / baselineAvg
		if float64(current) < d.Threshold*baselineAvg {
			return nil, nil
		}
	}

	return &domain.Alert{
		ID:              uuid.NewString(),
		Product:         product,
		CurrentCount:    current,
		BaselineAvg:     baselineAvg,
		SpikeMultiplier: multiplier,
		AlertedAt:       now,
	}, nil
}

// Acknowledge marks the alert acknowledged and stamps acknowledged_at.
// Idempotent: acknowledging an already-acknowledged alert is a no-op;
// an unknown id returns ErrNotFound.
func (d *Detector) Acknowledge(ctx context.Context, id string) error {
	n, err := d.alerts.Acknowledge(ctx, id, d.nowF().UTC())
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	a, err := d.alerts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if a == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil // already acknowledged
}

// List returns recent alerts, newest first. product "" means all products.
func (d *Detector) List(ctx context.Context, product string, limit int) ([]*domain.Alert, error) {
	return d.alerts.List(ctx, product, limit)
}
