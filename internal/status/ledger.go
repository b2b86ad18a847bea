// Package status tracks the operator-assigned lifecycle state of error groups,
// independent of the raw event stream. State is written only by explicit
// upsert and overlays onto aggregated groups for display.
package status

import (
	"context"
	"errors"
	"fmt"
	"time"

	"watchpost/internal/status/domain"
	"watchpost/internal/status/repository"
)

// MaxBulkItems caps the number of (fingerprint, product) pairs in one bulk call.
const MaxBulkItems = 200

// ErrInvalidStatus is returned for unknown status values.
var ErrInvalidStatus = errors.New("invalid status")

// ErrInvalidBulk is returned when a bulk request is empty, oversized, or
// contains a malformed item. The whole call is rejected before any row is written.
var ErrInvalidBulk = errors.New("invalid bulk request")

// Item identifies one error group in a bulk status call.
type Item struct {
	Fingerprint string `json:"fingerprint"`
	Product     string `json:"product"`
}

// Ledger applies status transitions to error groups.
type Ledger struct {
	repo repository.Repository
	nowF func() time.Time
}

// NewLedger returns a ledger persisting through repo.
func NewLedger(repo repository.Repository) *Ledger {
	return &Ledger{repo: repo, nowF: time.Now}
}

// Set upserts the status for (fingerprint, product): insert if absent,
// overwrite if present. resolved_at is stamped iff the new status is
// resolved; any other status clears it.
func (l *Ledger) Set(ctx context.Context, fingerprint, product string, st domain.Status, notes string) error {
	if fingerprint == "" || product == "" {
		return fmt.Errorf("%w: fingerprint and product are required", ErrInvalidStatus)
	}
	if !st.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, st)
	}

	now := l.nowF().UTC()
	rec := &domain.Record{
		Fingerprint: fingerprint,
		Product:     product,
		Status:      st,
		Notes:       notes,
		UpdatedAt:   now,
	}
	if st == domain.StatusResolved {
		rec.ResolvedAt = &now
	}
	return l.repo.Upsert(ctx, rec)
}

// SetBulk applies the same status to up to MaxBulkItems groups. The call is
// rejected whole when the item list is empty, oversized, or any item fails
// shape validation. Rows are upserted one at a time; on a mid-batch store
// failure the count of rows actually updated is returned with the error.
func (l *Ledger) SetBulk(ctx context.Context, items []Item, st domain.Status, notes string) (int, error) {
	if len(items) == 0 {
		return 0, fmt.Errorf("%w: items must not be empty", ErrInvalidBulk)
	}
	if len(items) > MaxBulkItems {
		return 0, fmt.Errorf("%w: at most %d items per call, got %d", ErrInvalidBulk, MaxBulkItems, len(items))
	}
	if !st.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidStatus, st)
	}
	for i, it := range items {
		if it.Fingerprint == "" || it.Product == "" {
			return 0, fmt.Errorf("%w: item %d is missing fingerprint or product", ErrInvalidBulk, i)
		}
	}

	updated := 0
	for _, it := range items {
		if err := l.Set(ctx, it.Fingerprint, it.Product, st, notes); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// Overlay returns the status string for a group, defaulting to "active" when
// no record exists. Used by the groups read surface.
func (l *Ledger) Overlay(ctx context.Context, product string) (map[string]*domain.Record, error) {
	recs, err := l.repo.ListByProduct(ctx, product)
	if err != nil {
		return nil, err
	}
	out := make(map[string]*domain.Record, len(recs))
	for _, rec := range recs {
		out[rec.Fingerprint+"\x00"+rec.Product] = rec
	}
	return out, nil
}

// OverlayKey builds the lookup key Overlay uses for a group.
func OverlayKey(fingerprint, product string) string {
	return fingerprint + "\x00" + product
}
