package repository

import (
	"context"

	"watchpost/internal/status/domain"
)

// Repository defines persistence for error group status records.
type Repository interface {
	// Upsert inserts or fully overwrites the record keyed by
	// (fingerprint, product). Last writer wins on the whole row.
	Upsert(ctx context.Context, rec *domain.Record) error
	// Get returns the record for (fingerprint, product), or nil if absent.
	Get(ctx context.Context, fingerprint, product string) (*domain.Record, error)
	// ListByProduct returns all records for product. product "" means all.
	ListByProduct(ctx context.Context, product string) ([]*domain.Record, error)
}
