package repository

import (
	"context"
	"database/sql"
	"errors"

	"watchpost/internal/status/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a status repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const upsertStatusSQL = `
INSERT INTO error_group_status (fingerprint, product, status, notes, resolved_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (fingerprint, product) DO UPDATE SET
    status = EXCLUDED.status,
    notes = EXCLUDED.notes,
    resolved_at = EXCLUDED.resolved_at,
    updated_at = EXCLUDED.updated_at`

// Upsert inserts or fully overwrites the record keyed by (fingerprint, product).
// The single-statement ON CONFLICT keeps concurrent upserts from interleaving
// into a corrupt row: last writer wins on the whole row.
func (r *PostgresRepository) Upsert(ctx context.Context, rec *domain.Record) error {
	notes := sql.NullString{String: rec.Notes, Valid: rec.Notes != ""}
	var resolvedAt sql.NullTime
	if rec.ResolvedAt != nil {
		resolvedAt = sql.NullTime{Time: *rec.ResolvedAt, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, upsertStatusSQL,
		rec.Fingerprint, rec.Product, string(rec.Status), notes, resolvedAt, rec.UpdatedAt)
	return err
}

// Get returns the record for (fingerprint, product), or nil if absent.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) Get(ctx context.Context, fingerprint, product string) (*domain.Record, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT fingerprint, product, status, notes, resolved_at, updated_at
		 FROM error_group_status WHERE fingerprint = $1 AND product = $2`,
		fingerprint, product)
	rec, err := scanRecord(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

// ListByProduct returns all records for product. product "" means all.
func (r *PostgresRepository) ListByProduct(ctx context.Context, product string) ([]*domain.Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if product == "" {
		rows, err = r.db.QueryContext(ctx,
			`SELECT fingerprint, product, status, notes, resolved_at, updated_at FROM error_group_status`)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT fingerprint, product, status, notes, resolved_at, updated_at
			 FROM error_group_status WHERE product = $1`, product)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(scan func(dest ...any) error) (*domain.Record, error) {
	var (
		rec        domain.Record
		status     string
		notes      sql.NullString
		resolvedAt sql.NullTime
	)
	if err := scan(&rec.Fingerprint, &rec.Product, &status, &notes, &resolvedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Status = domain.Status(status)
	rec.Notes = notes.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		rec.ResolvedAt = &t
	}
	return &rec, nil
}
