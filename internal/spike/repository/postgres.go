package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"watchpost/internal/spike/domain"
)

const defaultListLimit = 50

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a spike alert repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertIfCooldownSQL = `
INSERT INTO spike_alerts (id, product, current_count, baseline_avg, spike_multiplier, alerted_at, acknowledged)
SELECT $1, $2, $3, $4, $5, $6, FALSE
WHERE NOT EXISTS (
    SELECT 1 FROM spike_alerts WHERE product = $2 AND alerted_at > $7
)`

// InsertIfCooldownElapsed inserts the alert unless a newer-than-cutoff alert
// exists for the product. Returns true if the row was inserted.
func (r *PostgresRepository) InsertIfCooldownElapsed(ctx context.Context, a *domain.Alert, cutoff time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, insertIfCooldownSQL,
		a.ID, a.Product, a.CurrentCount, a.BaselineAvg, a.SpikeMultiplier, a.AlertedAt, cutoff)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const selectAlertSQL = `
SELECT id, product, current_count, baseline_avg, spike_multiplier, alerted_at, acknowledged, acknowledged_at
FROM spike_alerts`

// GetByID returns the alert for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Alert, error) {
	row := r.db.QueryRowContext(ctx, selectAlertSQL+` WHERE id = $1`, id)
	a, err := scanAlert(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// Acknowledge sets acknowledged for id if not already acknowledged.
func (r *PostgresRepository) Acknowledge(ctx context.Context, id string, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE spike_alerts SET acknowledged = TRUE, acknowledged_at = $2
		 WHERE id = $1 AND acknowledged = FALSE`, id, at)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// List returns alerts newest first. product "" means all; limit <= 0 uses a default.
func (r *PostgresRepository) List(ctx context.Context, product string, limit int) ([]*domain.Alert, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	var (
		rows *sql.Rows
		err  error
	)
	if product == "" {
		rows, err = r.db.QueryContext(ctx,
			selectAlertSQL+` ORDER BY alerted_at DESC LIMIT $1`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			selectAlertSQL+` WHERE product = $1 ORDER BY alerted_at DESC LIMIT $2`, product, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Alert
	for rows.Next() {
		a, err := scanAlert(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAlert(scan func(dest ...any) error) (*domain.Alert, error) {
	var (
		a     domain.Alert
		ackAt sql.NullTime
	)
	if err := scan(&a.ID, &a.Product, &a.CurrentCount, &a.BaselineAvg, &a.SpikeMultiplier,
		&a.AlertedAt, &a.Acknowledged, &ackAt); err != nil {
		return nil, err
	}
	if ackAt.Valid {
		t := ackAt.Time
		a.AcknowledgedAt = &t
	}
	return &a, nil
}
