package repository

import (
	"context"
	"database/sql"
	"time"

	"watchpost/internal/event/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an error event repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertEventSQL = `
INSERT INTO error_events (
    id, product, message, stack_trace, error_type, source, fingerprint, occurred_at,
    request_url, request_method, request_status, current_route, app_version,
    user_agent, user_id, environment, metadata, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

// Insert appends one event. The event must have ID and CreatedAt set.
func (r *PostgresRepository) Insert(ctx context.Context, e *domain.ErrorEvent) error {
	meta := e.Metadata
	if len(meta) == 0 {
		meta = []byte("{}")
	}
	_, err := r.db.ExecContext(ctx, insertEventSQL,
		e.ID, e.Product, e.Message, nullStr(e.StackTrace), string(e.ErrorType), string(e.Source),
		e.Fingerprint, e.OccurredAt,
		nullStr(e.RequestURL), nullStr(e.RequestMethod), nullInt(e.RequestStatus),
		nullStr(e.CurrentRoute), nullStr(e.AppVersion), nullStr(e.UserAgent),
		nullStr(e.UserID), string(e.Environment), meta, e.CreatedAt,
	)
	return err
}

const selectEventSQL = `
SELECT id, product, message, stack_trace, error_type, source, fingerprint, occurred_at,
       request_url, request_method, request_status, current_route, app_version,
       user_agent, user_id, environment, metadata, created_at
FROM error_events`

// ListSince returns events with occurred_at >= since, ordered by created_at ascending.
// product "" means all products.
func (r *PostgresRepository) ListSince(ctx context.Context, product string, since time.Time) ([]*domain.ErrorEvent, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if product == "" {
		rows, err = r.db.QueryContext(ctx,
			selectEventSQL+` WHERE occurred_at >= $1 ORDER BY created_at ASC`, since)
	} else {
		rows, err = r.db.QueryContext(ctx,
			selectEventSQL+` WHERE product = $1 AND occurred_at >= $2 ORDER BY created_at ASC`, product, since)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListBetween returns events with occurred_at in [from, to), ordered by created_at ascending.
// product "" means all products.
func (r *PostgresRepository) ListBetween(ctx context.Context, product string, from, to time.Time) ([]*domain.ErrorEvent, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if product == "" {
		rows, err = r.db.QueryContext(ctx,
			selectEventSQL+` WHERE occurred_at >= $1 AND occurred_at < $2 ORDER BY created_at ASC`, from, to)
	} else {
		rows, err = r.db.QueryContext(ctx,
			selectEventSQL+` WHERE product = $1 AND occurred_at >= $2 AND occurred_at < $3 ORDER BY created_at ASC`,
			product, from, to)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// CountBetween returns the number of events for product with occurred_at in [from, to).
func (r *PostgresRepository) CountBetween(ctx context.Context, product string, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM error_events WHERE product = $1 AND occurred_at >= $2 AND occurred_at < $3`,
		product, from, to).Scan(&n)
	return n, err
}

// ProductsSince returns the distinct products with at least one event since the given time.
func (r *PostgresRepository) ProductsSince(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT product FROM error_events WHERE occurred_at >= $1 ORDER BY product`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanEvents(rows *sql.Rows) ([]*domain.ErrorEvent, error) {
	var out []*domain.ErrorEvent
	for rows.Next() {
		var (
			e domain.ErrorEvent

			stack, reqURL, reqMethod             sql.NullString
			route, appVersion, userAgent, userID sql.NullString
			reqStatus                            sql.NullInt64
			errorType, source, environment       string
		)
		if err := rows.Scan(
			&e.ID, &e.Product, &e.Message, &stack, &errorType, &source, &e.Fingerprint, &e.OccurredAt,
			&reqURL, &reqMethod, &reqStatus, &route, &appVersion, &userAgent, &userID,
			&environment, &e.Metadata, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.StackTrace = stack.String
		e.ErrorType = domain.ErrorType(errorType)
		e.Source = domain.Source(source)
		e.RequestURL = reqURL.String
		e.RequestMethod = reqMethod.String
		e.RequestStatus = int(reqStatus.Int64)
		e.CurrentRoute = route.String
		e.AppVersion = appVersion.String
		e.UserAgent = userAgent.String
		e.UserID = userID.String
		e.Environment = domain.Environment(environment)
		out = append(out, &e)
	}
	return out, rows.Err()
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(n), Valid: n != 0}
}
