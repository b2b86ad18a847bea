package repository

import (
	"context"
	"database/sql"
	"errors"

	"watchpost/internal/deploy/domain"
)

const defaultListLimit = 20

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a deployment repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the deployment. The deployment must have ID and CreatedAt set.
func (r *PostgresRepository) Create(ctx context.Context, d *domain.Deployment) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO deployments (id, product, deployed_at, commit_sha, commit_message, commit_author, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.Product, d.DeployedAt,
		nullStr(d.CommitSHA), nullStr(d.CommitMessage), nullStr(d.CommitAuthor), d.CreatedAt)
	return err
}

const selectDeploymentSQL = `
SELECT id, product, deployed_at, commit_sha, commit_message, commit_author, created_at
FROM deployments`

// GetByID returns the deployment for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Deployment, error) {
	row := r.db.QueryRowContext(ctx, selectDeploymentSQL+` WHERE id = $1`, id)
	d, err := scanDeployment(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return d, err
}

// ListByProduct returns deployments for product, newest first, up to limit.
func (r *PostgresRepository) ListByProduct(ctx context.Context, product string, limit int) ([]*domain.Deployment, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx,
		selectDeploymentSQL+` WHERE product = $1 ORDER BY deployed_at DESC LIMIT $2`, product, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Deployment
	for rows.Next() {
		d, err := scanDeployment(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDeployment(scan func(dest ...any) error) (*domain.Deployment, error) {
	var (
		d                   domain.Deployment
		sha, message, author sql.NullString
	)
	if err := scan(&d.ID, &d.Product, &d.DeployedAt, &sha, &message, &author, &d.CreatedAt); err != nil {
		return nil, err
	}
	d.CommitSHA = sha.String
	d.CommitMessage = message.String
	d.CommitAuthor = author.String
	return &d, nil
}

func nullStr(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
