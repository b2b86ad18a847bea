package repository

import (
	"context"

	"watchpost/internal/deploy/domain"
)

// Repository defines persistence for deployments.
type Repository interface {
	// Create persists the deployment. The deployment must have ID and CreatedAt set.
	Create(ctx context.Context, d *domain.Deployment) error
	// GetByID returns the deployment for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Deployment, error)
	// ListByProduct returns deployments for product, newest first, up to limit.
	ListByProduct(ctx context.Context, product string, limit int) ([]*domain.Deployment, error)
}
