package repository

import (
	"context"

	"gymdesk/backend/internal/policy/domain"
)

// Repository defines persistence for reminder policies.
type Repository interface {
	GetEnabledByOwner(ctx context.Context, ownerID string) ([]*domain.Policy, error)
	Create(ctx context.Context, p *domain.Policy) error
}
