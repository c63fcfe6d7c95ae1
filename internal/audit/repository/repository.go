package repository

import (
	"context"

	"gymdesk/backend/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByOwner returns the owner's audit logs, newest first, paginated.
	ListByOwner(ctx context.Context, ownerID string, limit, offset int32) ([]*domain.AuditLog, error)
}
