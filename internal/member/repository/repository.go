package repository

import (
	"context"

	"gymdesk/backend/internal/member/domain"
)

// Repository defines persistence for members. Every query is scoped by owner
// so one gym can never read another's roster.
type Repository interface {
	GetByID(ctx context.Context, ownerID, id string) (*domain.Member, error)
	// GetByPhone returns the owner's member with the given phone, or nil.
	GetByPhone(ctx context.Context, ownerID, phone string) (*domain.Member, error)
	// List returns the owner's members, newest first. search filters by name
	// or phone substring when non-empty.
	List(ctx context.Context, ownerID, search string) ([]*domain.Member, error)
	Create(ctx context.Context, m *domain.Member) error
	Update(ctx context.Context, m *domain.Member) error
	Delete(ctx context.Context, ownerID, id string) error
}
