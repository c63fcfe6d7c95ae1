package repository

import (
	"context"

	"gymdesk/backend/internal/owner/domain"
)

// Repository defines persistence for owners.
type Repository interface {
	GetByID(ctx context.Context, id string) (*domain.Owner, error)
	GetByEmail(ctx context.Context, email string) (*domain.Owner, error)
	// GetByPhone returns the owner holding the given verified phone, or nil.
	GetByPhone(ctx context.Context, phone string) (*domain.Owner, error)
	// ContactInfo returns the owner's verified phone and gym name, or empty
	// strings if missing.
	ContactInfo(ctx context.Context, ownerID string) (phone, gymName string, err error)
	Create(ctx context.Context, o *domain.Owner) error
	Update(ctx context.Context, o *domain.Owner) error
	// SetPhoneVerified stores phone and marks it verified in one statement.
	SetPhoneVerified(ctx context.Context, ownerID, phone string) error
	UpdatePasswordHash(ctx context.Context, ownerID, hash string) error
}
