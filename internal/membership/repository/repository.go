package repository

import (
	"context"
	"time"

	"gymdesk/backend/internal/membership/domain"
)

// Repository defines persistence for membership transactions.
type Repository interface {
	Create(ctx context.Context, t *domain.Transaction) error
	// LatestByMember returns the member's transaction with the latest expiry,
	// or nil if they have none.
	LatestByMember(ctx context.Context, ownerID, memberID string) (*domain.Transaction, error)
	// ListByMember returns the member's transactions, newest first.
	ListByMember(ctx context.Context, ownerID, memberID string) ([]*domain.Transaction, error)
	// Revenue sums amounts for transactions created in [from, to).
	Revenue(ctx context.Context, ownerID string, from, to time.Time) (total int64, count int, err error)
	// ListExpiring returns, across all owners, each member's latest membership
	// expiring in [from, to), joined with contact data.
	ListExpiring(ctx context.Context, from, to time.Time) ([]*domain.ExpiringMembership, error)
}
