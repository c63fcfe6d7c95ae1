package engine

import (
	"context"

	membershipdomain "gymdesk/backend/internal/membership/domain"
)

// ReminderResult holds the result of reminder policy evaluation.
type ReminderResult struct {
	SendReminder bool
}

// Evaluator decides whether an expiring membership gets a reminder, using
// OPA or other engines.
type Evaluator interface {
	// EvaluateReminder evaluates the owner's reminder policy for one expiring
	// membership. daysLeft is whole days until expiry, negative once lapsed.
	EvaluateReminder(ctx context.Context, m *membershipdomain.ExpiringMembership, daysLeft int) (ReminderResult, error)
}
