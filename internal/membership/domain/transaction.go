package domain

import (
	"errors"
	"time"
)

// Transaction is one paid membership period. Amount is in the smallest
// currency unit to keep revenue sums exact.
type Transaction struct {
	ID         string
	OwnerID    string
	MemberID   string
	PlanMonths int
	Amount     int64
	Method     string
	StartsAt   time.Time
	ExpiresAt  time.Time
	CreatedAt  time.Time
}

// Validate validates the transaction for persistence.
func (t *Transaction) Validate() error {
	if t.OwnerID == "" {
		return errors.New("owner id is required")
	}
	if t.MemberID == "" {
		return errors.New("member id is required")
	}
	if t.PlanMonths <= 0 {
		return errors.New("plan months must be positive")
	}
	if t.Amount < 0 {
		return errors.New("amount must not be negative")
	}
	if !t.ExpiresAt.After(t.StartsAt) {
		return errors.New("expiry must be after start")
	}
	return nil
}

// ExpiringMembership is the reminder scheduler's view of a membership close
// to its expiry date: the latest transaction per member joined with contact
// data and the owner's reminder preference.
type ExpiringMembership struct {
	TransactionID string
	OwnerID       string
	OwnerPhone    string
	GymName       string
	MemberID      string
	MemberName    string
	MemberPhone   string
	MemberStatus  string
	ExpiresAt     time.Time
	RemindDays    int
}
