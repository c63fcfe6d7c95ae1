package domain

import (
	"errors"
	"time"
)

// Owner is a gym owner account. Each owner runs exactly one gym and is the
// only principal the API authenticates.
type Owner struct {
	ID               string
	Email            string
	GymName          string
	Phone            string // E.164-ish digits; empty until verified
	PhoneVerified    bool
	PasswordHash     string
	RemindDaysBefore int
	Status           OwnerStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OwnerStatus string

const (
	OwnerStatusActive   OwnerStatus = "active"
	OwnerStatusDisabled OwnerStatus = "disabled"
)

// Validate validates the owner for persistence. Returns an error describing
// the first validation failure.
func (o *Owner) Validate() error {
	if o.Email == "" {
		return errors.New("email is required")
	}
	if o.GymName == "" {
		return errors.New("gym name is required")
	}
	if o.RemindDaysBefore < 0 {
		return errors.New("remind days before must not be negative")
	}
	if o.Status == "" {
		o.Status = OwnerStatusActive
	}
	return nil
}
