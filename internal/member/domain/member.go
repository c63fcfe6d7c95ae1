package domain

import (
	"errors"
	"time"
)

// Member is a gym customer registered by an owner. Membership periods live in
// the membership package; the member row carries identity and contact data.
type Member struct {
	ID        string
	OwnerID   string
	Name      string
	Phone     string
	Email     string
	Notes     string
	Status    MemberStatus
	JoinedAt  time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

type MemberStatus string

const (
	MemberStatusActive   MemberStatus = "active"
	MemberStatusInactive MemberStatus = "inactive"
)

// Validate validates the member for persistence.
func (m *Member) Validate() error {
	if m.OwnerID == "" {
		return errors.New("owner id is required")
	}
	if m.Name == "" {
		return errors.New("name is required")
	}
	if m.Phone == "" {
		return errors.New("phone is required")
	}
	if m.Status == "" {
		m.Status = MemberStatusActive
	}
	return nil
}
