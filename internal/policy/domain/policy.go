package domain

import (
	"errors"
	"time"
)

// Policy is a per-owner Rego override for reminder decisions. When an owner
// has no enabled policies the engine falls back to the built-in default.
type Policy struct {
	ID        string
	OwnerID   string
	Name      string
	Rego      string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate validates the policy for persistence.
func (p *Policy) Validate() error {
	if p.OwnerID == "" {
		return errors.New("owner id is required")
	}
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Rego == "" {
		return errors.New("rego source is required")
	}
	return nil
}
