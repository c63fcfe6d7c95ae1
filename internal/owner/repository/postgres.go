package repository

import (
	"context"
	"database/sql"
	"errors"

	"gymdesk/backend/internal/owner/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an owner repository that uses the given db
// for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const ownerColumns = `id, email, gym_name, phone, phone_verified, password_hash, remind_days_before, status, created_at, updated_at`

func scanOwner(row interface{ Scan(...any) error }) (*domain.Owner, error) {
	var o domain.Owner
	err := row.Scan(&o.ID, &o.Email, &o.GymName, &o.Phone, &o.PhoneVerified,
		&o.PasswordHash, &o.RemindDaysBefore, (*string)(&o.Status), &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &o, nil
}

// GetByID returns the owner for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Owner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ownerColumns+` FROM owners WHERE id = $1`, id)
	return scanOwner(row)
}

// GetByEmail returns the owner with the given email, or nil if not found.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Owner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ownerColumns+` FROM owners WHERE email = $1`, email)
	return scanOwner(row)
}

// GetByPhone returns the owner whose verified phone matches, or nil.
func (r *PostgresRepository) GetByPhone(ctx context.Context, phone string) (*domain.Owner, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+ownerColumns+` FROM owners WHERE phone = $1 AND phone <> ''`, phone)
	return scanOwner(row)
}

// Create persists the owner. The owner must have ID set; it is not assigned
// by this method.
func (r *PostgresRepository) Create(ctx context.Context, o *domain.Owner) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO owners (`+ownerColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		o.ID, o.Email, o.GymName, o.Phone, o.PhoneVerified,
		o.PasswordHash, o.RemindDaysBefore, string(o.Status), o.CreatedAt, o.UpdatedAt)
	return err
}

// Update rewrites the mutable profile fields. Phone changes do not go through
// here; they are confirmed via SetPhoneVerified.
func (r *PostgresRepository) Update(ctx context.Context, o *domain.Owner) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE owners
		 SET gym_name = $2, remind_days_before = $3, status = $4, updated_at = $5
		 WHERE id = $1`,
		o.ID, o.GymName, o.RemindDaysBefore, string(o.Status), o.UpdatedAt)
	return err
}

// ContactInfo returns the owner's verified phone and gym name for
// confirmation messages. Both are empty if the owner does not exist.
func (r *PostgresRepository) ContactInfo(ctx context.Context, ownerID string) (phone, gymName string, err error) {
	err = r.db.QueryRowContext(ctx,
		`SELECT phone, gym_name FROM owners WHERE id = $1 AND phone_verified`, ownerID).
		Scan(&phone, &gymName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", nil
	}
	return phone, gymName, err
}

func (r *PostgresRepository) SetPhoneVerified(ctx context.Context, ownerID, phone string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE owners SET phone = $2, phone_verified = TRUE, updated_at = NOW() WHERE id = $1`,
		ownerID, phone)
	return err
}

func (r *PostgresRepository) UpdatePasswordHash(ctx context.Context, ownerID, hash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE owners SET password_hash = $2, updated_at = NOW() WHERE id = $1`,
		ownerID, hash)
	return err
}
