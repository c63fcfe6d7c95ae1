package repository

import (
	"context"
	"database/sql"
	"errors"

	"gymdesk/backend/internal/member/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const memberColumns = `id, owner_id, name, phone, email, notes, status, joined_at, created_at, updated_at`

func scanMember(row interface{ Scan(...any) error }) (*domain.Member, error) {
	var m domain.Member
	err := row.Scan(&m.ID, &m.OwnerID, &m.Name, &m.Phone, &m.Email, &m.Notes,
		(*string)(&m.Status), &m.JoinedAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

// GetByID returns the member for id within the owner's roster, or nil.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return scanMember(row)
}

func (r *PostgresRepository) GetByPhone(ctx context.Context, ownerID, phone string) (*domain.Member, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM members WHERE owner_id = $1 AND phone = $2`, ownerID, phone)
	return scanMember(row)
}

func (r *PostgresRepository) List(ctx context.Context, ownerID, search string) ([]*domain.Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE owner_id = $1`
	args := []any{ownerID}
	if search != "" {
		query += ` AND (name ILIKE $2 OR phone LIKE $2)`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*domain.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, m *domain.Member) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (`+memberColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.OwnerID, m.Name, m.Phone, m.Email, m.Notes,
		string(m.Status), m.JoinedAt, m.CreatedAt, m.UpdatedAt)
	return err
}

func (r *PostgresRepository) Update(ctx context.Context, m *domain.Member) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE members
		 SET name = $3, phone = $4, email = $5, notes = $6, status = $7, updated_at = $8
		 WHERE owner_id = $1 AND id = $2`,
		m.OwnerID, m.ID, m.Name, m.Phone, m.Email, m.Notes, string(m.Status), m.UpdatedAt)
	return err
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM members WHERE owner_id = $1 AND id = $2`, ownerID, id)
	return err
}
