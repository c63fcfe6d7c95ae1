package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gymdesk/backend/internal/membership/domain"
)

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const txColumns = `id, owner_id, member_id, plan_months, amount, method, starts_at, expires_at, created_at`

func scanTransaction(row interface{ Scan(...any) error }) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.OwnerID, &t.MemberID, &t.PlanMonths, &t.Amount,
		&t.Method, &t.StartsAt, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t *domain.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO membership_transactions (`+txColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		t.ID, t.OwnerID, t.MemberID, t.PlanMonths, t.Amount,
		t.Method, t.StartsAt, t.ExpiresAt, t.CreatedAt)
	return err
}

func (r *PostgresRepository) LatestByMember(ctx context.Context, ownerID, memberID string) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM membership_transactions
		 WHERE owner_id = $1 AND member_id = $2
		 ORDER BY expires_at DESC LIMIT 1`, ownerID, memberID)
	return scanTransaction(row)
}

func (r *PostgresRepository) ListByMember(ctx context.Context, ownerID, memberID string) ([]*domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+txColumns+` FROM membership_transactions
		 WHERE owner_id = $1 AND member_id = $2
		 ORDER BY created_at DESC`, ownerID, memberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *PostgresRepository) Revenue(ctx context.Context, ownerID string, from, to time.Time) (int64, int, error) {
	var total int64
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0), COUNT(*)
		 FROM membership_transactions
		 WHERE owner_id = $1 AND created_at >= $2 AND created_at < $3`,
		ownerID, from, to).Scan(&total, &count)
	return total, count, err
}

// ListExpiring picks the latest transaction per member via DISTINCT ON and
// keeps only those whose expiry falls in the window. Members covered by a
// newer renewal never show up.
func (r *PostgresRepository) ListExpiring(ctx context.Context, from, to time.Time) ([]*domain.ExpiringMembership, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT t.id, t.owner_id, o.phone, o.gym_name, o.remind_days_before,
		        m.id, m.name, m.phone, m.status, t.expires_at
		 FROM (
		     SELECT DISTINCT ON (member_id) *
		     FROM membership_transactions
		     ORDER BY member_id, expires_at DESC
		 ) t
		 JOIN members m ON m.id = t.member_id
		 JOIN owners o ON o.id = t.owner_id
		 WHERE t.expires_at >= $1 AND t.expires_at < $2`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ExpiringMembership
	for rows.Next() {
		var e domain.ExpiringMembership
		if err := rows.Scan(&e.TransactionID, &e.OwnerID, &e.OwnerPhone, &e.GymName, &e.RemindDays,
			&e.MemberID, &e.MemberName, &e.MemberPhone, &e.MemberStatus, &e.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
