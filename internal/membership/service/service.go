package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	memberdomain "gymdesk/backend/internal/member/domain"
	"gymdesk/backend/internal/membership/domain"
	"gymdesk/backend/internal/membership/repository"
)

var (
	ErrMemberNotFound = errors.New("member not found")
	ErrValidation     = errors.New("validation failed")
)

// MemberRepo is the minimal member repository needed by the membership
// service.
type MemberRepo interface {
	GetByID(ctx context.Context, ownerID, id string) (*memberdomain.Member, error)
}

// OwnerInfo resolves the owner's confirmation contact details.
type OwnerInfo interface {
	ContactInfo(ctx context.Context, ownerID string) (phone, gymName string, err error)
}

// Messenger delivers a text to a phone number over the shared session.
type Messenger interface {
	Send(ctx context.Context, recipient, text string) error
}

// Service records membership payments and answers revenue queries. Payment
// confirmations go out to both the member and the owner, but a recorded
// transaction is never rolled back because a message failed.
type Service struct {
	transactions repository.Repository
	members      MemberRepo
	owners       OwnerInfo
	messenger    Messenger
	log          *zap.Logger
	nowF         func() time.Time
}

func New(transactions repository.Repository, members MemberRepo, owners OwnerInfo, messenger Messenger, log *zap.Logger) *Service {
	return &Service{
		transactions: transactions,
		members:      members,
		owners:       owners,
		messenger:    messenger,
		log:          log.Named("membership_service"),
		nowF:         time.Now,
	}
}

// RecordInput carries the fields of a new payment.
type RecordInput struct {
	MemberID   string
	PlanMonths int
	Amount     int64
	Method     string
	StartsAt   time.Time // zero means extend from the current period
}

// Record persists a payment for the member. When no start date is given, the
// new period starts where the current one ends, or now for lapsed and first
// time members, so renewing early never costs covered days.
func (s *Service) Record(ctx context.Context, ownerID string, in RecordInput) (*domain.Transaction, error) {
	if in.PlanMonths <= 0 {
		return nil, fmt.Errorf("%w: plan months must be positive", ErrValidation)
	}
	if in.Amount < 0 {
		return nil, fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	member, err := s.members.GetByID(ctx, ownerID, in.MemberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}

	now := s.nowF().UTC()
	startsAt := in.StartsAt
	if startsAt.IsZero() {
		startsAt = now
		latest, err := s.transactions.LatestByMember(ctx, ownerID, in.MemberID)
		if err != nil {
			return nil, err
		}
		if latest != nil && latest.ExpiresAt.After(now) {
			startsAt = latest.ExpiresAt
		}
	}
	method := in.Method
	if method == "" {
		method = "cash"
	}
	tx := &domain.Transaction{
		ID:         uuid.New().String(),
		OwnerID:    ownerID,
		MemberID:   in.MemberID,
		PlanMonths: in.PlanMonths,
		Amount:     in.Amount,
		Method:     method,
		StartsAt:   startsAt,
		ExpiresAt:  startsAt.AddDate(0, in.PlanMonths, 0),
		CreatedAt:  now,
	}
	if err := tx.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, err
	}

	s.sendConfirmations(ctx, member, tx)
	return tx, nil
}

// sendConfirmations notifies the member and the owner. Failures are logged
// and swallowed; the payment is already committed.
func (s *Service) sendConfirmations(ctx context.Context, member *memberdomain.Member, tx *domain.Transaction) {
	ownerPhone, gymName, err := s.owners.ContactInfo(ctx, tx.OwnerID)
	if err != nil {
		s.log.Warn("owner contact lookup failed", zap.String("owner_id", tx.OwnerID), zap.Error(err))
	}
	expires := tx.ExpiresAt.Format("02 Jan 2006")
	memberText := fmt.Sprintf("Hi %s, your %d-month membership at %s is confirmed. Valid until %s.",
		member.Name, tx.PlanMonths, gymName, expires)
	if err := s.messenger.Send(ctx, member.Phone, memberText); err != nil {
		s.log.Warn("member confirmation not delivered",
			zap.String("member_id", member.ID), zap.Error(err))
	}
	if ownerPhone != "" {
		ownerText := fmt.Sprintf("Payment recorded: %s, %d month(s), until %s.",
			member.Name, tx.PlanMonths, expires)
		if err := s.messenger.Send(ctx, ownerPhone, ownerText); err != nil {
			s.log.Warn("owner confirmation not delivered",
				zap.String("owner_id", tx.OwnerID), zap.Error(err))
		}
	}
}

// History returns the member's transactions, newest first.
func (s *Service) History(ctx context.Context, ownerID, memberID string) ([]*domain.Transaction, error) {
	member, err := s.members.GetByID(ctx, ownerID, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return s.transactions.ListByMember(ctx, ownerID, memberID)
}

// RevenueReport aggregates revenue over [From, To).
type RevenueReport struct {
	From  time.Time
	To    time.Time
	Total int64
	Count int
}

// Revenue sums the owner's payments in [from, to). A zero to means now.
func (s *Service) Revenue(ctx context.Context, ownerID string, from, to time.Time) (*RevenueReport, error) {
	if to.IsZero() {
		to = s.nowF().UTC()
	}
	if !to.After(from) {
		return nil, fmt.Errorf("%w: time range is empty", ErrValidation)
	}
	total, count, err := s.transactions.Revenue(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return &RevenueReport{From: from, To: to, Total: total, Count: count}, nil
}
