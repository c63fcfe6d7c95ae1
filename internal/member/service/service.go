package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gymdesk/backend/internal/member/domain"
	"gymdesk/backend/internal/member/repository"
)

// Sentinel errors for the member service; the handler maps them to HTTP codes.
var (
	ErrMemberNotFound = errors.New("member not found")
	ErrPhoneTaken     = errors.New("another member already has this phone")
	ErrValidation     = errors.New("validation failed")
)

// Messenger delivers a text to a phone number over the shared session.
type Messenger interface {
	Send(ctx context.Context, recipient, text string) error
}

// OwnerInfo resolves the owner's contact details for the welcome text.
type OwnerInfo interface {
	ContactInfo(ctx context.Context, ownerID string) (phone, gymName string, err error)
}

// Service manages the member roster. Messaging side effects are best effort:
// a failed welcome text never fails the registration.
type Service struct {
	members   repository.Repository
	owners    OwnerInfo
	messenger Messenger
	log       *zap.Logger
	nowF      func() time.Time
}

func New(members repository.Repository, owners OwnerInfo, messenger Messenger, log *zap.Logger) *Service {
	return &Service{
		members:   members,
		owners:    owners,
		messenger: messenger,
		log:       log.Named("member_service"),
		nowF:      time.Now,
	}
}

// CreateInput carries the fields a new member is registered with.
type CreateInput struct {
	Name     string
	Phone    string
	Email    string
	Notes    string
	JoinedAt time.Time
}

// Create registers a member and sends a welcome text to their phone. The
// welcome send is fire and forget.
func (s *Service) Create(ctx context.Context, ownerID string, in CreateInput) (*domain.Member, error) {
	phone := normalizePhone(in.Phone)
	if phone == "" {
		return nil, fmt.Errorf("%w: phone is required", ErrValidation)
	}
	existing, err := s.members.GetByPhone(ctx, ownerID, phone)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrPhoneTaken
	}
	now := s.nowF().UTC()
	joined := in.JoinedAt
	if joined.IsZero() {
		joined = now
	}
	member := &domain.Member{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Name:      strings.TrimSpace(in.Name),
		Phone:     phone,
		Email:     strings.TrimSpace(in.Email),
		Notes:     in.Notes,
		Status:    domain.MemberStatusActive,
		JoinedAt:  joined,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := member.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.members.Create(ctx, member); err != nil {
		return nil, err
	}

	_, gymName, err := s.owners.ContactInfo(ctx, ownerID)
	if err != nil {
		s.log.Warn("owner contact lookup failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
	if gymName == "" {
		gymName = "the gym"
	}
	text := fmt.Sprintf("Welcome to %s, %s! Your membership is now set up.", gymName, member.Name)
	if err := s.messenger.Send(ctx, member.Phone, text); err != nil {
		s.log.Warn("welcome message not delivered",
			zap.String("member_id", member.ID),
			zap.Error(err))
	}
	return member, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id string) (*domain.Member, error) {
	member, err := s.members.GetByID(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

func (s *Service) List(ctx context.Context, ownerID, search string) ([]*domain.Member, error) {
	return s.members.List(ctx, ownerID, strings.TrimSpace(search))
}

// UpdateInput carries the editable member fields.
type UpdateInput struct {
	Name   string
	Phone  string
	Email  string
	Notes  string
	Status string
}

func (s *Service) Update(ctx context.Context, ownerID, id string, in UpdateInput) (*domain.Member, error) {
	member, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	phone := normalizePhone(in.Phone)
	if phone != member.Phone {
		existing, err := s.members.GetByPhone(ctx, ownerID, phone)
		if err != nil {
			return nil, err
		}
		if existing != nil && existing.ID != member.ID {
			return nil, ErrPhoneTaken
		}
	}
	member.Name = strings.TrimSpace(in.Name)
	member.Phone = phone
	member.Email = strings.TrimSpace(in.Email)
	member.Notes = in.Notes
	if in.Status != "" {
		member.Status = domain.MemberStatus(in.Status)
	}
	member.UpdatedAt = s.nowF().UTC()
	if err := member.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.members.Update(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id string) error {
	if _, err := s.Get(ctx, ownerID, id); err != nil {
		return err
	}
	return s.members.Delete(ctx, ownerID, id)
}

func normalizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
