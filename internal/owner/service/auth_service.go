package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"gymdesk/backend/internal/owner/domain"
	"gymdesk/backend/internal/security"
)

// Sentinel errors for the auth service; the handler maps them to HTTP codes.
var (
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrOwnerNotFound          = errors.New("owner not found")
	ErrPhoneInUse             = errors.New("phone already linked to another account")
	// ErrValidation wraps bad-input failures so the handler can answer 400
	// instead of 500.
	ErrValidation = errors.New("validation failed")
)

// AuthResult holds the outcome of Register (owner ID only) or Login.
type AuthResult struct {
	AccessToken string
	ExpiresAt   time.Time
	OwnerID     string
	GymName     string
}

// OwnerRepo is the minimal owner repository needed by the auth service.
type OwnerRepo interface {
	GetByEmail(ctx context.Context, email string) (*domain.Owner, error)
	Create(ctx context.Context, o *domain.Owner) error
}

// AuthService implements password register and login for gym owners.
type AuthService struct {
	owners           OwnerRepo
	hasher           *security.Hasher
	tokens           *security.TokenProvider
	remindDaysBefore int
}

// NewAuthService builds the auth service. remindDaysBefore seeds the reminder
// preference on new accounts; non-positive values fall back to 3 days.
func NewAuthService(owners OwnerRepo, hasher *security.Hasher, tokens *security.TokenProvider, remindDaysBefore int) *AuthService {
	if remindDaysBefore <= 0 {
		remindDaysBefore = 3
	}
	return &AuthService{owners: owners, hasher: hasher, tokens: tokens, remindDaysBefore: remindDaysBefore}
}

// Register creates an owner account with the given email, password, and gym
// name. The new account has no verified phone; messaging features stay off
// until one is enrolled.
func (s *AuthService) Register(ctx context.Context, email, password, gymName string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}
	existing, err := s.owners.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailAlreadyRegistered
	}
	hashed, err := s.hasher.Hash([]byte(password))
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	owner := &domain.Owner{
		ID:               uuid.New().String(),
		Email:            email,
		GymName:          strings.TrimSpace(gymName),
		PasswordHash:     hashed,
		RemindDaysBefore: s.remindDaysBefore,
		Status:           domain.OwnerStatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.owners.Create(ctx, owner); err != nil {
		return nil, err
	}
	return &AuthResult{OwnerID: owner.ID, GymName: owner.GymName}, nil
}

// Login authenticates with email and password and returns a bearer token.
// Disabled accounts fail the same way as wrong passwords.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	owner, err := s.owners.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if owner == nil || owner.Status != domain.OwnerStatusActive {
		return nil, ErrInvalidCredentials
	}
	if err := s.hasher.Compare(owner.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	token, _, expiresAt, err := s.tokens.IssueAccess(owner.ID, owner.GymName)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		OwnerID:     owner.ID,
		GymName:     owner.GymName,
	}, nil
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateEmail(email string) error {
	if !emailRe.MatchString(email) {
		return fmt.Errorf("%w: invalid email address", ErrValidation)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrValidation)
	}
	return nil
}
