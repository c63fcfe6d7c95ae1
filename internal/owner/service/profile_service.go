package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gymdesk/backend/internal/otp"
	"gymdesk/backend/internal/owner/domain"
	"gymdesk/backend/internal/security"
)

// PurposePhoneChange scopes phone enrollment and change codes in the OTP
// store.
const PurposePhoneChange = "phone"

// ProfileRepo is the minimal owner repository needed by the profile service.
type ProfileRepo interface {
	GetByID(ctx context.Context, id string) (*domain.Owner, error)
	GetByPhone(ctx context.Context, phone string) (*domain.Owner, error)
	Update(ctx context.Context, o *domain.Owner) error
	SetPhoneVerified(ctx context.Context, ownerID, phone string) error
	UpdatePasswordHash(ctx context.Context, ownerID, hash string) error
}

// Messenger delivers a text to a phone number over the shared session.
type Messenger interface {
	Send(ctx context.Context, recipient, text string) error
}

// ProfileService covers everything behind /me: profile reads and updates,
// password changes, and the two-step verified phone change.
type ProfileService struct {
	owners    ProfileRepo
	hasher    *security.Hasher
	verifier  *otp.Verifier
	messenger Messenger
}

func NewProfileService(owners ProfileRepo, hasher *security.Hasher, verifier *otp.Verifier, messenger Messenger) *ProfileService {
	return &ProfileService{owners: owners, hasher: hasher, verifier: verifier, messenger: messenger}
}

func (s *ProfileService) Get(ctx context.Context, ownerID string) (*domain.Owner, error) {
	owner, err := s.owners.GetByID(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, ErrOwnerNotFound
	}
	return owner, nil
}

// UpdateProfile changes gym name and reminder preference. Email and phone are
// not editable here.
func (s *ProfileService) UpdateProfile(ctx context.Context, ownerID, gymName string, remindDaysBefore int) (*domain.Owner, error) {
	owner, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	owner.GymName = strings.TrimSpace(gymName)
	owner.RemindDaysBefore = remindDaysBefore
	owner.UpdatedAt = time.Now().UTC()
	if err := owner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if err := s.owners.Update(ctx, owner); err != nil {
		return nil, err
	}
	return owner, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *ProfileService) ChangePassword(ctx context.Context, ownerID, current, next string) error {
	owner, err := s.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	if err := s.hasher.Compare(owner.PasswordHash, []byte(current)); err != nil {
		return ErrInvalidCredentials
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash([]byte(next))
	if err != nil {
		return err
	}
	return s.owners.UpdatePasswordHash(ctx, ownerID, hashed)
}

// RequestPhoneChange starts enrollment of newPhone. The code goes to the
// owner's current verified phone so a stolen session cannot silently rebind
// the account; first-time enrollment has no prior phone, so the code goes to
// the new number and proves the owner can receive messages on it.
func (s *ProfileService) RequestPhoneChange(ctx context.Context, ownerID, newPhone string) error {
	owner, err := s.Get(ctx, ownerID)
	if err != nil {
		return err
	}
	newPhone = normalizePhone(newPhone)
	if newPhone == "" {
		return fmt.Errorf("%w: phone number is required", ErrValidation)
	}
	holder, err := s.owners.GetByPhone(ctx, newPhone)
	if err != nil {
		return err
	}
	if holder != nil && holder.ID != owner.ID {
		return ErrPhoneInUse
	}
	code, err := s.verifier.Issue(ctx, PurposePhoneChange, ownerID, newPhone)
	if err != nil {
		return err
	}
	target := owner.Phone
	if !owner.PhoneVerified || target == "" {
		target = newPhone
	}
	text := fmt.Sprintf("Your GymDesk verification code is %s. It expires in %s.", code, formatWindow(s.verifier.TTL()))
	return s.messenger.Send(ctx, target, text)
}

// ConfirmPhoneChange redeems the code and binds the requested phone.
func (s *ProfileService) ConfirmPhoneChange(ctx context.Context, ownerID, code string) (*domain.Owner, error) {
	owner, err := s.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	phone, err := s.verifier.Validate(ctx, PurposePhoneChange, ownerID, code)
	if err != nil {
		return nil, err
	}
	// Re-check ownership; another account may have claimed the number while
	// the code was pending.
	holder, err := s.owners.GetByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	if holder != nil && holder.ID != owner.ID {
		return nil, ErrPhoneInUse
	}
	if err := s.owners.SetPhoneVerified(ctx, ownerID, phone); err != nil {
		return nil, err
	}
	owner.Phone = phone
	owner.PhoneVerified = true
	// Confirmation goes to the newly bound number; delivery failure does not
	// undo the change.
	_ = s.messenger.Send(ctx, phone, fmt.Sprintf("This number is now linked to %s on GymDesk.", owner.GymName))
	return owner, nil
}

func formatWindow(d time.Duration) string {
	if d >= time.Minute {
		return fmt.Sprintf("%d minutes", int(d/time.Minute))
	}
	return fmt.Sprintf("%d seconds", int(d/time.Second))
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
