package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"gymdesk/backend/internal/otp"
	"gymdesk/backend/internal/owner/domain"
	"gymdesk/backend/internal/security"
)

type fakeOwnerRepo struct {
	mu     sync.Mutex
	owners map[string]*domain.Owner // by ID
}

func newFakeOwnerRepo() *fakeOwnerRepo {
	return &fakeOwnerRepo{owners: make(map[string]*domain.Owner)}
}

func (r *fakeOwnerRepo) GetByID(_ context.Context, id string) (*domain.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.owners[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeOwnerRepo) GetByEmail(_ context.Context, email string) (*domain.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.owners {
		if o.Email == email {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOwnerRepo) GetByPhone(_ context.Context, phone string) (*domain.Owner, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.owners {
		if o.Phone == phone && o.Phone != "" {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeOwnerRepo) Create(_ context.Context, o *domain.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *o
	r.owners[o.ID] = &cp
	return nil
}

func (r *fakeOwnerRepo) Update(_ context.Context, o *domain.Owner) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.owners[o.ID]
	if !ok {
		return nil
	}
	cur.GymName = o.GymName
	cur.RemindDaysBefore = o.RemindDaysBefore
	cur.Status = o.Status
	cur.UpdatedAt = o.UpdatedAt
	return nil
}

func (r *fakeOwnerRepo) SetPhoneVerified(_ context.Context, ownerID, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.owners[ownerID]; ok {
		o.Phone = phone
		o.PhoneVerified = true
	}
	return nil
}

func (r *fakeOwnerRepo) UpdatePasswordHash(_ context.Context, ownerID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if o, ok := r.owners[ownerID]; ok {
		o.PasswordHash = hash
	}
	return nil
}

type fakeMessenger struct {
	mu   sync.Mutex
	sent []sentMessage
	err  error
}

type sentMessage struct {
	recipient string
	text      string
}

func (m *fakeMessenger) Send(_ context.Context, recipient, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMessage{recipient: recipient, text: text})
	return nil
}

func (m *fakeMessenger) last(t *testing.T) sentMessage {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatal("no messages sent")
	}
	return m.sent[len(m.sent)-1]
}

func newAuthService(t *testing.T, repo *fakeOwnerRepo) *AuthService {
	t.Helper()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	return NewAuthService(repo, security.NewHasher(bcrypt.MinCost), tokens, 3)
}

func newProfileService(repo *fakeOwnerRepo, messenger *fakeMessenger) *ProfileService {
	verifier := otp.NewVerifier(otp.NewMemoryStore(), 10*time.Minute)
	return NewProfileService(repo, security.NewHasher(bcrypt.MinCost), verifier, messenger)
}

func TestRegisterAndLogin(t *testing.T) {
	repo := newFakeOwnerRepo()
	svc := newAuthService(t, repo)
	ctx := context.Background()

	res, err := svc.Register(ctx, "Owner@Example.COM", "s3cret-pass", "Iron Temple")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if res.OwnerID == "" {
		t.Fatal("Register returned empty owner ID")
	}
	stored, _ := repo.GetByID(ctx, res.OwnerID)
	if stored.Email != "owner@example.com" {
		t.Fatalf("email not normalized: %q", stored.Email)
	}
	if stored.PhoneVerified {
		t.Fatal("new owner must start without a verified phone")
	}

	login, err := svc.Login(ctx, "owner@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if login.AccessToken == "" || login.GymName != "Iron Temple" {
		t.Fatalf("login result = %+v", login)
	}
}

func TestRegisterUsesConfiguredReminderDefault(t *testing.T) {
	repo := newFakeOwnerRepo()
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	svc := NewAuthService(repo, security.NewHasher(bcrypt.MinCost), tokens, 7)
	ctx := context.Background()

	res, err := svc.Register(ctx, "owner@example.com", "s3cret-pass", "Iron Temple")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	stored, _ := repo.GetByID(ctx, res.OwnerID)
	if stored.RemindDaysBefore != 7 {
		t.Fatalf("RemindDaysBefore = %d, want 7", stored.RemindDaysBefore)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := newFakeOwnerRepo()
	svc := newAuthService(t, repo)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "owner@example.com", "s3cret-pass", "Iron Temple"); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	if _, err := svc.Register(ctx, "owner@example.com", "other-pass1", "Other Gym"); !errors.Is(err, ErrEmailAlreadyRegistered) {
		t.Fatalf("duplicate Register: err = %v, want ErrEmailAlreadyRegistered", err)
	}
}

func TestRegisterRejectsBadInput(t *testing.T) {
	svc := newAuthService(t, newFakeOwnerRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "not-an-email", "s3cret-pass", "Gym"); !errors.Is(err, ErrValidation) {
		t.Fatalf("bad email: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Register(ctx, "owner@example.com", "short", "Gym"); !errors.Is(err, ErrValidation) {
		t.Fatalf("short password: err = %v, want ErrValidation", err)
	}
}

func TestLoginFailures(t *testing.T) {
	repo := newFakeOwnerRepo()
	svc := newAuthService(t, repo)
	ctx := context.Background()

	res, err := svc.Register(ctx, "owner@example.com", "s3cret-pass", "Iron Temple")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, err := svc.Login(ctx, "owner@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: err = %v, want ErrInvalidCredentials", err)
	}
	if _, err := svc.Login(ctx, "nobody@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: err = %v, want ErrInvalidCredentials", err)
	}

	repo.mu.Lock()
	repo.owners[res.OwnerID].Status = domain.OwnerStatusDisabled
	repo.mu.Unlock()
	if _, err := svc.Login(ctx, "owner@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("disabled account: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestChangePassword(t *testing.T) {
	repo := newFakeOwnerRepo()
	auth := newAuthService(t, repo)
	profile := newProfileService(repo, &fakeMessenger{})
	ctx := context.Background()

	res, err := auth.Register(ctx, "owner@example.com", "s3cret-pass", "Iron Temple")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := profile.ChangePassword(ctx, res.OwnerID, "wrong", "new-s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong current password: err = %v, want ErrInvalidCredentials", err)
	}
	if err := profile.ChangePassword(ctx, res.OwnerID, "s3cret-pass", "new-s3cret-pass"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := auth.Login(ctx, "owner@example.com", "new-s3cret-pass"); err != nil {
		t.Fatalf("Login with new password: %v", err)
	}
	if _, err := auth.Login(ctx, "owner@example.com", "s3cret-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Login with old password: err = %v, want ErrInvalidCredentials", err)
	}
}

func TestPhoneEnrollmentSendsCodeToNewPhone(t *testing.T) {
	repo := newFakeOwnerRepo()
	auth := newAuthService(t, repo)
	messenger := &fakeMessenger{}
	profile := newProfileService(repo, messenger)
	ctx := context.Background()

	res, err := auth.Register(ctx, "owner@example.com", "s3cret-pass", "Iron Temple")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := profile.RequestPhoneChange(ctx, res.OwnerID, "+91 98765 43210"); err != nil {
		t.Fatalf("RequestPhoneChange: %v", err)
	}
	msg := messenger.last(t)
	if msg.recipient != "919876543210" {
		t.Fatalf("first enrollment code went to %q, want new phone", msg.recipient)
	}

	code := extractCode(t, msg.text)
	owner, err := profile.ConfirmPhoneChange(ctx, res.OwnerID, code)
	if err != nil {
		t.Fatalf("ConfirmPhoneChange: %v", err)
	}
	if owner.Phone != "919876543210" || !owner.PhoneVerified {
		t.Fatalf("owner after confirm = %+v", owner)
	}
}

func TestPhoneChangeSendsCodeToCurrentPhone(t *testing.T) {
	repo := newFakeOwnerRepo()
	auth := newAuthService(t, repo)
	messenger := &fakeMessenger{}
	profile := newProfileService(repo, messenger)
	ctx := context.Background()

	res, err := auth.Register(ctx, "owner@example.com", "s3cret-pass", "Iron Temple")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := repo.SetPhoneVerified(ctx, res.OwnerID, "919876543210"); err != nil {
		t.Fatal(err)
	}

	if err := profile.RequestPhoneChange(ctx, res.OwnerID, "918888888888"); err != nil {
		t.Fatalf("RequestPhoneChange: %v", err)
	}
	msg := messenger.last(t)
	if msg.recipient != "919876543210" {
		t.Fatalf("change code went to %q, want current verified phone", msg.recipient)
	}

	code := extractCode(t, msg.text)
	owner, err := profile.ConfirmPhoneChange(ctx, res.OwnerID, code)
	if err != nil {
		t.Fatalf("ConfirmPhoneChange: %v", err)
	}
	if owner.Phone != "918888888888" {
		t.Fatalf("phone after confirm = %q", owner.Phone)
	}
	if confirm := messenger.last(t); confirm.recipient != "918888888888" {
		t.Fatalf("confirmation went to %q, want new phone", confirm.recipient)
	}
}

func TestPhoneChangeCodeTextMatchesWindow(t *testing.T) {
	repo := newFakeOwnerRepo()
	auth := newAuthService(t, repo)
	messenger := &fakeMessenger{}
	verifier := otp.NewVerifier(otp.NewMemoryStore(), 5*time.Minute)
	profile := NewProfileService(repo, security.NewHasher(bcrypt.MinCost), verifier, messenger)
	ctx := context.Background()

	res, err := auth.Register(ctx, "owner@example.com", "s3cret-pass", "Iron Temple")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := profile.RequestPhoneChange(ctx, res.OwnerID, "919876543210"); err != nil {
		t.Fatalf("RequestPhoneChange: %v", err)
	}
	if msg := messenger.last(t); !strings.Contains(msg.text, "expires in 5 minutes") {
		t.Fatalf("code text = %q, want the 5 minute window", msg.text)
	}
}

func TestPhoneChangeRejectsClaimedNumber(t *testing.T) {
	repo := newFakeOwnerRepo()
	auth := newAuthService(t, repo)
	profile := newProfileService(repo, &fakeMessenger{})
	ctx := context.Background()

	first, err := auth.Register(ctx, "first@example.com", "s3cret-pass", "Gym One")
	if err != nil {
		t.Fatalf("Register first: %v", err)
	}
	if err := repo.SetPhoneVerified(ctx, first.OwnerID, "919876543210"); err != nil {
		t.Fatal(err)
	}
	second, err := auth.Register(ctx, "second@example.com", "s3cret-pass", "Gym Two")
	if err != nil {
		t.Fatalf("Register second: %v", err)
	}

	err = profile.RequestPhoneChange(ctx, second.OwnerID, "919876543210")
	if !errors.Is(err, ErrPhoneInUse) {
		t.Fatalf("claimed phone: err = %v, want ErrPhoneInUse", err)
	}
}

func TestConfirmPhoneChangeWrongCode(t *testing.T) {
	repo := newFakeOwnerRepo()
	auth := newAuthService(t, repo)
	messenger := &fakeMessenger{}
	profile := newProfileService(repo, messenger)
	ctx := context.Background()

	res, err := auth.Register(ctx, "owner@example.com", "s3cret-pass", "Iron Temple")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := profile.RequestPhoneChange(ctx, res.OwnerID, "919876543210"); err != nil {
		t.Fatalf("RequestPhoneChange: %v", err)
	}

	if _, err := profile.ConfirmPhoneChange(ctx, res.OwnerID, "000000"); !errors.Is(err, otp.ErrInvalidCode) {
		t.Fatalf("wrong code: err = %v, want otp.ErrInvalidCode", err)
	}
}

// extractCode pulls the six-digit code out of the verification message text.
func extractCode(t *testing.T, text string) string {
	t.Helper()
	for _, f := range strings.Fields(text) {
		f = strings.TrimRight(f, ".")
		if len(f) == 6 {
			numeric := true
			for _, r := range f {
				if r < '0' || r > '9' {
					numeric = false
					break
				}
			}
			if numeric {
				return f
			}
		}
	}
	t.Fatalf("no code in message %q", text)
	return ""
}
