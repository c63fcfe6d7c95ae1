package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"gymdesk/backend/internal/otp"
	"gymdesk/backend/internal/owner/domain"
	"gymdesk/backend/internal/owner/service"
	"gymdesk/backend/internal/security"
	"gymdesk/backend/internal/server/middleware"
)

type fakeOwnerRepo struct {
	mu     sync.Mutex
	owners map[string]*domain.Owner
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
		if o.Phone == phone && phone != "" {
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
	stored := r.owners[o.ID]
	stored.GymName = o.GymName
	stored.RemindDaysBefore = o.RemindDaysBefore
	stored.Status = o.Status
	stored.UpdatedAt = o.UpdatedAt
	return nil
}

func (r *fakeOwnerRepo) SetPhoneVerified(_ context.Context, ownerID, phone string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.owners[ownerID]
	o.Phone = phone
	o.PhoneVerified = true
	return nil
}

func (r *fakeOwnerRepo) UpdatePasswordHash(_ context.Context, ownerID, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.owners[ownerID].PasswordHash = hash
	return nil
}

type dropMessenger struct{}

func (dropMessenger) Send(context.Context, string, string) error { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("token provider: %v", err)
	}
	repo := newFakeOwnerRepo()
	hasher := security.NewHasher(bcrypt.MinCost)
	verifier := otp.NewVerifier(otp.NewMemoryStore(), 10*time.Minute)
	h := New(
		service.NewAuthService(repo, hasher, tokens, 3),
		service.NewProfileService(repo, hasher, verifier, dropMessenger{}),
		zap.NewNop(),
	)

	r := gin.New()
	r.Use(middleware.Auth(tokens, map[string]bool{
		"POST /api/v1/auth/register": true,
		"POST /api/v1/auth/login":    true,
	}))
	api := r.Group("/api/v1")
	h.Register(api, api, api)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterLoginMe(t *testing.T) {
	r := newTestRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "owner@example.com", "password": "s3cret-pass", "gym_name": "Iron Temple",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d, body %s", w.Code, w.Body.String())
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "owner@example.com", "password": "s3cret-pass",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var login struct {
		AccessToken string `json:"access_token"`
		GymName     string `json:"gym_name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	if login.AccessToken == "" || login.GymName != "Iron Temple" {
		t.Fatalf("login response = %s", w.Body.String())
	}

	w = doJSON(t, r, http.MethodGet, "/api/v1/me", login.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", w.Code, w.Body.String())
	}
	var me struct {
		Email   string `json:"email"`
		GymName string `json:"gym_name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode me: %v", err)
	}
	if me.Email != "owner@example.com" || me.GymName != "Iron Temple" {
		t.Fatalf("me response = %s", w.Body.String())
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	r := newTestRouter(t)
	body := gin.H{"email": "owner@example.com", "password": "s3cret-pass", "gym_name": "Iron Temple"}

	if w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", body); w.Code != http.StatusCreated {
		t.Fatalf("first register status = %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", body); w.Code != http.StatusConflict {
		t.Fatalf("second register status = %d, want 409", w.Code)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "owner@example.com", "password": "s3cret-pass", "gym_name": "Iron Temple",
	})

	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "owner@example.com", "password": "wrong",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login status = %d, want 401", w.Code)
	}
}

func TestMeWithoutToken(t *testing.T) {
	r := newTestRouter(t)
	if w := doJSON(t, r, http.MethodGet, "/api/v1/me", "", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("me status = %d, want 401", w.Code)
	}
}

func TestPhoneVerifyWrongCode(t *testing.T) {
	r := newTestRouter(t)
	doJSON(t, r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "owner@example.com", "password": "s3cret-pass", "gym_name": "Iron Temple",
	})
	w := doJSON(t, r, http.MethodPost, "/api/v1/auth/login", "", gin.H{
		"email": "owner@example.com", "password": "s3cret-pass",
	})
	var login struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login: %v", err)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/me/phone", login.AccessToken, gin.H{"phone": "919876543210"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("request phone change status = %d, body %s", w.Code, w.Body.String())
	}
	w = doJSON(t, r, http.MethodPost, "/api/v1/me/phone/verify", login.AccessToken, gin.H{"code": "000000"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("verify status = %d, want 400", w.Code)
	}
}
