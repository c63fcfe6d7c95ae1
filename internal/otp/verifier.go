package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoPendingRequest is returned when no code has been issued for the
	// requester, or the issued code already expired or was consumed.
	ErrNoPendingRequest = errors.New("otp: no pending verification request")
	// ErrInvalidCode is returned when the submitted code does not match the
	// pending one. The pending request stays live for further attempts.
	ErrInvalidCode = errors.New("otp: invalid code")
)

// Verifier issues codes and redeems them exactly once.
type Verifier struct {
	store Store
	ttl   time.Duration
	nowF  func() time.Time
}

func NewVerifier(store Store, ttl time.Duration) *Verifier {
	return &Verifier{store: store, ttl: ttl, nowF: time.Now}
}

// TTL reports the validity window issued codes carry.
func (v *Verifier) TTL() time.Duration {
	return v.ttl
}

func key(purpose, requesterID string) string {
	return fmt.Sprintf("otp:%s:%s", purpose, requesterID)
}

// Issue generates a fresh code for the requester and stores it alongside the
// payload. Any previous pending request for the same purpose and requester is
// replaced, so only the newest code redeems.
func (v *Verifier) Issue(ctx context.Context, purpose, requesterID, payload string) (string, error) {
	code, err := GenerateCode()
	if err != nil {
		return "", err
	}
	now := v.nowF()
	req := Request{
		Code:      code,
		Payload:   payload,
		IssuedAt:  now,
		ExpiresAt: now.Add(v.ttl),
	}
	if err := v.store.Put(ctx, key(purpose, requesterID), req, v.ttl); err != nil {
		return "", err
	}
	return code, nil
}

// Validate checks the submitted code against the pending request. On match it
// consumes the request and returns its payload; a concurrent duplicate loses
// the consume race and gets ErrNoPendingRequest. Expired requests behave as
// if never issued.
func (v *Verifier) Validate(ctx context.Context, purpose, requesterID, code string) (string, error) {
	k := key(purpose, requesterID)
	req, ok, err := v.store.Get(ctx, k)
	if err != nil {
		return "", err
	}
	if !ok || v.nowF().After(req.ExpiresAt) {
		return "", ErrNoPendingRequest
	}
	if subtle.ConstantTimeCompare([]byte(req.Code), []byte(code)) != 1 {
		return "", ErrInvalidCode
	}
	consumed, err := v.store.Delete(ctx, k)
	if err != nil {
		return "", err
	}
	if !consumed {
		return "", ErrNoPendingRequest
	}
	return req.Payload, nil
}

// Peek returns the pending request without consuming it. Only the development
// inspection endpoint uses this.
func (v *Verifier) Peek(ctx context.Context, purpose, requesterID string) (Request, error) {
	req, ok, err := v.store.Get(ctx, key(purpose, requesterID))
	if err != nil {
		return Request{}, err
	}
	if !ok {
		return Request{}, ErrNoPendingRequest
	}
	return req, nil
}
