package otp

import (
	"context"
	"sync"
	"time"
)

// Request is a pending verification: the code the requester must echo back
// and the payload to act on once they do (for phone verification, the number
// being claimed).
type Request struct {
	Code      string    `json:"code"`
	Payload   string    `json:"payload"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Store holds at most one pending request per key. Put overwrites any
// existing request for the key, so a reissue invalidates the previous code.
// Delete reports whether a request existed, which is what makes consumption
// single-use under concurrent validation.
type Store interface {
	Put(ctx context.Context, key string, req Request, ttl time.Duration) error
	Get(ctx context.Context, key string) (Request, bool, error)
	Delete(ctx context.Context, key string) (bool, error)
}

// MemoryStore is an in-process Store for tests and single-node development.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]Request
	nowF func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]Request), nowF: time.Now}
}

func (s *MemoryStore) Put(_ context.Context, key string, req Request, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = req
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Request, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.data[key]
	if !ok {
		return Request{}, false, nil
	}
	if s.nowF().After(req.ExpiresAt) {
		delete(s.data, key)
		return Request{}, false, nil
	}
	return req, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[key]
	delete(s.data, key)
	return ok, nil
}
