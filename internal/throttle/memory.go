package throttle

import (
	"context"
	"sync"

	"github.com/udecfit/backend/internal/model"
)

// MemoryStore implements AttemptStore using an in-memory map. Used in
// DEV_MODE and in tests.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]model.LoginAttempt
}

// NewMemoryStore creates an empty in-memory attempt store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.LoginAttempt)}
}

func (s *MemoryStore) Get(ctx context.Context, email string) (*model.LoginAttempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[email]
	if !ok {
		return &model.LoginAttempt{Email: email}, nil
	}
	return &rec, nil
}

func (s *MemoryStore) Reset(ctx context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[email] = model.LoginAttempt{Email: email}
	return nil
}

func (s *MemoryStore) CompareAndSet(ctx context.Context, email string, expected, next model.LoginAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.records[email]
	if !ok {
		cur = model.LoginAttempt{Email: email}
	}
	if cur.Attempts != expected.Attempts || cur.BlockedUntil != expected.BlockedUntil {
		return ErrConflict
	}

	s.records[email] = next
	return nil
}
