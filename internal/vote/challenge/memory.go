package challenge

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore keeps challenge state in process-local maps, one entry per
// user and kind.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]entry
	verified   map[string]entry

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]entry),
		verified:   make(map[string]entry),
		now:        time.Now,
	}
}

func (s *MemoryStore) PutChallenge(ctx context.Context, userID, value string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[userID] = entry{value: value, expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) TakeChallenge(ctx context.Context, userID string) (string, time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.challenges[userID]
	delete(s.challenges, userID)
	if !ok {
		return "", time.Time{}, ErrNotFound
	}
	return e.value, e.expiresAt, nil
}

func (s *MemoryStore) PutVerified(ctx context.Context, userID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verified[userID] = entry{expiresAt: expiresAt}
	return nil
}

func (s *MemoryStore) TakeVerified(ctx context.Context, userID string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.verified[userID]
	delete(s.verified, userID)
	if !ok {
		return time.Time{}, ErrNotFound
	}
	return e.expiresAt, nil
}

// Sweep drops expired entries from both maps.
func (s *MemoryStore) Sweep(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for k, e := range s.challenges {
		if now.After(e.expiresAt) {
			delete(s.challenges, k)
		}
	}
	for k, e := range s.verified {
		if now.After(e.expiresAt) {
			delete(s.verified, k)
		}
	}
	return nil
}
