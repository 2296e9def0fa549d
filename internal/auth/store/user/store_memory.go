package user

import (
	"context"
	"sync"

	"loanbroker/internal/auth/models"
	id "loanbroker/pkg/domain"
	"loanbroker/pkg/email"
	"loanbroker/pkg/platform/sentinel"
)

// InMemoryUserStore keeps users in maps keyed by ID and normalized email.
type InMemoryUserStore struct {
	mu      sync.RWMutex
	txMu    sync.Mutex
	byID    map[id.UserID]*models.User
	byEmail map[string]id.UserID
}

func New() *InMemoryUserStore {
	return &InMemoryUserStore{
		byID:    make(map[id.UserID]*models.User),
		byEmail: make(map[string]id.UserID),
	}
}

func (s *InMemoryUserStore) Save(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := email.Normalize(user.Email)
	if existing, ok := s.byEmail[key]; ok && existing != user.ID {
		return sentinel.ErrAlreadyUsed
	}
	clone := *user
	s.byID[user.ID] = &clone
	s.byEmail[key] = user.ID
	return nil
}

func (s *InMemoryUserStore) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *InMemoryUserStore) FindByEmail(_ context.Context, address string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.byEmail[email.Normalize(address)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[userID]
	return &clone, nil
}

// RunInTx serializes check-then-save sequences.
func (s *InMemoryUserStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()
	return fn(ctx)
}
