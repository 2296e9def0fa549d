package store

import (
	"context"
	"sort"
	"sync"

	"loanbroker/internal/application/models"
	id "loanbroker/pkg/domain"
	"loanbroker/pkg/platform/sentinel"
)

// InMemoryStore keeps applications in a map guarded by a RWMutex.
type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*models.Application
	refs map[string]id.ApplicationID
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{
		apps: make(map[id.ApplicationID]*models.Application),
		refs: make(map[string]id.ApplicationID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.apps[app.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if _, ok := s.refs[app.Reference]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.apps[app.ID] = app.Clone()
	s.refs[app.Reference] = app.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, appID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	app, ok := s.apps[appID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

func (s *InMemoryStore) ListByUser(_ context.Context, userID id.UserID) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Application
	for _, app := range s.apps {
		if app.UserID == userID {
			out = append(out, app.Clone())
		}
	}
	return out, nil
}

// List returns matches ordered by submission time, oldest first.
func (s *InMemoryStore) List(_ context.Context, filter models.ReviewFilter) ([]*models.Application, int, error) {
	s.mu.RLock()
	var matched []*models.Application
	for _, app := range s.apps {
		if filter.Matches(app) {
			matched = append(matched, app.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := queueTime(matched[i]), queueTime(matched[j])
		if a.Equal(b) {
			return matched[i].Reference < matched[j].Reference
		}
		return a.Before(b)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []*models.Application{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

func (s *InMemoryStore) Update(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.apps[app.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if current.Version != app.Version-1 {
		return sentinel.ErrStale
	}
	s.apps[app.ID] = app.Clone()
	return nil
}
