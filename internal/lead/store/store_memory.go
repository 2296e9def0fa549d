package store

import (
	"context"
	"slices"
	"sort"
	"sync"

	"loanbroker/internal/lead/models"
	id "loanbroker/pkg/domain"
	"loanbroker/pkg/platform/sentinel"
)

// InMemoryStore keeps leads in a map; List sorts newest first.
type InMemoryStore struct {
	mu    sync.RWMutex
	leads map[id.LeadID]*models.Lead
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{leads: make(map[id.LeadID]*models.Lead)}
}

func (s *InMemoryStore) Save(_ context.Context, lead *models.Lead) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.leads[lead.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.leads[lead.ID] = clone(lead)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, leadID id.LeadID) (*models.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	lead, ok := s.leads[leadID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(lead), nil
}

func (s *InMemoryStore) List(_ context.Context, filter models.ListFilter) ([]*models.Lead, int, error) {
	s.mu.RLock()
	matched := make([]*models.Lead, 0, len(s.leads))
	for _, lead := range s.leads {
		if filter.Matches(lead) {
			matched = append(matched, clone(lead))
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID.String() < matched[j].ID.String()
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	if filter.Offset >= total {
		return []*models.Lead{}, total, nil
	}
	end := total
	if filter.Limit > 0 && filter.Offset+filter.Limit < total {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

func clone(lead *models.Lead) *models.Lead {
	c := *lead
	c.Tags = slices.Clone(lead.Tags)
	return &c
}
