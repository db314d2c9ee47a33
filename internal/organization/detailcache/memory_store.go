package detailcache

import (
	"context"
	"sync"

	"github.com/smallbiznis/notewall/internal/organization/domain"
)

// MemoryStore keeps details in process memory.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]map[string]domain.OrganizationDetail
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]map[string]domain.OrganizationDetail)}
}

func (s *MemoryStore) Get(_ context.Context, session, organizationName string) (domain.OrganizationDetail, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	detail, ok := s.sessions[session][organizationName]
	return detail, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, session, organizationName string, detail domain.OrganizationDetail) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, ok := s.sessions[session]
	if !ok {
		entries = make(map[string]domain.OrganizationDetail)
		s.sessions[session] = entries
	}
	entries[organizationName] = detail
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, session, organizationName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions[session], organizationName)
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, session string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, session)
	return nil
}
