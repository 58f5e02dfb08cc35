package session

import (
	"context"
	"sync"

	"course-storefront/internal/domain"
)

// MemoryStore holds a single session in process memory. It backs the CLI
// and tests, where there is no browser cookie.
type MemoryStore struct {
	mu        sync.RWMutex
	sess      domain.Session
	cookie    string
	selection *domain.Course
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sess: domain.GuestSession{}}
}

func (s *MemoryStore) Current(context.Context) domain.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess
}

func (s *MemoryStore) Establish(_ context.Context, user domain.User, backendCookie string) (domain.Session, error) {
	sess, err := domain.SessionFromUser(user)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.sess = sess
	s.cookie = backendCookie
	s.mu.Unlock()
	return sess, nil
}

func (s *MemoryStore) Destroy(context.Context) error {
	s.mu.Lock()
	s.sess = domain.GuestSession{}
	s.cookie = ""
	s.selection = nil
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) BackendCookie(context.Context) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cookie
}

func (s *MemoryStore) SaveSelection(_ context.Context, course domain.Course) error {
	s.mu.Lock()
	s.selection = &course
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Selection(context.Context) (domain.Course, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selection == nil {
		return domain.Course{}, false
	}
	return *s.selection, true
}

func (s *MemoryStore) ClearSelection(context.Context) error {
	s.mu.Lock()
	s.selection = nil
	s.mu.Unlock()
	return nil
}
