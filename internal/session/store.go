package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound           = errors.New("session not found")
	ErrNoWizardSelection  = errors.New("no wizard selection saved")
	ErrWizardNotConfirmed = errors.New("wizard selection not confirmed")
)

// Store persists sessions between requests.
type Store interface {
	Get(ctx context.Context, id uuid.UUID) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type memoryStore struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]Session
	ttl      time.Duration
	now      func() time.Time
}

// NewMemoryStore keeps sessions in process memory. Both Get and Save mark a
// session as seen; sessions unseen for longer than ttl are dropped on access.
// ttl <= 0 disables expiry.
func NewMemoryStore(ttl time.Duration) Store {
	return &memoryStore{
		sessions: make(map[uuid.UUID]Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (m *memoryStore) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.evictLocked()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	s.UpdatedAt = m.now()
	m.sessions[id] = s

	s.Symptoms = clone(s.Symptoms)
	s.Wizard.Selected = clone(s.Wizard.Selected)
	s.persisted = true
	return &s, nil
}

func (m *memoryStore) Save(ctx context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s.UpdatedAt = m.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.UpdatedAt
	}
	stored := *s
	stored.Symptoms = clone(s.Symptoms)
	stored.Wizard.Selected = clone(s.Wizard.Selected)
	m.sessions[s.ID] = stored
	s.persisted = true
	return nil
}

func (m *memoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memoryStore) evictLocked() {
	if m.ttl <= 0 {
		return
	}
	cutoff := m.now().Add(-m.ttl)
	for id, s := range m.sessions {
		if s.UpdatedAt.Before(cutoff) {
			delete(m.sessions, id)
		}
	}
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
