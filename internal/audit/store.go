package audit

import (
	"context"
	"sync"

	id "profreg/pkg/domain"
)

// Store is the append-only persistence behind the audit trail.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByEntity(ctx context.Context, entityID id.EntityID) ([]Event, error)
}

// InMemoryStore keeps events in memory for tests and local development.
type InMemoryStore struct {
	mu     sync.RWMutex
	events []Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityID id.EntityID) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Event
	for _, event := range s.events {
		if event.EntityID == entityID {
			out = append(out, event)
		}
	}
	return out, nil
}
