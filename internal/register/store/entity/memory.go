// Package entity provides stores for the stable entity records behind
// professions and organisations.
package entity

import (
	"context"
	"sync"

	id "profreg/pkg/domain"
	"profreg/internal/register/models"
	"profreg/pkg/platform/sentinel"
)

// InMemory keeps entities in a map. Used in tests and local development; the
// Postgres store is authoritative in deployments.
type InMemory struct {
	mu       sync.RWMutex
	entities map[id.EntityID]models.Entity
}

func NewInMemory() *InMemory {
	return &InMemory{entities: make(map[id.EntityID]models.Entity)}
}

func (s *InMemory) Create(_ context.Context, entity *models.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[entity.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.entities[entity.ID] = *entity
	return nil
}

func (s *InMemory) FindByID(_ context.Context, entityID id.EntityID) (*models.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[entityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := entity
	return &out, nil
}

// Delete removes an entity record. Callers must first establish the entity has
// never been confirmed; versions cascade at the service layer for the memory
// store (the database handles it via ON DELETE CASCADE).
func (s *InMemory) Delete(_ context.Context, entityID id.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[entityID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.entities, entityID)
	return nil
}
