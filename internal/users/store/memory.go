// Package store provides user persistence. Both implementations enforce the
// conditional external identifier uniqueness rule at the storage level: the
// identifier is unique only among confirmed, non-archived holders.
package store

import (
	"context"
	"sort"
	"sync"

	"profreg/internal/users/models"
	id "profreg/pkg/domain"
	"profreg/pkg/platform/sentinel"
)

// InMemory keeps users in a map guarded by a RWMutex. It mirrors the
// Postgres partial unique index in checkIdentifier so unit tests exercise
// the same failure mode as production.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]models.User)}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if err := s.checkIdentifier(user); err != nil {
		return err
	}
	s.users[user.ID] = *user
	return nil
}

func (s *InMemory) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkIdentifier(user); err != nil {
		return err
	}
	s.users[user.ID] = *user
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &user, nil
}

// FindByExternalIdentifier resolves a login identity to its current holder.
// Only confirmed, non-archived users are reachable this way.
func (s *InMemory) FindByExternalIdentifier(_ context.Context, identifier string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.ExternalIdentifier == identifier && user.HoldsIdentifier() {
			out := user
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// List returns all users ordered by creation time then ID for a stable
// listing.
func (s *InMemory) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.User, 0, len(s.users))
	for _, user := range s.users {
		u := user
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// IdentifierInUse reports whether another confirmed, non-archived user holds
// the identifier. The excluded user never blocks themselves.
func (s *InMemory) IdentifierInUse(_ context.Context, identifier string, excluding id.UserID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.identifierHeld(identifier, excluding), nil
}

// checkIdentifier mirrors the partial unique index on external_identifier.
// Caller holds the write lock.
func (s *InMemory) checkIdentifier(user *models.User) error {
	if !user.HoldsIdentifier() {
		return nil
	}
	if s.identifierHeld(user.ExternalIdentifier, user.ID) {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *InMemory) identifierHeld(identifier string, excluding id.UserID) bool {
	if identifier == "" {
		return false
	}
	for userID, user := range s.users {
		if userID == excluding {
			continue
		}
		if user.ExternalIdentifier == identifier && user.HoldsIdentifier() {
			return true
		}
	}
	return false
}
