package models

import (
	"time"

	id "profreg/pkg/domain"
)

// Entity is the stable logical record behind a Profession or Organisation.
// Its identity never changes; all mutable data lives on its versions.
//
// Invariants:
//   - Type is immutable after creation
//   - At most one of its versions has StatusConfirmed at any instant
//   - Once any version has been confirmed the entity is never hard-deleted;
//     it is withdrawn (live version archived) instead
type Entity struct {
	ID        id.EntityID   `json:"id"`
	Type      id.EntityType `json:"type"`
	CreatedAt time.Time     `json:"created_at"`
}

// NewEntity constructs an entity of the given type.
func NewEntity(entityID id.EntityID, entityType id.EntityType, now time.Time) *Entity {
	return &Entity{ID: entityID, Type: entityType, CreatedAt: now}
}
