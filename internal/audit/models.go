package audit

import (
	"time"

	id "profreg/pkg/domain"
)

// Action identifies an auditable register mutation.
type Action string

const (
	ActionEntityCreated  Action = "entity.created"
	ActionDraftCreated   Action = "draft.created"
	ActionDraftUpdated   Action = "draft.updated"
	ActionDraftDiscarded Action = "draft.discarded"
	ActionPublished      Action = "version.published"
	ActionWithdrawn      Action = "entity.withdrawn"
	ActionUserInvited    Action = "user.invited"
	ActionUserConfirmed  Action = "user.confirmed"
	ActionUserArchived   Action = "user.archived"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp  time.Time     `json:"timestamp"`
	ActorID    id.UserID     `json:"actor_id"`
	Action     Action        `json:"action"`
	EntityID   id.EntityID   `json:"entity_id,omitempty"`
	EntityType id.EntityType `json:"entity_type,omitempty"`
	VersionID  id.VersionID  `json:"version_id,omitempty"`
	Slug       string        `json:"slug,omitempty"`
	Detail     string        `json:"detail,omitempty"`
}
