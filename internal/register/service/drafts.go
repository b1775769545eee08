package service

import (
	"context"
	"errors"

	"profreg/internal/audit"
	"profreg/internal/register/models"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/platform/sentinel"
)

// CreateEntity allocates a new entity together with its first empty draft,
// as one atomic operation.
func (s *Service) CreateEntity(ctx context.Context, entityType id.EntityType, actor id.UserID) (*models.Entity, *models.Version, error) {
	if !entityType.IsValid() {
		return nil, nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity type")
	}

	now := s.now()
	entity := models.NewEntity(id.NewEntityID(), entityType, now)
	draft := models.NewDraft(id.NewVersionID(), entity.ID, now)

	err := s.tx.RunNew(ctx, func(ctx context.Context) error {
		if err := s.entities.Create(ctx, entity); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create entity")
		}
		if err := s.versions.Create(ctx, draft, entityType); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create first draft")
		}
		s.logAudit(ctx, audit.Event{
			ActorID:    actor,
			Action:     audit.ActionEntityCreated,
			EntityID:   entity.ID,
			EntityType: entityType,
			VersionID:  draft.ID,
			Timestamp:  now,
		})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.metrics.IncrementDraftsCreated()
	return entity, draft, nil
}

// CreateDraft opens a new draft for an entity, cloned from the live version
// when one exists. At most one open draft per entity: a second call while a
// draft exists fails with InvalidState (use GetEditable to resume it).
func (s *Service) CreateDraft(ctx context.Context, entityID id.EntityID, actor id.UserID) (*models.Version, error) {
	var draft *models.Version

	err := s.tx.Run(ctx, entityID, func(ctx context.Context) error {
		entity, err := s.entities.FindByID(ctx, entityID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "entity not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
		}

		if _, err := s.versions.FindByEntityAndStatus(ctx, entityID, models.StatusDraft); err == nil {
			return dErrors.New(dErrors.CodeInvalidState, "a draft already exists for this entity")
		} else if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for open draft")
		}

		draft, err = s.newDraftFromLive(ctx, entity)
		if err != nil {
			return err
		}
		s.logAudit(ctx, audit.Event{
			ActorID:    actor,
			Action:     audit.ActionDraftCreated,
			EntityID:   entityID,
			EntityType: entity.Type,
			VersionID:  draft.ID,
			Timestamp:  draft.CreatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, translateTxErr(err)
	}

	s.metrics.IncrementDraftsCreated()
	return draft, nil
}

// newDraftFromLive clones the live version into a fresh draft, or produces an
// empty draft for a never-published entity. Caller holds the entity lock.
func (s *Service) newDraftFromLive(ctx context.Context, entity *models.Entity) (*models.Version, error) {
	now := s.now()
	live, err := s.versions.FindByEntityAndStatus(ctx, entity.ID, models.StatusConfirmed)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load live version")
		}
		live = nil
	}

	var draft *models.Version
	if live != nil {
		draft = live.CloneAsDraft(id.NewVersionID(), now)
	} else {
		draft = models.NewDraft(id.NewVersionID(), entity.ID, now)
	}
	if err := s.versions.Create(ctx, draft, entity.Type); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create draft")
	}
	return draft, nil
}

// UpdateDraft applies a patch to a draft version. The state check runs inside
// the entity critical section so a concurrent publish cannot slip between
// check and write.
func (s *Service) UpdateDraft(ctx context.Context, versionID id.VersionID, patch models.Patch, actor id.UserID) (*models.Version, error) {
	if patch.IsEmpty() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "patch contains no changes")
	}

	located, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "version not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load version")
	}

	var updated *models.Version
	err = s.tx.Run(ctx, located.EntityID, func(ctx context.Context) error {
		// Re-read under the lock; the version may have been published or
		// discarded since the lookup above.
		current, err := s.versions.FindByID(ctx, versionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "version not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load version")
		}
		if err := current.CanEdit(); err != nil {
			return err
		}

		current.ApplyPatch(patch, s.now())
		if err := s.versions.Update(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to update draft")
		}
		updated = current

		s.logAudit(ctx, audit.Event{
			ActorID:   actor,
			Action:    audit.ActionDraftUpdated,
			EntityID:  current.EntityID,
			VersionID: current.ID,
			Timestamp: current.UpdatedAt,
		})
		return nil
	})
	if err != nil {
		return nil, translateTxErr(err)
	}
	return updated, nil
}

// DiscardDraft hard-deletes a draft that has never been confirmed.
func (s *Service) DiscardDraft(ctx context.Context, versionID id.VersionID, actor id.UserID) error {
	located, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "version not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load version")
	}

	err = s.tx.Run(ctx, located.EntityID, func(ctx context.Context) error {
		current, err := s.versions.FindByID(ctx, versionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "version not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load version")
		}
		if err := current.CanDiscard(); err != nil {
			return err
		}
		if err := s.versions.Delete(ctx, versionID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to discard draft")
		}
		s.logAudit(ctx, audit.Event{
			ActorID:   actor,
			Action:    audit.ActionDraftDiscarded,
			EntityID:  current.EntityID,
			VersionID: current.ID,
			Timestamp: s.now(),
		})
		return nil
	})
	return translateTxErr(err)
}

// DeleteEntity hard-deletes an entity that has never had a confirmed version,
// cascading to its drafts. Entities with any published history are withdrawn
// instead, never deleted.
func (s *Service) DeleteEntity(ctx context.Context, entityID id.EntityID, actor id.UserID) error {
	err := s.tx.Run(ctx, entityID, func(ctx context.Context) error {
		history, err := s.versions.ListByEntity(ctx, entityID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load version history")
		}
		for _, v := range history {
			if v.Status != models.StatusDraft {
				return dErrors.New(dErrors.CodeInvalidState, "entities with published history cannot be deleted")
			}
		}
		if err := s.versions.DeleteByEntity(ctx, entityID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete versions")
		}
		if err := s.entities.Delete(ctx, entityID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete entity")
		}
		return nil
	})
	return translateTxErr(err)
}

// ListVersions returns the entity's full version history, most recently
// updated first.
func (s *Service) ListVersions(ctx context.Context, entityID id.EntityID) ([]*models.Version, error) {
	if _, err := s.entities.FindByID(ctx, entityID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}
	history, err := s.versions.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list versions")
	}
	return history, nil
}

// translateTxErr maps critical-section sentinels onto the caller-facing
// taxonomy. Domain errors raised inside fn pass through untouched.
func translateTxErr(err error) error {
	if err == nil {
		return nil
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "entity not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "a concurrent operation on this entity is in flight")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "entity transaction failed")
	}
}
