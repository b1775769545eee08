package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"profreg/internal/audit"
	"profreg/internal/register/models"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/platform/sentinel"
)

// Publish confirms a draft version, making it the entity's single live
// version. If the entity already has a live version it is archived in the
// same critical section, so readers observe either the old version or the
// new one, never both and never neither.
//
// A slug is assigned on the version's first confirmation and kept for its
// lifetime. When two publishes race on the same entity one of them loses the
// critical section and returns a conflict error; callers may retry.
func (s *Service) Publish(ctx context.Context, versionID id.VersionID, actor id.UserID) (*models.Version, error) {
	ctx, span := s.tracer.Start(ctx, "register.Publish",
		trace.WithAttributes(attribute.String("version_id", versionID.String())))
	defer span.End()

	located, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "version not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load version")
	}
	entity, err := s.entities.FindByID(ctx, located.EntityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}

	start := s.now()
	var published *models.Version
	var previousSlug string

	err = s.tx.Run(ctx, entity.ID, func(ctx context.Context) error {
		draft, err := s.versions.FindByID(ctx, versionID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "version not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load version")
		}
		if err := draft.CanConfirm(); err != nil {
			return err
		}

		// The slug belongs to the entity's published identity, not to the
		// snapshot: a republish inherits it from the outgoing live version.
		// Only an entity with no live version derives a fresh one.
		slugValue := draft.Slug
		var demoted *models.Version
		current, err := s.versions.FindByEntityAndStatus(ctx, entity.ID, models.StatusConfirmed)
		switch {
		case err == nil:
			previousSlug = current.Slug
			if slugValue == "" {
				slugValue = current.Slug
			}
			if err := current.CanArchive(); err != nil {
				return err
			}
			snapshot := *current
			current.ApplyArchive(s.now())
			if err := s.versions.Update(ctx, current); err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to archive previous version")
			}
			demoted = &snapshot
		case errors.Is(err, sentinel.ErrNotFound):
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load live version")
		}
		if slugValue == "" {
			slugValue, err = s.slugs.Reserve(ctx, draft.Payload.Name, entity.Type)
			if err != nil {
				return err
			}
		}

		draft.ApplyConfirmation(slugValue, s.now())
		if err := s.versions.Update(ctx, draft); err != nil {
			// The memory backend has no transaction to roll back: put the
			// demoted version back so the entity never ends up published with
			// zero confirmed versions. On Postgres the surrounding rollback
			// restores it regardless of this write's outcome.
			if demoted != nil {
				if restoreErr := s.versions.Update(ctx, demoted); restoreErr != nil {
					s.logger.ErrorContext(ctx, "failed to restore demoted version",
						"entity_id", entity.ID.String(),
						"version_id", demoted.ID.String(),
						"error", restoreErr.Error(),
					)
				}
			}
			return translatePublishErr(err)
		}
		published = draft

		s.logAudit(ctx, audit.Event{
			ActorID:    actor,
			Action:     audit.ActionPublished,
			EntityID:   entity.ID,
			EntityType: entity.Type,
			VersionID:  draft.ID,
			Slug:       slugValue,
			Timestamp:  draft.UpdatedAt,
		})
		return nil
	})
	if err != nil {
		err = translateTxErr(err)
		if dErrors.HasCode(err, dErrors.CodeConflict) {
			s.metrics.IncrementPublishConflicts()
		}
		span.RecordError(err)
		return nil, err
	}

	s.metrics.IncrementPublishes()
	s.metrics.ObservePublish(start)
	s.liveCache.Invalidate(ctx, entity.Type, entity.ID, previousSlug)
	s.liveCache.SetLive(ctx, entity.Type, published)
	return published, nil
}

// Withdraw archives the entity's live version, removing it from public view.
// Draft versions are untouched. Withdrawing an entity with no live version
// is a no-op so retried withdrawals stay safe.
func (s *Service) Withdraw(ctx context.Context, entityID id.EntityID, actor id.UserID) error {
	ctx, span := s.tracer.Start(ctx, "register.Withdraw",
		trace.WithAttributes(attribute.String("entity_id", entityID.String())))
	defer span.End()

	entity, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}

	var archivedSlug string
	withdrew := false

	err = s.tx.Run(ctx, entityID, func(ctx context.Context) error {
		current, err := s.versions.FindByEntityAndStatus(ctx, entityID, models.StatusConfirmed)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load live version")
		}
		if err := current.CanArchive(); err != nil {
			return err
		}
		current.ApplyArchive(s.now())
		if err := s.versions.Update(ctx, current); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to archive live version")
		}
		archivedSlug = current.Slug
		withdrew = true

		s.logAudit(ctx, audit.Event{
			ActorID:    actor,
			Action:     audit.ActionWithdrawn,
			EntityID:   entityID,
			EntityType: entity.Type,
			VersionID:  current.ID,
			Slug:       current.Slug,
			Timestamp:  current.UpdatedAt,
		})
		return nil
	})
	if err != nil {
		return translateTxErr(err)
	}

	if withdrew {
		s.metrics.IncrementWithdrawals()
		s.liveCache.Invalidate(ctx, entity.Type, entityID, archivedSlug)
	}
	return nil
}

// translatePublishErr maps storage unique-violation sentinels onto the
// publish taxonomy. The partial indexes are the authoritative guards; these
// sentinels surface when a racing publish got there first.
func translatePublishErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "another version was published concurrently")
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		return dErrors.New(dErrors.CodeConflict, "slug claimed by a concurrent publication")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "version not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to confirm version")
	}
}
