package service

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"profreg/internal/register/models"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/platform/sentinel"
)

// GetLive returns the entity's confirmed version, or nil when the entity
// exists but has never been published or has been withdrawn. Callers render
// the nil case as "not currently registered", distinct from an unknown
// entity which is a NotFound error.
func (s *Service) GetLive(ctx context.Context, entityID id.EntityID) (*models.Version, error) {
	entity, err := s.entities.FindByID(ctx, entityID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "entity not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}

	if cached := s.liveCache.GetLive(ctx, entityID); cached != nil {
		s.metrics.RecordCacheHit(entity.Type.String())
		return cached, nil
	}
	s.metrics.RecordCacheMiss(entity.Type.String())

	live, err := s.versions.FindByEntityAndStatus(ctx, entityID, models.StatusConfirmed)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load live version")
	}

	s.liveCache.SetLive(ctx, entity.Type, live)
	return live, nil
}

// GetBySlug resolves a public slug to the live version holding it. Slugs are
// scoped per entity type; only confirmed versions are reachable this way.
func (s *Service) GetBySlug(ctx context.Context, entityType id.EntityType, slugValue string) (*models.Version, error) {
	if !entityType.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity type")
	}
	if slugValue == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "slug must not be empty")
	}

	if cached := s.liveCache.GetBySlug(ctx, entityType, slugValue); cached != nil {
		s.metrics.RecordCacheHit(entityType.String())
		return cached, nil
	}
	s.metrics.RecordCacheMiss(entityType.String())

	live, err := s.versions.FindConfirmedBySlug(ctx, entityType, slugValue)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no published record for this slug")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve slug")
	}

	s.liveCache.SetLive(ctx, entityType, live)
	return live, nil
}

// GetEditable returns the version an editor should work on: the open draft
// when one exists, otherwise a new draft cloned from the live version,
// otherwise a new empty draft. Selection and creation share the entity
// critical section so two editors resolve to the same draft.
func (s *Service) GetEditable(ctx context.Context, entityID id.EntityID, actor id.UserID) (*models.Version, error) {
	var editable *models.Version

	err := s.tx.Run(ctx, entityID, func(ctx context.Context) error {
		entity, err := s.entities.FindByID(ctx, entityID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "entity not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
		}

		draft, err := s.versions.FindByEntityAndStatus(ctx, entityID, models.StatusDraft)
		if err == nil {
			editable = draft
			return nil
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check for open draft")
		}

		editable, err = s.newDraftFromLive(ctx, entity)
		return err
	})
	if err != nil {
		return nil, translateTxErr(err)
	}
	return editable, nil
}

// ProfessionView is a live profession joined with the live versions of its
// regulating organisations.
type ProfessionView struct {
	Profession    *models.Version   `json:"profession"`
	Organisations []*models.Version `json:"organisations"`
}

// GetProfessionView resolves a profession slug and fans out to the live
// versions of its regulating organisations. Organisations that are withdrawn
// or unpublished are omitted rather than failing the whole view.
func (s *Service) GetProfessionView(ctx context.Context, slugValue string) (*ProfessionView, error) {
	profession, err := s.GetBySlug(ctx, id.EntityTypeProfession, slugValue)
	if err != nil {
		return nil, err
	}

	orgIDs := profession.Payload.OrganisationIDs
	organisations := make([]*models.Version, len(orgIDs))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, orgID := range orgIDs {
		g.Go(func() error {
			live, err := s.GetLive(gctx, orgID)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeNotFound) {
					return nil
				}
				return err
			}
			mu.Lock()
			organisations[i] = live
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	view := &ProfessionView{Profession: profession}
	for _, org := range organisations {
		if org != nil {
			view.Organisations = append(view.Organisations, org)
		}
	}
	return view, nil
}
