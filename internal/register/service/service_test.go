package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"profreg/internal/audit"
	"profreg/internal/register/models"
	"profreg/internal/register/slug"
	"profreg/internal/register/store"
	entitystore "profreg/internal/register/store/entity"
	versionstore "profreg/internal/register/store/version"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
	"profreg/pkg/platform/sentinel"
)

// failingConfirmStore makes the next confirmation write lose the cross-entity
// slug race the storage invariants guard against.
type failingConfirmStore struct {
	*versionstore.InMemory
	mu   sync.Mutex
	fail bool
}

func (f *failingConfirmStore) failNextConfirm() {
	f.mu.Lock()
	f.fail = true
	f.mu.Unlock()
}

func (f *failingConfirmStore) Update(ctx context.Context, v *models.Version) error {
	f.mu.Lock()
	shouldFail := f.fail && v.Status == models.StatusConfirmed
	if shouldFail {
		f.fail = false
	}
	f.mu.Unlock()
	if shouldFail {
		return sentinel.ErrAlreadyUsed
	}
	return f.InMemory.Update(ctx, v)
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Emit(_ context.Context, event audit.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) actions() []audit.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]audit.Action, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Action)
	}
	return out
}

type ServiceSuite struct {
	suite.Suite
	ctx      context.Context
	svc      *Service
	versions *versionstore.InMemory
	audits   *recordingAudit
	actor    id.UserID
	clock    time.Time
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.versions = versionstore.NewInMemory()
	s.audits = &recordingAudit{}
	s.actor = id.NewUserID()
	s.clock = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

	s.svc = New(
		entitystore.NewInMemory(),
		s.versions,
		store.NewMemoryEntityTx(),
		slug.New(s.versions),
		WithAuditPublisher(s.audits),
		WithClock(s.tick),
	)
}

// tick advances a deterministic clock by one second per call.
func (s *ServiceSuite) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) mustCreate(entityType id.EntityType) (*models.Entity, *models.Version) {
	entity, draft, err := s.svc.CreateEntity(s.ctx, entityType, s.actor)
	s.Require().NoError(err)
	return entity, draft
}

func (s *ServiceSuite) mustPublishNamed(entityType id.EntityType, name string) (*models.Entity, *models.Version) {
	entity, draft, err := s.svc.CreateEntity(s.ctx, entityType, s.actor)
	s.Require().NoError(err)
	_, err = s.svc.UpdateDraft(s.ctx, draft.ID, models.Patch{Name: &name}, s.actor)
	s.Require().NoError(err)
	published, err := s.svc.Publish(s.ctx, draft.ID, s.actor)
	s.Require().NoError(err)
	return entity, published
}

func strPtr(v string) *string { return &v }

func (s *ServiceSuite) TestCreateEntity() {
	s.Run("allocates entity with an empty first draft", func() {
		entity, draft := s.mustCreate(id.EntityTypeProfession)

		s.Equal(id.EntityTypeProfession, entity.Type)
		s.Equal(entity.ID, draft.EntityID)
		s.Equal(models.StatusDraft, draft.Status)
		s.Empty(draft.Slug)
		s.False(draft.Payload.QualificationID.IsNil())
	})

	s.Run("rejects unknown entity type", func() {
		_, _, err := s.svc.CreateEntity(s.ctx, id.EntityType("committee"), s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *ServiceSuite) TestDraftLifecycle() {
	s.Run("full editing round trip", func() {
		_, draft := s.mustCreate(id.EntityTypeProfession)

		updated, err := s.svc.UpdateDraft(s.ctx, draft.ID, models.Patch{
			Name:       strPtr("Example Profession"),
			Nations:    &[]string{"England"},
			Industries: &[]string{"Construction & Engineering"},
		}, s.actor)
		s.Require().NoError(err)
		s.Equal("Example Profession", updated.Payload.Name)
		s.Equal([]string{"england"}, updated.Payload.Nations)
		s.True(updated.UpdatedAt.After(draft.UpdatedAt))
	})

	s.Run("rejects an empty patch", func() {
		_, draft := s.mustCreate(id.EntityTypeProfession)
		_, err := s.svc.UpdateDraft(s.ctx, draft.ID, models.Patch{}, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("only one open draft per entity", func() {
		entity, _ := s.mustCreate(id.EntityTypeProfession)
		_, err := s.svc.CreateDraft(s.ctx, entity.ID, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("discard removes the draft", func() {
		entity, draft := s.mustCreate(id.EntityTypeProfession)
		s.Require().NoError(s.svc.DiscardDraft(s.ctx, draft.ID, s.actor))

		history, err := s.svc.ListVersions(s.ctx, entity.ID)
		s.Require().NoError(err)
		s.Empty(history)
	})

	s.Run("update after discard reports not found", func() {
		_, draft := s.mustCreate(id.EntityTypeProfession)
		s.Require().NoError(s.svc.DiscardDraft(s.ctx, draft.ID, s.actor))
		_, err := s.svc.UpdateDraft(s.ctx, draft.ID, models.Patch{Name: strPtr("x")}, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestPublish() {
	s.Run("edit then publish makes the version live", func() {
		entity, draft := s.mustCreate(id.EntityTypeProfession)

		_, err := s.svc.UpdateDraft(s.ctx, draft.ID, models.Patch{
			Name:       strPtr("Example Profession"),
			Nations:    &[]string{"England"},
			Industries: &[]string{"Construction & Engineering"},
		}, s.actor)
		s.Require().NoError(err)

		published, err := s.svc.Publish(s.ctx, draft.ID, s.actor)
		s.Require().NoError(err)
		s.Equal(models.StatusConfirmed, published.Status)
		s.Equal("example-profession", published.Slug)

		live, err := s.svc.GetLive(s.ctx, entity.ID)
		s.Require().NoError(err)
		s.Equal(published.ID, live.ID)
		s.Equal("Example Profession", live.Payload.Name)
		s.Equal([]string{"england"}, live.Payload.Nations)
		s.Equal([]string{"construction & engineering"}, live.Payload.Industries)

		history, err := s.svc.ListVersions(s.ctx, entity.ID)
		s.Require().NoError(err)
		s.Require().Len(history, 1)
		s.Equal(models.StatusConfirmed, history[0].Status)
	})

	s.Run("missing name fails validation without mutating state", func() {
		entity, draft := s.mustCreate(id.EntityTypeProfession)

		_, err := s.svc.Publish(s.ctx, draft.ID, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		fields := dErrors.FieldsOf(err)
		s.Require().Len(fields, 1)
		s.Equal("name", fields[0].Field)

		history, lerr := s.svc.ListVersions(s.ctx, entity.ID)
		s.Require().NoError(lerr)
		s.Require().Len(history, 1)
		s.Equal(models.StatusDraft, history[0].Status)
		s.Empty(history[0].Slug)
	})

	s.Run("publishing a confirmed version is rejected", func() {
		_, published := s.mustPublishNamed(id.EntityTypeProfession, "Surgeon")
		_, err := s.svc.Publish(s.ctx, published.ID, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})

	s.Run("republish archives the previous live and keeps the slug", func() {
		entity, first := s.mustPublishNamed(id.EntityTypeProfession, "Architect")

		draft, err := s.svc.CreateDraft(s.ctx, entity.ID, s.actor)
		s.Require().NoError(err)
		_, err = s.svc.UpdateDraft(s.ctx, draft.ID, models.Patch{Name: strPtr("Chartered Architect")}, s.actor)
		s.Require().NoError(err)

		second, err := s.svc.Publish(s.ctx, draft.ID, s.actor)
		s.Require().NoError(err)
		s.Equal("architect", second.Slug)

		history, err := s.svc.ListVersions(s.ctx, entity.ID)
		s.Require().NoError(err)
		s.Require().Len(history, 2)

		var confirmed, archived int
		for _, v := range history {
			switch v.Status {
			case models.StatusConfirmed:
				confirmed++
				s.Equal(second.ID, v.ID)
			case models.StatusArchived:
				archived++
				s.Equal(first.ID, v.ID)
			}
		}
		s.Equal(1, confirmed)
		s.Equal(1, archived)
	})

	s.Run("colliding names get disambiguated slugs", func() {
		_, first := s.mustPublishNamed(id.EntityTypeProfession, "Play Therapist")
		_, second := s.mustPublishNamed(id.EntityTypeProfession, "Play Therapist")
		_, third := s.mustPublishNamed(id.EntityTypeProfession, "Play Therapist")

		s.Equal("play-therapist", first.Slug)
		s.Equal("play-therapist-2", second.Slug)
		s.Equal("play-therapist-3", third.Slug)
	})

	s.Run("profession and organisation slugs are independent", func() {
		_, prof := s.mustPublishNamed(id.EntityTypeProfession, "General Council")
		_, org := s.mustPublishNamed(id.EntityTypeOrganisation, "General Council")
		s.Equal(prof.Slug, org.Slug)
	})

	s.Run("emits an audit trail", func() {
		s.mustPublishNamed(id.EntityTypeProfession, "Veterinary Nurse")
		s.Contains(s.audits.actions(), audit.ActionEntityCreated)
		s.Contains(s.audits.actions(), audit.ActionDraftUpdated)
		s.Contains(s.audits.actions(), audit.ActionPublished)
	})
}

func (s *ServiceSuite) TestFailedRepublishKeepsPreviousLive() {
	versions := &failingConfirmStore{InMemory: versionstore.NewInMemory()}
	svc := New(
		entitystore.NewInMemory(),
		versions,
		store.NewMemoryEntityTx(),
		slug.New(versions),
		WithClock(s.tick),
	)

	entity, draft, err := svc.CreateEntity(s.ctx, id.EntityTypeProfession, s.actor)
	s.Require().NoError(err)
	_, err = svc.UpdateDraft(s.ctx, draft.ID, models.Patch{Name: strPtr("Radiographer")}, s.actor)
	s.Require().NoError(err)
	first, err := svc.Publish(s.ctx, draft.ID, s.actor)
	s.Require().NoError(err)

	second, err := svc.CreateDraft(s.ctx, entity.ID, s.actor)
	s.Require().NoError(err)

	versions.failNextConfirm()
	_, err = svc.Publish(s.ctx, second.ID, s.actor)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	// The failed republish must not leave the entity published with no
	// live version: the demoted one is put back.
	live, err := svc.GetLive(s.ctx, entity.ID)
	s.Require().NoError(err)
	s.Require().NotNil(live)
	s.Equal(first.ID, live.ID)
	s.Equal(first.Slug, live.Slug)

	history, err := svc.ListVersions(s.ctx, entity.ID)
	s.Require().NoError(err)
	confirmed := 0
	for _, v := range history {
		if v.Status == models.StatusConfirmed {
			confirmed++
		}
	}
	s.Equal(1, confirmed)

	// The losing draft survives untouched and can be retried.
	retried, err := svc.Publish(s.ctx, second.ID, s.actor)
	s.Require().NoError(err)
	s.Equal("radiographer", retried.Slug)

	live, err = svc.GetLive(s.ctx, entity.ID)
	s.Require().NoError(err)
	s.Equal(retried.ID, live.ID)
}

func (s *ServiceSuite) TestWithdraw() {
	s.Run("archives the live version", func() {
		entity, _ := s.mustPublishNamed(id.EntityTypeOrganisation, "Example Org")

		s.Require().NoError(s.svc.Withdraw(s.ctx, entity.ID, s.actor))

		live, err := s.svc.GetLive(s.ctx, entity.ID)
		s.Require().NoError(err)
		s.Nil(live)

		_, err = s.svc.GetBySlug(s.ctx, id.EntityTypeOrganisation, "example-org")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("is safe to repeat", func() {
		entity, _ := s.mustPublishNamed(id.EntityTypeOrganisation, "Repeat Org")
		s.Require().NoError(s.svc.Withdraw(s.ctx, entity.ID, s.actor))
		s.Require().NoError(s.svc.Withdraw(s.ctx, entity.ID, s.actor))
	})

	s.Run("withdrawal releases the slug for reuse", func() {
		first, _ := s.mustPublishNamed(id.EntityTypeOrganisation, "Example Org")
		s.Require().NoError(s.svc.Withdraw(s.ctx, first.ID, s.actor))

		_, second := s.mustPublishNamed(id.EntityTypeOrganisation, "Example Org")
		s.Equal("example-org", second.Slug)
	})

	s.Run("unknown entity reports not found", func() {
		err := s.svc.Withdraw(s.ctx, id.NewEntityID(), s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *ServiceSuite) TestSelection() {
	s.Run("getLive is nil for a never published entity", func() {
		entity, _ := s.mustCreate(id.EntityTypeProfession)
		live, err := s.svc.GetLive(s.ctx, entity.ID)
		s.Require().NoError(err)
		s.Nil(live)
	})

	s.Run("getLive on unknown entity is not found", func() {
		_, err := s.svc.GetLive(s.ctx, id.NewEntityID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("getEditable resumes the open draft", func() {
		_, draft := s.mustCreate(id.EntityTypeProfession)
		editable, err := s.svc.GetEditable(s.ctx, draft.EntityID, s.actor)
		s.Require().NoError(err)
		s.Equal(draft.ID, editable.ID)
	})

	s.Run("getEditable clones the live version", func() {
		entity, published := s.mustPublishNamed(id.EntityTypeProfession, "Farrier")

		editable, err := s.svc.GetEditable(s.ctx, entity.ID, s.actor)
		s.Require().NoError(err)
		s.NotEqual(published.ID, editable.ID)
		s.Equal(models.StatusDraft, editable.Status)
		s.Equal("Farrier", editable.Payload.Name)
		s.Empty(editable.Slug)
		s.NotEqual(published.Payload.QualificationID, editable.Payload.QualificationID)

		// The live copy stays untouched by draft edits.
		_, err = s.svc.UpdateDraft(s.ctx, editable.ID, models.Patch{Name: strPtr("Master Farrier")}, s.actor)
		s.Require().NoError(err)
		live, err := s.svc.GetLive(s.ctx, entity.ID)
		s.Require().NoError(err)
		s.Equal("Farrier", live.Payload.Name)
	})

	s.Run("repeat getEditable returns the same draft", func() {
		entity, _ := s.mustPublishNamed(id.EntityTypeProfession, "Pilot")
		first, err := s.svc.GetEditable(s.ctx, entity.ID, s.actor)
		s.Require().NoError(err)
		second, err := s.svc.GetEditable(s.ctx, entity.ID, s.actor)
		s.Require().NoError(err)
		s.Equal(first.ID, second.ID)
	})

	s.Run("profession view joins live regulating organisations", func() {
		org, _ := s.mustPublishNamed(id.EntityTypeOrganisation, "Engineering Council")
		withdrawn, _ := s.mustPublishNamed(id.EntityTypeOrganisation, "Former Council")
		s.Require().NoError(s.svc.Withdraw(s.ctx, withdrawn.ID, s.actor))

		entity, draft := s.mustCreate(id.EntityTypeProfession)
		_, err := s.svc.UpdateDraft(s.ctx, draft.ID, models.Patch{
			Name:            strPtr("Chartered Engineer"),
			OrganisationIDs: &[]id.EntityID{org.ID, withdrawn.ID},
		}, s.actor)
		s.Require().NoError(err)
		_, err = s.svc.Publish(s.ctx, draft.ID, s.actor)
		s.Require().NoError(err)

		view, err := s.svc.GetProfessionView(s.ctx, "chartered-engineer")
		s.Require().NoError(err)
		s.Equal(entity.ID, view.Profession.EntityID)
		s.Require().Len(view.Organisations, 1)
		s.Equal("Engineering Council", view.Organisations[0].Payload.Name)
	})
}

func (s *ServiceSuite) TestDeleteEntity() {
	s.Run("removes never published entities", func() {
		entity, _ := s.mustCreate(id.EntityTypeProfession)
		s.Require().NoError(s.svc.DeleteEntity(s.ctx, entity.ID, s.actor))
		_, err := s.svc.GetLive(s.ctx, entity.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("refuses entities with published history", func() {
		entity, _ := s.mustPublishNamed(id.EntityTypeProfession, "Solicitor")
		s.Require().NoError(s.svc.Withdraw(s.ctx, entity.ID, s.actor))
		err := s.svc.DeleteEntity(s.ctx, entity.ID, s.actor)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidState))
	})
}

func (s *ServiceSuite) TestListVersionsOrdering() {
	entity, draft := s.mustCreate(id.EntityTypeProfession)
	_, err := s.svc.UpdateDraft(s.ctx, draft.ID, models.Patch{Name: strPtr("Teacher")}, s.actor)
	s.Require().NoError(err)
	_, err = s.svc.Publish(s.ctx, draft.ID, s.actor)
	s.Require().NoError(err)

	second, err := s.svc.CreateDraft(s.ctx, entity.ID, s.actor)
	s.Require().NoError(err)
	_, err = s.svc.Publish(s.ctx, second.ID, s.actor)
	s.Require().NoError(err)

	third, err := s.svc.CreateDraft(s.ctx, entity.ID, s.actor)
	s.Require().NoError(err)

	history, err := s.svc.ListVersions(s.ctx, entity.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 3)
	// Most recently touched first: open draft, then live, then archived.
	s.Equal(third.ID, history[0].ID)
	s.Equal(second.ID, history[1].ID)
	s.Equal(draft.ID, history[2].ID)
	for i := 1; i < len(history); i++ {
		s.False(history[i].UpdatedAt.After(history[i-1].UpdatedAt))
	}
}
