package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"profreg/internal/register/models"
	"profreg/internal/register/slug"
	"profreg/internal/register/store"
	entitystore "profreg/internal/register/store/entity"
	versionstore "profreg/internal/register/store/version"
	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
)

func newTestService() *Service {
	versions := versionstore.NewInMemory()
	return New(
		entitystore.NewInMemory(),
		versions,
		store.NewMemoryEntityTx(),
		slug.New(versions),
	)
}

// Racing publishes of the same draft must produce exactly one winner and
// leave exactly one confirmed version.
func TestConcurrentPublishSingleWinner(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	actor := id.NewUserID()

	entity, draft, err := svc.CreateEntity(ctx, id.EntityTypeProfession, actor)
	require.NoError(t, err)
	name := "Example Profession"
	_, err = svc.UpdateDraft(ctx, draft.ID, models.Patch{Name: &name}, actor)
	require.NoError(t, err)

	const racers = 8
	errs := make([]error, racers)
	var wg sync.WaitGroup
	for i := range racers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = svc.Publish(ctx, draft.ID, actor)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		lostRace := dErrors.HasCode(err, dErrors.CodeInvalidState) ||
			dErrors.HasCode(err, dErrors.CodeConflict)
		require.True(t, lostRace, "unexpected error: %v", err)
	}
	require.Equal(t, 1, wins)

	history, err := svc.ListVersions(ctx, entity.ID)
	require.NoError(t, err)
	confirmed := 0
	for _, v := range history {
		if v.Status == models.StatusConfirmed {
			confirmed++
		}
	}
	require.Equal(t, 1, confirmed)
}

// A draft edit racing a publish of the same version either lands before the
// confirmation or is rejected; the published payload is never half-updated.
func TestConcurrentEditAndPublish(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	actor := id.NewUserID()

	entity, draft, err := svc.CreateEntity(ctx, id.EntityTypeOrganisation, actor)
	require.NoError(t, err)
	name := "Example Org"
	_, err = svc.UpdateDraft(ctx, draft.ID, models.Patch{Name: &name}, actor)
	require.NoError(t, err)

	email := "contact@example.org"
	var wg sync.WaitGroup
	var editErr, publishErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, editErr = svc.UpdateDraft(ctx, draft.ID, models.Patch{ContactEmail: &email}, actor)
	}()
	go func() {
		defer wg.Done()
		_, publishErr = svc.Publish(ctx, draft.ID, actor)
	}()
	wg.Wait()

	require.NoError(t, publishErr)
	live, err := svc.GetLive(ctx, entity.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, live.Status)

	if editErr != nil {
		// The edit arrived after confirmation and was rejected.
		require.True(t, dErrors.HasCode(editErr, dErrors.CodeInvalidState))
		require.Empty(t, live.Payload.ContactEmail)
	} else {
		require.Equal(t, email, live.Payload.ContactEmail)
	}
}

// Concurrent first publishes of distinct entities deriving the same name all
// succeed with distinct slugs.
func TestConcurrentPublishDistinctEntitiesSameName(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	actor := id.NewUserID()
	name := "Example Profession"

	const n = 4
	drafts := make([]*models.Version, n)
	for i := range n {
		_, draft, err := svc.CreateEntity(ctx, id.EntityTypeProfession, actor)
		require.NoError(t, err)
		_, err = svc.UpdateDraft(ctx, draft.ID, models.Patch{Name: &name}, actor)
		require.NoError(t, err)
		drafts[i] = draft
	}

	slugs := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			published, err := svc.Publish(ctx, drafts[i].ID, actor)
			errs[i] = err
			if err == nil {
				slugs[i] = published.Slug
			}
		}()
	}
	wg.Wait()

	seen := map[string]bool{}
	for i := range n {
		// The slug check and write are not one atomic step for distinct
		// entities; a loser of that race reports a conflict and may retry.
		if errs[i] != nil {
			require.True(t, dErrors.HasCode(errs[i], dErrors.CodeConflict), "unexpected error: %v", errs[i])
			continue
		}
		require.False(t, seen[slugs[i]], "duplicate slug %q", slugs[i])
		seen[slugs[i]] = true
	}
	require.NotEmpty(t, seen)
}
