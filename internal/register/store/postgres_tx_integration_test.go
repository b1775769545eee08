//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"profreg/internal/register/models"
	"profreg/internal/register/store"
	entitystore "profreg/internal/register/store/entity"
	versionstore "profreg/internal/register/store/version"
	id "profreg/pkg/domain"
	"profreg/pkg/platform/sentinel"
	"profreg/pkg/testutil/containers"
)

type PostgresEntityTxSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	entities *entitystore.Postgres
	versions *versionstore.Postgres
	tx       *store.PostgresEntityTx
}

func TestPostgresEntityTxSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresEntityTxSuite))
}

func (s *PostgresEntityTxSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.entities = entitystore.NewPostgres(s.postgres.DB)
	s.versions = versionstore.NewPostgres(s.postgres.DB)
	s.tx = store.NewPostgresEntityTx(s.postgres.DB)
}

func (s *PostgresEntityTxSuite) SetupTest() {
	ctx := context.Background()
	err := s.postgres.TruncateTables(ctx, "versions", "entities")
	s.Require().NoError(err)
}

// TestRunSerializesPerEntity verifies two transactions on the same entity
// never overlap: each sees the state the previous one committed.
func (s *PostgresEntityTxSuite) TestRunSerializesPerEntity() {
	ctx := context.Background()
	entity := models.NewEntity(id.NewEntityID(), id.EntityTypeProfession, time.Now().UTC())
	s.Require().NoError(s.entities.Create(ctx, entity))

	draft := models.NewDraft(id.NewVersionID(), entity.ID, time.Now().UTC())
	draft.Payload.Name = "Counter"
	draft.Payload.Registration = "0"
	s.Require().NoError(s.versions.Create(ctx, draft, entity.Type))

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.tx.Run(ctx, entity.ID, func(ctx context.Context) error {
				current, err := s.versions.FindByID(ctx, draft.ID)
				if err != nil {
					return err
				}
				// Read-modify-write: lost updates would show as a short count.
				current.Payload.Registration = current.Payload.Registration + "x"
				current.UpdatedAt = time.Now().UTC()
				return s.versions.Update(ctx, current)
			})
			s.NoError(err)
		}()
	}
	wg.Wait()

	final, err := s.versions.FindByID(ctx, draft.ID)
	s.Require().NoError(err)
	s.Len(final.Payload.Registration, 1+writers)
}

// TestRunRollsBackOnError verifies nothing inside a failed transaction is
// visible afterwards.
func (s *PostgresEntityTxSuite) TestRunRollsBackOnError() {
	ctx := context.Background()
	entity := models.NewEntity(id.NewEntityID(), id.EntityTypeOrganisation, time.Now().UTC())
	s.Require().NoError(s.entities.Create(ctx, entity))

	draftID := id.NewVersionID()
	err := s.tx.Run(ctx, entity.ID, func(ctx context.Context) error {
		draft := models.NewDraft(draftID, entity.ID, time.Now().UTC())
		draft.Payload.Name = "Phantom"
		if err := s.versions.Create(ctx, draft, entity.Type); err != nil {
			return err
		}
		return sentinel.ErrConflict
	})
	s.ErrorIs(err, sentinel.ErrConflict)

	_, err = s.versions.FindByID(ctx, draftID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestRunUnknownEntity verifies the lock acquisition reports missing entities.
func (s *PostgresEntityTxSuite) TestRunUnknownEntity() {
	ctx := context.Background()
	err := s.tx.Run(ctx, id.NewEntityID(), func(ctx context.Context) error {
		s.Fail("callback should not run for an unknown entity")
		return nil
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}

// TestRunNewCommitsEntityAndDraftTogether verifies the combined create path.
func (s *PostgresEntityTxSuite) TestRunNewCommitsEntityAndDraftTogether() {
	ctx := context.Background()
	entity := models.NewEntity(id.NewEntityID(), id.EntityTypeProfession, time.Now().UTC())
	draft := models.NewDraft(id.NewVersionID(), entity.ID, time.Now().UTC())
	draft.Payload.Name = "Atomic"

	err := s.tx.RunNew(ctx, func(ctx context.Context) error {
		if err := s.entities.Create(ctx, entity); err != nil {
			return err
		}
		return s.versions.Create(ctx, draft, entity.Type)
	})
	s.Require().NoError(err)

	found, err := s.versions.FindByID(ctx, draft.ID)
	s.Require().NoError(err)
	s.Equal(entity.ID, found.EntityID)
}
