//go:build integration

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"profreg/internal/register/cache"
	"profreg/internal/register/models"
	id "profreg/pkg/domain"
	"profreg/pkg/testutil/containers"
)

type LiveCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *cache.LiveCache
}

func TestLiveCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(LiveCacheSuite))
}

func (s *LiveCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = cache.New(s.redis.Client)
}

func (s *LiveCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func newConfirmed(slug string) *models.Version {
	now := time.Now().UTC().Truncate(time.Second)
	v := models.NewDraft(id.NewVersionID(), id.NewEntityID(), now)
	v.Payload.Name = "Cached Profession"
	v.Payload.Nations = []string{"england"}
	v.ApplyConfirmation(slug, now)
	return v
}

func (s *LiveCacheSuite) TestRoundTrip() {
	ctx := context.Background()
	v := newConfirmed("cached-profession")

	s.cache.SetLive(ctx, id.EntityTypeProfession, v)

	byEntity := s.cache.GetLive(ctx, v.EntityID)
	s.Require().NotNil(byEntity)
	s.Equal(v.ID, byEntity.ID)
	s.Equal(v.Payload.Name, byEntity.Payload.Name)
	s.Equal(v.Slug, byEntity.Slug)

	bySlug := s.cache.GetBySlug(ctx, id.EntityTypeProfession, v.Slug)
	s.Require().NotNil(bySlug)
	s.Equal(v.ID, bySlug.ID)
}

func (s *LiveCacheSuite) TestMissReturnsNil() {
	ctx := context.Background()
	s.Nil(s.cache.GetLive(ctx, id.NewEntityID()))
	s.Nil(s.cache.GetBySlug(ctx, id.EntityTypeOrganisation, "absent-slug"))
}

func (s *LiveCacheSuite) TestInvalidateDropsBothKeys() {
	ctx := context.Background()
	v := newConfirmed("short-lived")
	s.cache.SetLive(ctx, id.EntityTypeProfession, v)

	s.cache.Invalidate(ctx, id.EntityTypeProfession, v.EntityID, v.Slug)

	s.Nil(s.cache.GetLive(ctx, v.EntityID))
	s.Nil(s.cache.GetBySlug(ctx, id.EntityTypeProfession, v.Slug))
}

func (s *LiveCacheSuite) TestSlugNamespacesAreSeparate() {
	ctx := context.Background()
	prof := newConfirmed("shared-name")
	s.cache.SetLive(ctx, id.EntityTypeProfession, prof)

	s.NotNil(s.cache.GetBySlug(ctx, id.EntityTypeProfession, "shared-name"))
	s.Nil(s.cache.GetBySlug(ctx, id.EntityTypeOrganisation, "shared-name"))
}

func (s *LiveCacheSuite) TestEntriesExpire() {
	ctx := context.Background()
	short := cache.New(s.redis.Client, cache.WithTTL(100*time.Millisecond))
	v := newConfirmed("expiring")

	short.SetLive(ctx, id.EntityTypeProfession, v)
	s.Require().NotNil(short.GetLive(ctx, v.EntityID))

	time.Sleep(200 * time.Millisecond)
	s.Nil(short.GetLive(ctx, v.EntityID))
}

func (s *LiveCacheSuite) TestNilCacheIsNoOp() {
	ctx := context.Background()
	var nilCache *cache.LiveCache

	nilCache.SetLive(ctx, id.EntityTypeProfession, newConfirmed("ignored"))
	s.Nil(nilCache.GetLive(ctx, id.NewEntityID()))
	nilCache.Invalidate(ctx, id.EntityTypeProfession, id.NewEntityID(), "ignored")
}
