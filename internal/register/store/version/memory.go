// Package version provides stores for entity version snapshots. Both
// implementations enforce the two storage-level invariants themselves — at
// most one confirmed version per entity, and confirmed slugs unique per
// entity type — so application-level checks are never the last line of
// defence.
package version

import (
	"context"
	"sort"
	"sync"

	id "profreg/pkg/domain"
	"profreg/internal/register/models"
	"profreg/pkg/platform/sentinel"
)

type memoryRecord struct {
	version    models.Version
	entityType id.EntityType
	seq        uint64
}

// InMemory keeps versions in a map guarded by a RWMutex. It mirrors the
// Postgres partial unique indexes in checkInvariants so unit tests exercise
// the same failure modes as production.
type InMemory struct {
	mu       sync.RWMutex
	versions map[id.VersionID]*memoryRecord
	nextSeq  uint64
}

func NewInMemory() *InMemory {
	return &InMemory{versions: make(map[id.VersionID]*memoryRecord)}
}

func (s *InMemory) Create(_ context.Context, v *models.Version, entityType id.EntityType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.versions[v.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if err := s.checkInvariants(v, entityType); err != nil {
		return err
	}
	s.nextSeq++
	s.versions[v.ID] = &memoryRecord{version: *v, entityType: entityType, seq: s.nextSeq}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, versionID id.VersionID) (*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.versions[versionID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := record.version
	return &out, nil
}

// Update replaces the stored version atomically. Readers never observe a
// partially applied patch.
func (s *InMemory) Update(_ context.Context, v *models.Version) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.versions[v.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkInvariants(v, record.entityType); err != nil {
		return err
	}
	record.version = *v
	return nil
}

func (s *InMemory) Delete(_ context.Context, versionID id.VersionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.versions[versionID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.versions, versionID)
	return nil
}

// DeleteByEntity removes all versions of an entity. Used when an entity that
// has never been confirmed is hard-deleted.
func (s *InMemory) DeleteByEntity(_ context.Context, entityID id.EntityID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for versionID, record := range s.versions {
		if record.version.EntityID == entityID {
			delete(s.versions, versionID)
		}
	}
	return nil
}

// ListByEntity returns the entity's versions ordered by UpdatedAt descending.
// Ties keep creation order; the sort is stable so equal timestamps never
// shuffle between calls.
func (s *InMemory) ListByEntity(_ context.Context, entityID id.EntityID) ([]*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var records []*memoryRecord
	for _, record := range s.versions {
		if record.version.EntityID == entityID {
			records = append(records, record)
		}
	}
	// Creation order first so the stable sort resolves timestamp ties by it.
	sort.Slice(records, func(i, j int) bool { return records[i].seq < records[j].seq })
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].version.UpdatedAt.After(records[j].version.UpdatedAt)
	})

	out := make([]*models.Version, 0, len(records))
	for _, record := range records {
		v := record.version
		out = append(out, &v)
	}
	return out, nil
}

// FindByEntityAndStatus returns the entity's single version with the given
// status. Meaningful for draft and confirmed, which are unique per entity in
// practice; archived lookups return the most recently archived version.
func (s *InMemory) FindByEntityAndStatus(_ context.Context, entityID id.EntityID, status models.VersionStatus) (*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var best *memoryRecord
	for _, record := range s.versions {
		if record.version.EntityID != entityID || record.version.Status != status {
			continue
		}
		if best == nil || record.seq > best.seq {
			best = record
		}
	}
	if best == nil {
		return nil, sentinel.ErrNotFound
	}
	out := best.version
	return &out, nil
}

// FindConfirmedBySlug resolves a public slug within one entity type namespace.
func (s *InMemory) FindConfirmedBySlug(_ context.Context, entityType id.EntityType, slug string) (*models.Version, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.versions {
		if record.entityType == entityType &&
			record.version.Status == models.StatusConfirmed &&
			record.version.Slug == slug {
			out := record.version
			return &out, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// SlugInUse reports whether a confirmed version of the given entity type
// already carries the slug. Draft and archived versions do not reserve slugs.
func (s *InMemory) SlugInUse(_ context.Context, entityType id.EntityType, slug string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, record := range s.versions {
		if record.entityType == entityType &&
			record.version.Status == models.StatusConfirmed &&
			record.version.Slug == slug {
			return true, nil
		}
	}
	return false, nil
}

// checkInvariants mirrors the partial unique indexes of the Postgres schema.
// Caller holds the write lock.
func (s *InMemory) checkInvariants(v *models.Version, entityType id.EntityType) error {
	if v.Status != models.StatusConfirmed {
		return nil
	}
	for versionID, record := range s.versions {
		if versionID == v.ID || record.version.Status != models.StatusConfirmed {
			continue
		}
		if record.version.EntityID == v.EntityID {
			return sentinel.ErrConflict
		}
		if record.entityType == entityType && v.Slug != "" && record.version.Slug == v.Slug {
			return sentinel.ErrAlreadyUsed
		}
	}
	return nil
}
