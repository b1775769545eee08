// Package service implements the register's versioned publication model:
// draft editing, atomic publication, withdrawal, and version selection.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"profreg/internal/audit"
	"profreg/internal/register/cache"
	"profreg/internal/register/metrics"
	"profreg/internal/register/models"
	"profreg/internal/register/slug"
	id "profreg/pkg/domain"
)

// EntityStore persists the stable entity records.
type EntityStore interface {
	Create(ctx context.Context, entity *models.Entity) error
	FindByID(ctx context.Context, entityID id.EntityID) (*models.Entity, error)
	Delete(ctx context.Context, entityID id.EntityID) error
}

// VersionStore persists version snapshots. Implementations enforce the
// single-confirmed and slug-uniqueness invariants at the storage level.
type VersionStore interface {
	Create(ctx context.Context, v *models.Version, entityType id.EntityType) error
	Update(ctx context.Context, v *models.Version) error
	Delete(ctx context.Context, versionID id.VersionID) error
	DeleteByEntity(ctx context.Context, entityID id.EntityID) error
	FindByID(ctx context.Context, versionID id.VersionID) (*models.Version, error)
	FindByEntityAndStatus(ctx context.Context, entityID id.EntityID, status models.VersionStatus) (*models.Version, error)
	FindConfirmedBySlug(ctx context.Context, entityType id.EntityType, slug string) (*models.Version, error)
	ListByEntity(ctx context.Context, entityID id.EntityID) ([]*models.Version, error)
	SlugInUse(ctx context.Context, entityType id.EntityType, slug string) (bool, error)
}

// EntityTx provides the per-entity critical section. Run serializes fn
// against all other mutations of the same entity; RunNew wraps the combined
// allocate-entity-plus-first-draft operation.
type EntityTx interface {
	Run(ctx context.Context, entityID id.EntityID, fn func(ctx context.Context) error) error
	RunNew(ctx context.Context, fn func(ctx context.Context) error) error
}

// AuditPublisher records register mutations.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the publication state machine over the stores. All
// state mutations run inside the entity critical section; reads outside it
// tolerate concurrent writers by re-reading before acting.
type Service struct {
	entities EntityStore
	versions VersionStore
	tx       EntityTx
	slugs    *slug.Allocator

	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	liveCache      *cache.LiveCache
	tracer         trace.Tracer
	now            func() time.Time
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = publisher }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLiveCache(c *cache.LiveCache) Option {
	return func(s *Service) { s.liveCache = c }
}

// WithClock injects the time source. Defaults to time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a Service.
func New(entities EntityStore, versions VersionStore, tx EntityTx, slugs *slug.Allocator, opts ...Option) *Service {
	s := &Service{
		entities: entities,
		versions: versions,
		tx:       tx,
		slugs:    slugs,
		logger:   slog.Default(),
		tracer:   otel.Tracer("profreg/register"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) logAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event",
			"action", event.Action,
			"entity_id", event.EntityID.String(),
			"error", err.Error(),
		)
	}
}
