package version

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "profreg/pkg/domain"
	"profreg/internal/register/models"
	"profreg/pkg/platform/sentinel"
	txcontext "profreg/pkg/platform/tx"
)

// Index names from migrations/0001_register.sql. The store maps their unique
// violations back onto sentinels so services stay storage-agnostic.
const (
	constraintOneConfirmed  = "versions_one_confirmed_per_entity"
	constraintConfirmedSlug = "versions_confirmed_slug"
)

// Postgres persists versions with the payload as a JSONB document. The two
// partial unique indexes are the authoritative guards for the
// single-confirmed and slug-uniqueness invariants; the per-entity critical
// section only orders writers, it does not replace the indexes.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, v *models.Version, entityType id.EntityType) error {
	payload, err := json.Marshal(v.Payload)
	if err != nil {
		return fmt.Errorf("marshal version payload: %w", err)
	}
	const query = `
		INSERT INTO versions (id, entity_id, entity_type, status, slug, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(v.ID), uuid.UUID(v.EntityID), entityType.String(),
		v.Status.String(), nullableSlug(v.Slug), payload, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return translateUniqueViolation(err, "insert version")
	}
	return nil
}

// Update replaces the whole row in one statement, so other readers see either
// the old or the new version, never a mix.
func (s *Postgres) Update(ctx context.Context, v *models.Version) error {
	payload, err := json.Marshal(v.Payload)
	if err != nil {
		return fmt.Errorf("marshal version payload: %w", err)
	}
	const query = `
		UPDATE versions
		SET status = $2, slug = $3, payload = $4, updated_at = $5
		WHERE id = $1`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(v.ID), v.Status.String(), nullableSlug(v.Slug), payload, v.UpdatedAt)
	if err != nil {
		return translateUniqueViolation(err, "update version")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) Delete(ctx context.Context, versionID id.VersionID) error {
	const query = `DELETE FROM versions WHERE id = $1`
	result, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(versionID))
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete version: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) DeleteByEntity(ctx context.Context, entityID id.EntityID) error {
	const query = `DELETE FROM versions WHERE entity_id = $1`
	if _, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(entityID)); err != nil {
		return fmt.Errorf("delete versions by entity: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, versionID id.VersionID) (*models.Version, error) {
	const query = `
		SELECT id, entity_id, status, slug, payload, created_at, updated_at
		FROM versions
		WHERE id = $1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(versionID)))
}

func (s *Postgres) FindByEntityAndStatus(ctx context.Context, entityID id.EntityID, status models.VersionStatus) (*models.Version, error) {
	const query = `
		SELECT id, entity_id, status, slug, payload, created_at, updated_at
		FROM versions
		WHERE entity_id = $1 AND status = $2
		ORDER BY seq DESC
		LIMIT 1`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(entityID), status.String()))
}

func (s *Postgres) FindConfirmedBySlug(ctx context.Context, entityType id.EntityType, slug string) (*models.Version, error) {
	const query = `
		SELECT id, entity_id, status, slug, payload, created_at, updated_at
		FROM versions
		WHERE entity_type = $1 AND slug = $2 AND status = 'confirmed'`
	return s.scanOne(s.execer(ctx).QueryRowContext(ctx, query, entityType.String(), slug))
}

// ListByEntity orders by updated_at descending with the insertion sequence as
// the stable tie-break.
func (s *Postgres) ListByEntity(ctx context.Context, entityID id.EntityID) ([]*models.Version, error) {
	const query = `
		SELECT id, entity_id, status, slug, payload, created_at, updated_at
		FROM versions
		WHERE entity_id = $1
		ORDER BY updated_at DESC, seq ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(entityID))
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var out []*models.Version
	for rows.Next() {
		v, err := scanVersion(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return out, nil
}

func (s *Postgres) SlugInUse(ctx context.Context, entityType id.EntityType, slug string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM versions
			WHERE entity_type = $1 AND slug = $2 AND status = 'confirmed'
		)`
	var inUse bool
	if err := s.execer(ctx).QueryRowContext(ctx, query, entityType.String(), slug).Scan(&inUse); err != nil {
		return false, fmt.Errorf("check slug: %w", err)
	}
	return inUse, nil
}

func (s *Postgres) scanOne(row *sql.Row) (*models.Version, error) {
	v, err := scanVersion(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func scanVersion(scan func(dest ...any) error) (*models.Version, error) {
	var (
		rawID     uuid.UUID
		rawEntity uuid.UUID
		rawStatus string
		rawSlug   sql.NullString
		payload   []byte
		v         models.Version
	)
	if err := scan(&rawID, &rawEntity, &rawStatus, &rawSlug, &payload, &v.CreatedAt, &v.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan version: %w", err)
	}
	status, err := models.ParseVersionStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("corrupt version status %q: %w", rawStatus, err)
	}
	if err := json.Unmarshal(payload, &v.Payload); err != nil {
		return nil, fmt.Errorf("unmarshal version payload: %w", err)
	}
	v.ID = id.VersionID(rawID)
	v.EntityID = id.EntityID(rawEntity)
	v.Status = status
	v.Slug = rawSlug.String
	return &v, nil
}

func nullableSlug(slug string) sql.NullString {
	return sql.NullString{String: slug, Valid: slug != ""}
}

func translateUniqueViolation(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		switch pqErr.Constraint {
		case constraintOneConfirmed:
			return sentinel.ErrConflict
		case constraintConfirmedSlug:
			return sentinel.ErrAlreadyUsed
		default:
			return sentinel.ErrAlreadyUsed
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
