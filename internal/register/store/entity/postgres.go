package entity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "profreg/pkg/domain"
	"profreg/internal/register/models"
	"profreg/pkg/platform/sentinel"
	txcontext "profreg/pkg/platform/tx"
)

// Postgres persists entity records. All methods honour a transaction placed in
// the context by the publication critical section.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Postgres) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Postgres) Create(ctx context.Context, entity *models.Entity) error {
	const query = `
		INSERT INTO entities (id, entity_type, created_at)
		VALUES ($1, $2, $3)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(entity.ID), entity.Type.String(), entity.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert entity: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, entityID id.EntityID) (*models.Entity, error) {
	const query = `
		SELECT id, entity_type, created_at
		FROM entities
		WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(entityID))

	var (
		rawID   uuid.UUID
		rawType string
		entity  models.Entity
	)
	if err := row.Scan(&rawID, &rawType, &entity.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find entity: %w", err)
	}
	entityType, err := id.ParseEntityType(rawType)
	if err != nil {
		return nil, fmt.Errorf("corrupt entity type %q: %w", rawType, err)
	}
	entity.ID = id.EntityID(rawID)
	entity.Type = entityType
	return &entity, nil
}

// Delete removes an entity row; versions cascade through the foreign key.
func (s *Postgres) Delete(ctx context.Context, entityID id.EntityID) error {
	const query = `DELETE FROM entities WHERE id = $1`
	result, err := s.execer(ctx).ExecContext(ctx, query, uuid.UUID(entityID))
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
