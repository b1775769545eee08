// Package store provides the transactional boundary shared by the register's
// entity and version stores.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	id "profreg/pkg/domain"
	"profreg/pkg/platform/sentinel"
	txcontext "profreg/pkg/platform/tx"
)

// defaultTxTimeout bounds how long a publish may hold the entity row lock.
const defaultTxTimeout = 5 * time.Second

// PostgresEntityTx serializes mutations per entity with a row lock on the
// entities table. Operations on different entities proceed in parallel; two
// publishes of the same entity queue on the row lock, so the demote/promote
// pair is linearizable per entity.
type PostgresEntityTx struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgresEntityTx(db *sql.DB) *PostgresEntityTx {
	return &PostgresEntityTx{db: db, timeout: defaultTxTimeout}
}

// Run executes fn inside a transaction holding the entity's row lock. The
// transaction is placed in the context so every store call inside fn joins it.
// Lock contention and serialization failures surface as sentinel.ErrConflict.
func (t *PostgresEntityTx) Run(ctx context.Context, entityID id.EntityID, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entity tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Take the per-entity lock first; everything after this point is ordered
	// against other writers of the same entity.
	var locked uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM entities WHERE id = $1 FOR UPDATE`, uuid.UUID(entityID),
	).Scan(&locked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return translateContention(err)
	}

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateContention(err)
	}
	return nil
}

// RunNew executes fn inside a plain transaction without a pre-existing row to
// lock. Used for the combined allocate-entity-plus-first-draft operation.
func (t *PostgresEntityTx) RunNew(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin entity tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return translateContention(err)
	}
	return nil
}

// translateContention maps Postgres contention classes (serialization
// failure, deadlock, lock timeout) to the retryable conflict sentinel.
func translateContention(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "40001", "40P01", "55P03":
			return sentinel.ErrConflict
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return sentinel.ErrConflict
	}
	return err
}
