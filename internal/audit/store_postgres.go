package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	id "profreg/pkg/domain"
	txcontext "profreg/pkg/platform/tx"
)

// PostgresStore implements Store using a transactional outbox. Events written
// inside a publish transaction commit or roll back with the state change;
// the worker relays committed rows to Kafka when a sink is configured.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	const query = `
		INSERT INTO audit_outbox (id, entity_id, action, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		uuid.New(), nullableUUID(uuid.UUID(event.EntityID)), string(event.Action), payload, event.Timestamp)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByEntity(ctx context.Context, entityID id.EntityID) ([]Event, error) {
	const query = `
		SELECT payload
		FROM audit_outbox
		WHERE entity_id = $1
		ORDER BY created_at ASC`
	rows, err := s.execer(ctx).QueryContext(ctx, query, uuid.UUID(entityID))
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		var event Event
		if err := json.Unmarshal(payload, &event); err != nil {
			return nil, fmt.Errorf("unmarshal audit event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	return out, nil
}

func nullableUUID(u uuid.UUID) any {
	if u == uuid.Nil {
		return nil
	}
	return u
}
