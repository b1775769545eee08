package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"profreg/internal/users/models"
	id "profreg/pkg/domain"
	"profreg/pkg/platform/sentinel"
	txcontext "profreg/pkg/platform/tx"
)

// users_external_identifier is the partial unique index guarding the
/// conditional identifier rule:
//
//	CREATE UNIQUE INDEX users_external_identifier ON users (external_identifier)
//	WHERE external_identifier IS NOT NULL AND confirmed AND NOT archived;
const constraintExternalIdentifier = "users_external_identifier"

// Postgres persists users. Methods honour a transaction placed in the
// context by the caller.
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

const userColumns = `id, email, name, role, organisation_id, external_identifier, confirmed, archived, created_at, updated_at`

func (s *Postgres) Create(ctx context.Context, user *models.User) error {
	const query = `
		INSERT INTO users (id, email, name, role, organisation_id, external_identifier, confirmed, archived, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(user.ID), user.Email, user.Name, user.Role.String(),
		nullableUUID(uuid.UUID(user.OrganisationID)), nullableString(user.ExternalIdentifier),
		user.Confirmed, user.Archived, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return translateUserErr(err, "insert user")
	}
	return nil
}

func (s *Postgres) Update(ctx context.Context, user *models.User) error {
	const query = `
		UPDATE users
		SET email = $2, name = $3, role = $4, organisation_id = $5,
		    external_identifier = $6, confirmed = $7, archived = $8, updated_at = $9
		WHERE id = $1`
	result, err := s.execer(ctx).ExecContext(ctx, query,
		uuid.UUID(user.ID), user.Email, user.Name, user.Role.String(),
		nullableUUID(uuid.UUID(user.OrganisationID)), nullableString(user.ExternalIdentifier),
		user.Confirmed, user.Archived, user.UpdatedAt)
	if err != nil {
		return translateUserErr(err, "update user")
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, userID id.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	row := s.execer(ctx).QueryRowContext(ctx, query, uuid.UUID(userID))
	return scanUser(row)
}

// FindByExternalIdentifier resolves a login identity to its current holder.
// The predicate matches the partial index so at most one row qualifies.
func (s *Postgres) FindByExternalIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE external_identifier = $1 AND confirmed AND NOT archived`
	row := s.execer(ctx).QueryRowContext(ctx, query, identifier)
	return scanUser(row)
}

func (s *Postgres) List(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`
	rows, err := s.execer(ctx).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out, nil
}

// IdentifierInUse reports whether another confirmed, non-archived user holds
// the identifier.
func (s *Postgres) IdentifierInUse(ctx context.Context, identifier string, excluding id.UserID) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE external_identifier = $1 AND confirmed AND NOT archived AND id <> $2
		)`
	var inUse bool
	err := s.execer(ctx).QueryRowContext(ctx, query, identifier, uuid.UUID(excluding)).Scan(&inUse)
	if err != nil {
		return false, fmt.Errorf("check external identifier: %w", err)
	}
	return inUse, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var (
		user       models.User
		rawID      uuid.UUID
		rawRole    string
		rawOrgID   uuid.NullUUID
		identifier sql.NullString
	)
	err := row.Scan(&rawID, &user.Email, &user.Name, &rawRole, &rawOrgID,
		&identifier, &user.Confirmed, &user.Archived, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	role, err := models.ParseRole(rawRole)
	if err != nil {
		return nil, fmt.Errorf("corrupt user role %q: %w", rawRole, err)
	}
	user.ID = id.UserID(rawID)
	user.Role = role
	if rawOrgID.Valid {
		user.OrganisationID = id.EntityID(rawOrgID.UUID)
	}
	if identifier.Valid {
		user.ExternalIdentifier = identifier.String
	}
	return &user, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullableUUID(u uuid.UUID) uuid.NullUUID {
	return uuid.NullUUID{UUID: u, Valid: u != uuid.Nil}
}

func translateUserErr(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == constraintExternalIdentifier {
		return sentinel.ErrAlreadyUsed
	}
	return fmt.Errorf("%s: %w", op, err)
}
