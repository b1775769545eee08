// Package domain holds the shared identifier and enum types used across the
// register. IDs are distinct uuid wrappers so an EntityID can never be passed
// where a VersionID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "profreg/pkg/domain-errors"
)

// EntityID identifies a logical Profession or Organisation record, stable
// across all of its versions.
type EntityID uuid.UUID

// VersionID identifies one snapshot of an entity's data.
type VersionID uuid.UUID

// UserID identifies an administrator, editor, or registrar account.
type UserID uuid.UUID

// QualificationID identifies the qualification record owned by a single
// profession version (one-to-one, never shared across versions).
type QualificationID uuid.UUID

// NewEntityID allocates a fresh random entity identifier.
func NewEntityID() EntityID { return EntityID(uuid.New()) }

// NewVersionID allocates a fresh random version identifier.
func NewVersionID() VersionID { return VersionID(uuid.New()) }

// NewUserID allocates a fresh random user identifier.
func NewUserID() UserID { return UserID(uuid.New()) }

// NewQualificationID allocates a fresh random qualification identifier.
func NewQualificationID() QualificationID { return QualificationID(uuid.New()) }

// ParseEntityID constructs an EntityID from external input.
//
// Usage: call from handlers/adapters when parsing requests; direct casting
// bypasses validation.
func ParseEntityID(s string) (EntityID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return EntityID{}, err
	}
	return EntityID(u), nil
}

// ParseVersionID constructs a VersionID from external input.
func ParseVersionID(s string) (VersionID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return VersionID{}, err
	}
	return VersionID(u), nil
}

// ParseUserID constructs a UserID from external input.
func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return UserID{}, err
	}
	return UserID(u), nil
}

// ParseQualificationID constructs a QualificationID from external input.
func ParseQualificationID(s string) (QualificationID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return QualificationID{}, err
	}
	return QualificationID(u), nil
}

// parseUUID enforces the shared invariant: IDs must be valid, non-nil UUIDs.
func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil UUID")
	}
	return u, nil
}

func (id EntityID) String() string        { return uuid.UUID(id).String() }
func (id VersionID) String() string       { return uuid.UUID(id).String() }
func (id UserID) String() string          { return uuid.UUID(id).String() }
func (id QualificationID) String() string { return uuid.UUID(id).String() }

func (id EntityID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id VersionID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id QualificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

// The wrappers are defined types over uuid.UUID, so they do not inherit its
// text marshalling; without these, JSON encoding would emit raw byte arrays.

func (id EntityID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id VersionID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)          { return uuid.UUID(id).MarshalText() }
func (id QualificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }

func (id *EntityID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *VersionID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *UserID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id *QualificationID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}
