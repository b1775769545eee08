// Package models defines the user aggregate. Users are invited by an
// administrator, become confirmed when their login identity is linked, and
// are archived rather than deleted.
package models

import (
	"time"

	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
)

// Role determines what register operations a user may perform.
type Role string

const (
	// RoleAdministrator manages users and all register content.
	RoleAdministrator Role = "administrator"
	// RoleEditor edits and publishes register content.
	RoleEditor Role = "editor"
	// RoleRegistrar is scoped to their organisation's records.
	RoleRegistrar Role = "registrar"
)

var validRoles = map[Role]bool{
	RoleAdministrator: true,
	RoleEditor:        true,
	RoleRegistrar:     true,
}

// ParseRole constructs a Role from external input.
func ParseRole(s string) (Role, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "role cannot be empty")
	}
	r := Role(s)
	if !validRoles[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid role")
	}
	return r, nil
}

func (r Role) IsValid() bool { return validRoles[r] }

func (r Role) String() string { return string(r) }

// User is an account on the administrative side of the register.
//
// Invariants:
//   - ExternalIdentifier is empty until confirmation links a login identity
//   - ExternalIdentifier is unique among users that are confirmed and not
//     archived; archived or unconfirmed users never block reuse
//   - Archived users are inert: no confirmation, no identifier changes
//   - Users are never hard-deleted once created
type User struct {
	ID    id.UserID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name"`
	Role  Role      `json:"role"`

	// OrganisationID scopes registrars to one organisation's records.
	// Nationally scoped users carry none.
	OrganisationID id.EntityID `json:"organisation_id,omitempty"`

	ExternalIdentifier string `json:"external_identifier,omitempty"`
	Confirmed          bool   `json:"confirmed"`
	Archived           bool   `json:"archived"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewInvited creates an unconfirmed user awaiting first login.
func NewInvited(userID id.UserID, email, name string, role Role, now time.Time) *User {
	return &User{
		ID:        userID,
		Email:     email,
		Name:      name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanConfirm reports whether the pending invitation can be completed.
func (u *User) CanConfirm() error {
	if u.Archived {
		return dErrors.New(dErrors.CodeInvalidState, "archived users cannot be confirmed")
	}
	if u.Confirmed {
		return dErrors.New(dErrors.CodeInvalidState, "user is already confirmed")
	}
	return nil
}

// ApplyConfirmation links the login identity and marks the user confirmed.
func (u *User) ApplyConfirmation(externalIdentifier string, now time.Time) {
	u.ExternalIdentifier = externalIdentifier
	u.Confirmed = true
	u.UpdatedAt = now
}

// CanArchive reports whether the user can be soft-deleted.
func (u *User) CanArchive() error {
	if u.Archived {
		return dErrors.New(dErrors.CodeInvalidState, "user is already archived")
	}
	return nil
}

// ApplyArchive soft-deletes the user. Their external identifier stays on the
// record for the audit trail but no longer blocks reuse.
func (u *User) ApplyArchive(now time.Time) {
	u.Archived = true
	u.UpdatedAt = now
}

// HoldsIdentifier reports whether this user currently owns an external
// identifier for uniqueness purposes. Only confirmed, non-archived users
// with an identifier participate in the uniqueness check.
func (u *User) HoldsIdentifier() bool {
	return u.Confirmed && !u.Archived && u.ExternalIdentifier != ""
}
