package domain

import dErrors "profreg/pkg/domain-errors"

// EntityType discriminates the two logical record kinds in the register.
// Profession and Organisation slugs live in independent namespaces, so the
// type participates in every slug uniqueness check.
type EntityType string

const (
	EntityTypeProfession   EntityType = "profession"
	EntityTypeOrganisation EntityType = "organisation"
)

// validEntityTypes is the single source of truth for supported entity types.
var validEntityTypes = map[EntityType]bool{
	EntityTypeProfession:   true,
	EntityTypeOrganisation: true,
}

// ParseEntityType constructs an EntityType from external input.
//
// Usage: call from handlers/adapters when parsing requests; direct casting
// bypasses validation.
func ParseEntityType(s string) (EntityType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "entity type cannot be empty")
	}
	t := EntityType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid entity type")
	}
	return t, nil
}

// IsValid checks if the entity type is one of the supported enum values.
func (t EntityType) IsValid() bool {
	return validEntityTypes[t]
}

// String returns the string representation of the entity type.
func (t EntityType) String() string {
	return string(t)
}
