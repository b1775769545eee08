// Package slug derives the stable public identifiers assigned to versions at
// confirmation. Professions and organisations are independent namespaces.
package slug

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
)

// DefaultMaxAttempts bounds disambiguation retries. Past this the allocator
// reports SlugExhausted: a data problem for operators, never retried
// automatically.
const DefaultMaxAttempts = 100

var nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]+`)

// Make derives the base slug from a display name: lowercase, runs of
// non-alphanumerics collapsed to single hyphens, leading/trailing hyphens
// trimmed. "Example Profession" becomes "example-profession".
func Make(name string) string {
	s := nonAlphanumeric.ReplaceAllString(strings.ToLower(name), "-")
	return strings.Trim(s, "-")
}

// Checker reports whether a slug is already held by a confirmed version of
// the given entity type.
type Checker interface {
	SlugInUse(ctx context.Context, entityType id.EntityType, slug string) (bool, error)
}

// Allocator reserves unique slugs against a Checker. The check runs inside
// the caller's entity transaction, but the database partial unique index
// remains the authoritative guard: concurrent publishes of different entities
// deriving the same slug are caught by the index, not by this check.
type Allocator struct {
	checker     Checker
	maxAttempts int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithMaxAttempts overrides the disambiguation retry ceiling.
func WithMaxAttempts(n int) Option {
	return func(a *Allocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

func New(checker Checker, opts ...Option) *Allocator {
	a := &Allocator{checker: checker, maxAttempts: DefaultMaxAttempts}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Reserve returns the base slug for candidate, or the first free numeric
// disambiguation ("example", "example-2", "example-3", ...). Only confirmed
// versions hold slugs, so a slug released by withdrawal is reusable.
func (a *Allocator) Reserve(ctx context.Context, candidate string, scope id.EntityType) (string, error) {
	base := Make(candidate)
	if base == "" {
		return "", dErrors.New(dErrors.CodeValidation, "name does not produce a usable slug").
			WithField("name", "name must contain letters or digits")
	}

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		slug := base
		if attempt > 1 {
			slug = fmt.Sprintf("%s-%d", base, attempt)
		}
		inUse, err := a.checker.SlugInUse(ctx, scope, slug)
		if err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to check slug availability")
		}
		if !inUse {
			return slug, nil
		}
	}
	return "", dErrors.New(dErrors.CodeSlugExhausted,
		fmt.Sprintf("no free slug for %q within %d attempts", base, a.maxAttempts))
}
