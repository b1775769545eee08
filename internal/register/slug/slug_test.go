package slug

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "profreg/pkg/domain"
	dErrors "profreg/pkg/domain-errors"
)

type fakeChecker struct {
	taken map[string]bool
}

func (f *fakeChecker) SlugInUse(_ context.Context, entityType id.EntityType, slug string) (bool, error) {
	return f.taken[entityType.String()+"/"+slug], nil
}

func TestMake(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"simple name", "Example Profession", "example-profession"},
		{"ampersand and punctuation", "Construction & Engineering", "construction-engineering"},
		{"leading and trailing junk", "  --Chartered. Surveyor-- ", "chartered-surveyor"},
		{"already a slug", "example-org", "example-org"},
		{"collapses runs", "a   b///c", "a-b-c"},
		{"no usable characters", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Make(tt.in))
		})
	}
}

func TestReserve(t *testing.T) {
	ctx := context.Background()

	t.Run("returns base slug when free", func(t *testing.T) {
		allocator := New(&fakeChecker{taken: map[string]bool{}})
		slug, err := allocator.Reserve(ctx, "Example Profession", id.EntityTypeProfession)
		require.NoError(t, err)
		assert.Equal(t, "example-profession", slug)
	})

	t.Run("disambiguates with numeric suffix", func(t *testing.T) {
		allocator := New(&fakeChecker{taken: map[string]bool{
			"profession/example": true,
		}})
		slug, err := allocator.Reserve(ctx, "Example", id.EntityTypeProfession)
		require.NoError(t, err)
		assert.Equal(t, "example-2", slug)
	})

	t.Run("skips successive collisions", func(t *testing.T) {
		allocator := New(&fakeChecker{taken: map[string]bool{
			"profession/example":   true,
			"profession/example-2": true,
			"profession/example-3": true,
		}})
		slug, err := allocator.Reserve(ctx, "Example", id.EntityTypeProfession)
		require.NoError(t, err)
		assert.Equal(t, "example-4", slug)
	})

	t.Run("namespaces are independent", func(t *testing.T) {
		allocator := New(&fakeChecker{taken: map[string]bool{
			"profession/example": true,
		}})
		slug, err := allocator.Reserve(ctx, "Example", id.EntityTypeOrganisation)
		require.NoError(t, err)
		assert.Equal(t, "example", slug)
	})

	t.Run("exhaustion past the ceiling", func(t *testing.T) {
		taken := map[string]bool{"profession/example": true, "profession/example-2": true, "profession/example-3": true}
		allocator := New(&fakeChecker{taken: taken}, WithMaxAttempts(3))
		_, err := allocator.Reserve(ctx, "Example", id.EntityTypeProfession)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeSlugExhausted))
	})

	t.Run("unusable name is a validation failure", func(t *testing.T) {
		allocator := New(&fakeChecker{taken: map[string]bool{}})
		_, err := allocator.Reserve(ctx, "???", id.EntityTypeProfession)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
