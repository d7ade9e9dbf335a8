package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"recall-backend/domain/core/valueobjects"
	"recall-backend/domain/retrieval"
)

func TestCompileFilter_EmptyOnlyExcludesDeleted(t *testing.T) {
	where, args := compileFilter(retrieval.Filter{}, nil)

	assert.Equal(t, "NOT m.deleted", where)
	assert.Empty(t, args)
}

func TestCompileFilter_TagsUseArrayContainment(t *testing.T) {
	f := retrieval.Filter{Tags: []string{"project-atlas", "month-2"}}

	where, args := compileFilter(f, nil)

	assert.Equal(t, "NOT m.deleted AND m.tags @> $1::text[]", where)
	assert.Equal(t, []any{[]string{"project-atlas", "month-2"}}, args)
}

func TestCompileFilter_DateBounds(t *testing.T) {
	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 2, 28, 0, 0, 0, 0, time.UTC)
	f := retrieval.Filter{DateFrom: &from, DateTo: &to}

	where, args := compileFilter(f, nil)

	assert.Equal(t, "NOT m.deleted AND m.created_at >= $1 AND m.created_at <= $2", where)
	assert.Equal(t, []any{from, to}, args)
}

func TestCompileFilter_SourceTypesAndSectors(t *testing.T) {
	f := retrieval.Filter{
		SourceTypes: []valueobjects.SourceType{valueobjects.SourceTypeInsight, valueobjects.SourceTypeEpisode},
		Sectors:     []valueobjects.Sector{valueobjects.SectorTechnical},
	}

	where, args := compileFilter(f, nil)

	assert.Equal(t, "NOT m.deleted AND m.source_type = ANY($1) AND m.sector = ANY($2)", where)
	assert.Equal(t, []any{[]string{"insight", "episode"}, []string{"technical"}}, args)
}

func TestCompileFilter_VisibilityPlaceholdersRenumbered(t *testing.T) {
	f := retrieval.Filter{
		Tags: []string{"a"},
		Visibility: retrieval.Visibility{
			Fragment: "m.tenant_id IS NULL OR m.tenant_id = ?",
			Args:     []any{"tenant-7"},
		},
	}

	where, args := compileFilter(f, nil)

	assert.Equal(t, "NOT m.deleted AND m.tags @> $1::text[] AND (m.tenant_id IS NULL OR m.tenant_id = $2)", where)
	assert.Equal(t, []any{[]string{"a"}, "tenant-7"}, args)
}

func TestCompileFilter_AppendsAfterExistingArgs(t *testing.T) {
	// Retrievers bind their query vector or text as $1 before the filter.
	f := retrieval.Filter{Tags: []string{"a"}}

	where, args := compileFilter(f, []any{"existing"})

	assert.Equal(t, "NOT m.deleted AND m.tags @> $2::text[]", where)
	assert.Len(t, args, 2)
}

func TestCompileFilter_MultipleVisibilityPlaceholders(t *testing.T) {
	f := retrieval.Filter{
		Visibility: retrieval.Visibility{
			Fragment: "m.tenant_id = ? OR m.owner_id = ?",
			Args:     []any{"t1", "o1"},
		},
	}

	where, args := compileFilter(f, nil)

	assert.Equal(t, "NOT m.deleted AND (m.tenant_id = $1 OR m.owner_id = $2)", where)
	assert.Equal(t, []any{"t1", "o1"}, args)
}

func TestEscapeLike_NeutralizesWildcards(t *testing.T) {
	assert.Equal(t, `alice`, escapeLike("alice"))
	assert.Equal(t, `100\%`, escapeLike("100%"))
	assert.Equal(t, `a\_b`, escapeLike("a_b"))
	assert.Equal(t, `c:\\temp`, escapeLike(`c:\temp`))
	assert.Equal(t, `\\\%\_`, escapeLike(`\%_`))
}
