package entities

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recall-backend/domain/core/valueobjects"
	pkgerrors "recall-backend/pkg/errors"
)

func TestNewMemoryUnit_RejectsEmptyContent(t *testing.T) {
	_, err := NewMemoryUnit("   ", nil, nil, "", "")

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestNewMemoryUnit_Defaults(t *testing.T) {
	unit, err := NewMemoryUnit("something happened", nil, nil, "", "")
	require.NoError(t, err)

	assert.Equal(t, valueobjects.SourceTypeInsight, unit.SourceType())
	assert.Equal(t, valueobjects.SectorGeneral, unit.Sector())
	assert.False(t, unit.IsDeleted())
	assert.False(t, unit.ID().IsZero())
}

func TestNewMemoryUnit_NormalizesTags(t *testing.T) {
	unit, err := NewMemoryUnit("content", nil, []string{" Project-Atlas ", "PROJECT-ATLAS", "", "month-2"}, "", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"project-atlas", "month-2"}, unit.Tags())
}

func TestContentPreview_TruncatesOnRuneBoundary(t *testing.T) {
	long := strings.Repeat("ü", 250)
	unit, err := NewMemoryUnit(long, nil, nil, "", "")
	require.NoError(t, err)

	preview := unit.ContentPreview(200)
	assert.Equal(t, strings.Repeat("ü", 200)+"...", preview)

	short, err := NewMemoryUnit("short", nil, nil, "", "")
	require.NoError(t, err)
	assert.Equal(t, "short", short.ContentPreview(200))
}

func TestAssignTenant(t *testing.T) {
	unit, err := NewMemoryUnit("scoped note", nil, nil, "", "")
	require.NoError(t, err)
	assert.Empty(t, unit.TenantID())

	unit.AssignTenant("  tenant-7  ")
	assert.Equal(t, "tenant-7", unit.TenantID())
}
