package visibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisibilityFor_TenantSeesSharedAndOwnRows(t *testing.T) {
	vis, err := NewTenantColumnProvider().VisibilityFor(context.Background(), "tenant-7")
	require.NoError(t, err)

	assert.Equal(t, "m.tenant_id IS NULL OR m.tenant_id = ?", vis.Fragment)
	assert.Equal(t, []any{"tenant-7"}, vis.Args)
}

func TestVisibilityFor_AnonymousSeesSharedRowsOnly(t *testing.T) {
	vis, err := NewTenantColumnProvider().VisibilityFor(context.Background(), "")
	require.NoError(t, err)

	assert.False(t, vis.IsZero())
	assert.Equal(t, "m.tenant_id IS NULL", vis.Fragment)
	assert.Empty(t, vis.Args)
}
