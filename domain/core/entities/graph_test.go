package entities

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recall-backend/domain/core/valueobjects"
	pkgerrors "recall-backend/pkg/errors"
)

func TestNewNode_DefaultsAndValidation(t *testing.T) {
	node, err := NewNode("  alice  ", "", nil)
	require.NoError(t, err)

	assert.Equal(t, "alice", node.Name())
	assert.Equal(t, "entity", node.Label())
	assert.NotNil(t, node.Properties())

	_, err = NewNode("   ", "person", nil)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestNode_ReassertMergesInPlace(t *testing.T) {
	node, err := NewNode("alice", "person", map[string]any{"team": "platform"})
	require.NoError(t, err)
	id := node.ID()

	node.Reassert("employee", map[string]any{"seniority": "staff"})

	assert.Equal(t, id, node.ID())
	assert.Equal(t, "employee", node.Label())
	assert.Equal(t, "platform", node.Properties()["team"])
	assert.Equal(t, "staff", node.Properties()["seniority"])

	// An empty label keeps the existing one.
	node.Reassert("", nil)
	assert.Equal(t, "employee", node.Label())
}

func TestNewEdge_Validation(t *testing.T) {
	src, tgt := valueobjects.NewNodeID(), valueobjects.NewNodeID()

	_, err := NewEdge(valueobjects.NodeID{}, tgt, "works_at", 1.0, nil)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = NewEdge(src, tgt, "", 1.0, nil)
	assert.True(t, pkgerrors.IsValidation(err))

	_, err = NewEdge(src, tgt, "works_at", -1.0, nil)
	assert.True(t, pkgerrors.IsValidation(err))

	edge, err := NewEdge(src, tgt, "works_at", 0, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultEdgeWeight, edge.Weight())
}
