package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recall-backend/domain/core/valueobjects"
)

// fakeAdjacency is an in-memory adjacency source built from directed edges
type fakeAdjacency struct {
	nodes map[string]valueobjects.NodeID
	edges map[string][]AdjacentEdge
}

func newFakeAdjacency() *fakeAdjacency {
	return &fakeAdjacency{
		nodes: map[string]valueobjects.NodeID{},
		edges: map[string][]AdjacentEdge{},
	}
}

func (f *fakeAdjacency) node(name string) valueobjects.NodeID {
	if id, ok := f.nodes[name]; ok {
		return id
	}
	id := valueobjects.NewNodeID()
	f.nodes[name] = id
	return id
}

func (f *fakeAdjacency) addEdge(source, target, relation string, weight float64) {
	srcID, tgtID := f.node(source), f.node(target)
	f.edges[srcID.String()] = append(f.edges[srcID.String()], AdjacentEdge{
		NeighborID:   tgtID,
		NeighborName: target,
		Relation:     relation,
		Weight:       weight,
		Direction:    valueobjects.DirectionOutgoing,
	})
	f.edges[tgtID.String()] = append(f.edges[tgtID.String()], AdjacentEdge{
		NeighborID:   srcID,
		NeighborName: source,
		Relation:     relation,
		Weight:       weight,
		Direction:    valueobjects.DirectionIncoming,
	})
}

func (f *fakeAdjacency) Adjacent(_ context.Context, id valueobjects.NodeID) ([]AdjacentEdge, error) {
	return f.edges[id.String()], nil
}

func TestNeighbors_SurfacesIncomingEdges(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("alice", "acme", "works_at", 1.0)

	traverser := NewGraphTraverser(adj)
	neighbors, err := traverser.Neighbors(context.Background(), adj.node("acme"), valueobjects.DirectionBoth, 1, nil)
	require.NoError(t, err)

	require.Len(t, neighbors, 1)
	assert.Equal(t, "alice", neighbors[0].Name)
	assert.Equal(t, "works_at", neighbors[0].Relation)
	assert.Equal(t, valueobjects.DirectionIncoming, neighbors[0].Direction)
	assert.Equal(t, 1, neighbors[0].Distance)
}

func TestNeighbors_DirectionFilter(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("alice", "acme", "works_at", 1.0)
	adj.addEdge("acme", "berlin", "located_in", 1.0)

	traverser := NewGraphTraverser(adj)

	outgoing, err := traverser.Neighbors(context.Background(), adj.node("acme"), valueobjects.DirectionOutgoing, 1, nil)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, "berlin", outgoing[0].Name)

	incoming, err := traverser.Neighbors(context.Background(), adj.node("acme"), valueobjects.DirectionIncoming, 1, nil)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].Name)
}

func TestNeighbors_RelationFilter(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("alice", "acme", "works_at", 1.0)
	adj.addEdge("alice", "bob", "knows", 1.0)

	traverser := NewGraphTraverser(adj)
	neighbors, err := traverser.Neighbors(context.Background(), adj.node("alice"), valueobjects.DirectionBoth, 1, []string{"knows"})
	require.NoError(t, err)

	require.Len(t, neighbors, 1)
	assert.Equal(t, "bob", neighbors[0].Name)
}

func TestNeighbors_DistinctRelationsToSameNeighborBothSurface(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("alice", "acme", "works_at", 1.0)
	adj.addEdge("alice", "acme", "founded", 2.0)

	traverser := NewGraphTraverser(adj)
	neighbors, err := traverser.Neighbors(context.Background(), adj.node("alice"), valueobjects.DirectionBoth, 1, nil)
	require.NoError(t, err)

	require.Len(t, neighbors, 2)
	relations := []string{neighbors[0].Relation, neighbors[1].Relation}
	assert.ElementsMatch(t, []string{"works_at", "founded"}, relations)
}

func TestNeighbors_DepthTwoExpandsAndKeepsShortestDistance(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("alice", "acme", "works_at", 1.0)
	adj.addEdge("acme", "berlin", "located_in", 1.0)

	traverser := NewGraphTraverser(adj)
	neighbors, err := traverser.Neighbors(context.Background(), adj.node("alice"), valueobjects.DirectionBoth, 2, nil)
	require.NoError(t, err)

	require.Len(t, neighbors, 2)
	assert.Equal(t, "acme", neighbors[0].Name)
	assert.Equal(t, 1, neighbors[0].Distance)
	assert.Equal(t, "berlin", neighbors[1].Name)
	assert.Equal(t, 2, neighbors[1].Distance)
}

func TestNeighbors_OrderingWeightDescThenNameAsc(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("hub", "zeta", "rel", 5.0)
	adj.addEdge("hub", "alpha", "rel", 1.0)
	adj.addEdge("hub", "beta", "rel", 1.0)

	traverser := NewGraphTraverser(adj)
	neighbors, err := traverser.Neighbors(context.Background(), adj.node("hub"), valueobjects.DirectionBoth, 1, nil)
	require.NoError(t, err)

	require.Len(t, neighbors, 3)
	assert.Equal(t, "zeta", neighbors[0].Name)
	assert.Equal(t, "alpha", neighbors[1].Name)
	assert.Equal(t, "beta", neighbors[2].Name)
}

func TestShortestPath_DirectNeighbor(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("alice", "acme", "works_at", 1.0)

	traverser := NewGraphTraverser(adj)
	path, err := traverser.ShortestPath(context.Background(), adj.node("alice"), adj.node("acme"), "alice", "acme", 6)
	require.NoError(t, err)

	require.NotNil(t, path)
	assert.Equal(t, []string{"alice", "acme"}, path.Names)
	assert.Equal(t, 1, path.Length)
}

func TestShortestPath_TraversesAgainstEdgeDirection(t *testing.T) {
	// a -> b and c -> b: the path a..c exists only when direction is ignored.
	adj := newFakeAdjacency()
	adj.addEdge("a", "b", "rel", 1.0)
	adj.addEdge("c", "b", "rel", 1.0)

	traverser := NewGraphTraverser(adj)
	path, err := traverser.ShortestPath(context.Background(), adj.node("a"), adj.node("c"), "a", "c", 6)
	require.NoError(t, err)

	require.NotNil(t, path)
	assert.Equal(t, []string{"a", "b", "c"}, path.Names)
	assert.Equal(t, 2, path.Length)
}

func TestShortestPath_PrefersFewerHops(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("a", "b", "rel", 1.0)
	adj.addEdge("b", "c", "rel", 1.0)
	adj.addEdge("a", "c", "rel", 1.0)

	traverser := NewGraphTraverser(adj)
	path, err := traverser.ShortestPath(context.Background(), adj.node("a"), adj.node("c"), "a", "c", 6)
	require.NoError(t, err)

	require.NotNil(t, path)
	assert.Equal(t, 1, path.Length)
}

func TestShortestPath_RespectsMaxDepth(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("a", "b", "rel", 1.0)
	adj.addEdge("b", "c", "rel", 1.0)

	traverser := NewGraphTraverser(adj)
	path, err := traverser.ShortestPath(context.Background(), adj.node("a"), adj.node("c"), "a", "c", 1)
	require.NoError(t, err)

	assert.Nil(t, path)
}

func TestShortestPath_SameNodeIsZeroLength(t *testing.T) {
	adj := newFakeAdjacency()
	id := adj.node("a")

	traverser := NewGraphTraverser(adj)
	path, err := traverser.ShortestPath(context.Background(), id, id, "a", "a", 6)
	require.NoError(t, err)

	require.NotNil(t, path)
	assert.Equal(t, []string{"a"}, path.Names)
	assert.Equal(t, 0, path.Length)
}

func TestShortestPath_DisconnectedReturnsNil(t *testing.T) {
	adj := newFakeAdjacency()
	adj.addEdge("a", "b", "rel", 1.0)
	adj.addEdge("x", "y", "rel", 1.0)

	traverser := NewGraphTraverser(adj)
	path, err := traverser.ShortestPath(context.Background(), adj.node("a"), adj.node("x"), "a", "x", 6)
	require.NoError(t, err)

	assert.Nil(t, path)
}
