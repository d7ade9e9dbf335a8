// Package integration exercises the Postgres-backed store end to end.
// Tests are skipped unless RECALL_TEST_DATABASE_URL points at a database
// with the pgvector extension available.
package integration

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recall-backend/application/services"
	"recall-backend/domain/core/entities"
	"recall-backend/domain/core/valueobjects"
	"recall-backend/domain/retrieval"
	domainservices "recall-backend/domain/services"
	"recall-backend/infrastructure/persistence/postgres"
	"recall-backend/infrastructure/visibility"
)

type fixture struct {
	store    *postgres.Store
	nodes    *postgres.NodeRepository
	edges    *postgres.EdgeRepository
	memories *postgres.MemoryRepository
	graph    *services.GraphService
}

func setup(t *testing.T) *fixture {
	t.Helper()
	dsn := os.Getenv("RECALL_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("RECALL_TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	logger := zap.NewNop()
	cfg := postgres.DefaultConfig(dsn)
	cfg.EmbeddingDims = 4

	store, err := postgres.NewStore(ctx, cfg, nil, logger)
	require.NoError(t, err)
	t.Cleanup(store.Close)

	require.NoError(t, store.Migrate(ctx, cfg.EmbeddingDims))

	for _, table := range []string{"graph_edges", "graph_nodes", "memory_units"} {
		_, err := store.Pool().Exec(ctx, fmt.Sprintf("TRUNCATE %s CASCADE", table))
		require.NoError(t, err)
	}

	nodes := postgres.NewNodeRepository(store, logger)
	edges := postgres.NewEdgeRepository(store, logger)
	traverser := domainservices.NewGraphTraverser(edges)

	return &fixture{
		store:    store,
		nodes:    nodes,
		edges:    edges,
		memories: postgres.NewMemoryRepository(store, logger),
		graph:    services.NewGraphService(nodes, edges, traverser, logger),
	}
}

func newMemory(content string, tags []string) (*entities.MemoryUnit, error) {
	return entities.NewMemoryUnit(content, nil, tags, valueobjects.SourceTypeInsight, valueobjects.SectorGeneral)
}

func TestNodeUpsertIsIdempotent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, inserted, err := f.graph.UpsertNode(ctx, services.NodeAssertion{
		Name:       "alice",
		Label:      "person",
		Properties: map[string]any{"team": "platform"},
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	second, inserted, err := f.graph.UpsertNode(ctx, services.NodeAssertion{
		Name:       "alice",
		Label:      "employee",
		Properties: map[string]any{"seniority": "staff"},
	})
	require.NoError(t, err)

	assert.False(t, inserted)
	assert.Equal(t, first.ID().String(), second.ID().String())
	assert.Equal(t, "employee", second.Label())
	// Property maps merge, they do not replace.
	assert.Equal(t, "platform", second.Properties()["team"])
	assert.Equal(t, "staff", second.Properties()["seniority"])
}

func TestNodeNameIdentityIsCaseInsensitive(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first, inserted, err := f.graph.UpsertNode(ctx, services.NodeAssertion{
		Name: "Alice", Label: "person",
	})
	require.NoError(t, err)
	assert.True(t, inserted)

	// A different spelling of the same name updates the existing node, it
	// never creates a second one.
	second, inserted, err := f.graph.UpsertNode(ctx, services.NodeAssertion{
		Name: "alice", Label: "employee",
	})
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, first.ID().String(), second.ID().String())

	var count int
	require.NoError(t, f.store.Pool().
		QueryRow(ctx, "SELECT count(*) FROM graph_nodes WHERE lower(name) = 'alice'").
		Scan(&count))
	assert.Equal(t, 1, count)

	found, err := f.nodes.FindByName(ctx, "ALICE")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, first.ID().String(), found.ID().String())
}

func TestEdgeUpsertCreatesUnseenEndpoints(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	edge, inserted, err := f.graph.UpsertEdge(ctx, services.EdgeAssertion{
		SourceName: "alice",
		TargetName: "acme",
		Relation:   "works_at",
	})
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.False(t, edge.SourceID().IsZero())

	// Re-asserting the same key updates in place.
	_, inserted, err = f.graph.UpsertEdge(ctx, services.EdgeAssertion{
		SourceName: "alice",
		TargetName: "acme",
		Relation:   "works_at",
		Weight:     2.5,
	})
	require.NoError(t, err)
	assert.False(t, inserted)
}

func TestNeighborsAndShortestPath(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	for _, e := range []struct{ src, tgt, rel string }{
		{"alice", "acme", "works_at"},
		{"acme", "berlin", "located_in"},
	} {
		_, _, err := f.graph.UpsertEdge(ctx, services.EdgeAssertion{
			SourceName: e.src, TargetName: e.tgt, Relation: e.rel,
		})
		require.NoError(t, err)
	}

	// acme sees alice through the incoming edge.
	neighbors, err := f.graph.QueryNeighbors(ctx, "acme", valueobjects.DirectionBoth, 1, nil)
	require.NoError(t, err)
	require.Len(t, neighbors, 2)

	incoming, err := f.graph.QueryNeighbors(ctx, "acme", valueobjects.DirectionIncoming, 1, nil)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, "alice", incoming[0].Name)

	path, err := f.graph.FindShortestPath(ctx, "alice", "berlin", 6)
	require.NoError(t, err)
	require.NotNil(t, path)
	assert.Equal(t, []string{"alice", "acme", "berlin"}, path.Names)
	assert.Equal(t, 2, path.Length)

	// Absent node answers (nil, nil), not an error.
	missing, err := f.graph.QueryNeighbors(ctx, "nobody", valueobjects.DirectionBoth, 1, nil)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFilteredTextSearch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	save := func(content string, tags []string) {
		unit, err := newMemory(content, tags)
		require.NoError(t, err)
		require.NoError(t, f.memories.Save(ctx, unit))
	}
	save("decided to adopt kafka for the event backbone", []string{"project-atlas", "month-2"})
	save("kafka consumer lag investigation notes", []string{"project-atlas"})
	save("grocery list for the week", []string{"personal"})

	all, err := f.memories.SearchText(ctx, "kafka", retrieval.Filter{}, 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Tag containment filters before ranking.
	month2, err := f.memories.SearchText(ctx, "kafka", retrieval.Filter{
		Tags: []string{"project-atlas", "month-2"},
	}, 10)
	require.NoError(t, err)
	assert.Len(t, month2, 1)
}

func TestTenantVisibilityScopesSearch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	shared, err := newMemory("kafka rollout announcement", nil)
	require.NoError(t, err)
	require.NoError(t, f.memories.Save(ctx, shared))

	scoped, err := newMemory("kafka credential rotation runbook", nil)
	require.NoError(t, err)
	scoped.AssignTenant("tenant-7")
	require.NoError(t, f.memories.Save(ctx, scoped))

	provider := visibility.NewTenantColumnProvider()

	// Anonymous callers see shared rows only.
	anonVis, err := provider.VisibilityFor(ctx, "")
	require.NoError(t, err)
	anonHits, err := f.memories.SearchText(ctx, "kafka", retrieval.Filter{Visibility: anonVis}, 10)
	require.NoError(t, err)
	require.Len(t, anonHits, 1)
	assert.Equal(t, shared.ID().String(), anonHits[0].ID.String())

	// The owning tenant sees both shared and its own rows.
	tenantVis, err := provider.VisibilityFor(ctx, "tenant-7")
	require.NoError(t, err)
	tenantHits, err := f.memories.SearchText(ctx, "kafka", retrieval.Filter{Visibility: tenantVis}, 10)
	require.NoError(t, err)
	assert.Len(t, tenantHits, 2)
}
