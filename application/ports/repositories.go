// Package ports defines the interfaces the application layer depends on.
// Infrastructure provides the implementations; handlers and services only
// ever see these contracts.
package ports

import (
	"context"

	"recall-backend/domain/core/entities"
	"recall-backend/domain/core/valueobjects"
	"recall-backend/domain/retrieval"
	"recall-backend/domain/services"
)

// NodeRepository persists graph nodes. UpsertByName is the single atomic
// insert-or-update primitive for the name uniqueness invariant; there is
// deliberately no separate insert or update.
type NodeRepository interface {
	// UpsertByName inserts a node or updates label/properties in place when
	// the name already exists. wasInserted comes from the storage primitive
	// itself, never from a prior read.
	UpsertByName(ctx context.Context, name, label string, properties map[string]any) (node *entities.Node, wasInserted bool, err error)

	// FindByName returns (nil, nil) when no node carries the name,
	// distinguishing absent from error.
	FindByName(ctx context.Context, name string) (*entities.Node, error)

	// FindByNames resolves many names at once; absent names are simply
	// missing from the result map.
	FindByNames(ctx context.Context, names []string) (map[string]*entities.Node, error)

	// MatchNames returns the node names among candidates that exist in the
	// graph, case-insensitively.
	MatchNames(ctx context.Context, candidates []string) ([]string, error)
}

// EdgeRepository persists graph edges keyed on (source, target, relation)
type EdgeRepository interface {
	// Upsert inserts an edge or updates weight/properties when the
	// (source, target, relation) key already exists.
	Upsert(ctx context.Context, sourceID, targetID valueobjects.NodeID, relation string, weight float64, properties map[string]any) (edge *entities.Edge, wasInserted bool, err error)

	// Adjacent returns every edge touching the node in either direction,
	// ordered weight desc then neighbor name asc for stable traversal.
	Adjacent(ctx context.Context, id valueobjects.NodeID) ([]services.AdjacentEdge, error)
}

// MemoryCandidate is a raw ranked row from one storage-side search
type MemoryCandidate struct {
	ID    valueobjects.MemoryID
	Score float64
}

// MemoryRepository is the read surface the retrievers share plus the
// ingestion write path. Every search applies the filter before ranking.
type MemoryRepository interface {
	// Save persists a new memory unit
	Save(ctx context.Context, unit *entities.MemoryUnit) error

	// SearchSimilar runs filtered approximate nearest-neighbor search over
	// unit embeddings, best first.
	SearchSimilar(ctx context.Context, embedding []float32, filter retrieval.Filter, limit int) ([]MemoryCandidate, error)

	// SearchText runs filtered full-text relevance search, best first.
	SearchText(ctx context.Context, query string, filter retrieval.Filter, limit int) ([]MemoryCandidate, error)

	// SearchByEntities runs filtered full-text search for units mentioning
	// any of the entity names, ranked by hits then relevance.
	SearchByEntities(ctx context.Context, names []string, filter retrieval.Filter, limit int) ([]MemoryCandidate, error)

	// FindByIDs hydrates fused results for the response
	FindByIDs(ctx context.Context, ids []valueobjects.MemoryID) (map[string]*entities.MemoryUnit, error)
}
