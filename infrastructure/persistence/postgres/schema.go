package postgres

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Migrate applies the schema owned by this service: graph nodes/edges with
// their uniqueness invariants, and memory units with the indexes backing
// filtered vector, full-text and tag lookups.
func (s *Store) Migrate(ctx context.Context, embeddingDims int) error {
	if embeddingDims <= 0 {
		embeddingDims = 1536
	}
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,

		// Node identity is case-insensitive: uniqueness and lookup both go
		// through lower(name), so "Alice" and "alice" are one node.
		`CREATE TABLE IF NOT EXISTS graph_nodes (
			id         UUID PRIMARY KEY,
			name       TEXT NOT NULL,
			label      TEXT NOT NULL DEFAULT 'entity',
			properties JSONB NOT NULL DEFAULT '{}'::jsonb,
			embedding  vector,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_graph_nodes_name_lower ON graph_nodes (lower(name))`,

		`CREATE TABLE IF NOT EXISTS graph_edges (
			id         UUID PRIMARY KEY,
			source_id  UUID NOT NULL REFERENCES graph_nodes(id),
			target_id  UUID NOT NULL REFERENCES graph_nodes(id),
			relation   TEXT NOT NULL,
			weight     DOUBLE PRECISION NOT NULL DEFAULT 1.0,
			properties JSONB NOT NULL DEFAULT '{}'::jsonb,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (source_id, target_id, relation)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_source ON graph_edges (source_id)`,
		`CREATE INDEX IF NOT EXISTS idx_graph_edges_target ON graph_edges (target_id)`,

		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS memory_units (
			id          UUID PRIMARY KEY,
			content     TEXT NOT NULL,
			embedding   vector(%d),
			tags        TEXT[] NOT NULL DEFAULT '{}',
			source_type TEXT NOT NULL DEFAULT 'insight',
			sector      TEXT NOT NULL DEFAULT 'general',
			tenant_id   TEXT,
			created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
			deleted     BOOLEAN NOT NULL DEFAULT FALSE,
			content_tsv TSVECTOR GENERATED ALWAYS AS (to_tsvector('english', content)) STORED
		)`, embeddingDims),
		`CREATE INDEX IF NOT EXISTS idx_memory_units_tags ON memory_units USING GIN (tags)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_units_tsv ON memory_units USING GIN (content_tsv)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_units_created ON memory_units (created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_units_sector ON memory_units (sector)`,
		`CREATE INDEX IF NOT EXISTS idx_memory_units_source_type ON memory_units (source_type)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}

	// HNSW is preferred; fall back silently on pgvector builds without it.
	if _, err := s.pool.Exec(ctx,
		`CREATE INDEX IF NOT EXISTS idx_memory_units_embedding
		 ON memory_units USING hnsw (embedding vector_cosine_ops)`); err != nil {
		s.logger.Warn("hnsw index unavailable, vector search will scan",
			zap.Error(err))
	}
	return nil
}
