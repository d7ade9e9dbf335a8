package postgres

import (
	"context"
	"fmt"
	"time"

	"recall-backend/application/ports"
	"recall-backend/domain/core/entities"
	"recall-backend/domain/core/valueobjects"
	"recall-backend/domain/retrieval"

	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// MemoryRepository serves the retrievers' shared read surface and the
// ingestion write path. All three search shapes evaluate the compiled
// pre-filter inside candidate selection, before any ranking expression.
type MemoryRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewMemoryRepository creates a memory repository
func NewMemoryRepository(store *Store, logger *zap.Logger) *MemoryRepository {
	return &MemoryRepository{store: store, logger: logger}
}

// Save persists a new memory unit
func (r *MemoryRepository) Save(ctx context.Context, unit *entities.MemoryUnit) error {
	var embedding any
	if len(unit.Embedding()) > 0 {
		embedding = pgvector.NewVector(unit.Embedding())
	}
	return r.store.withRetry(ctx, "save memory", func(ctx context.Context) error {
		_, err := r.store.pool.Exec(ctx, `
			INSERT INTO memory_units (id, content, embedding, tags, source_type, sector, tenant_id, created_at, deleted)
			VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)`,
			unit.ID().String(),
			unit.Content(),
			embedding,
			unit.Tags(),
			string(unit.SourceType()),
			string(unit.Sector()),
			unit.TenantID(),
			unit.CreatedAt(),
			unit.IsDeleted(),
		)
		return err
	})
}

// SearchSimilar runs filtered cosine nearest-neighbor search. The score is
// cosine similarity (1 - distance), best first.
func (r *MemoryRepository) SearchSimilar(ctx context.Context, embedding []float32, filter retrieval.Filter, limit int) ([]ports.MemoryCandidate, error) {
	args := []any{pgvector.NewVector(embedding)}
	where, args := compileFilter(filter, args)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT m.id, 1 - (m.embedding <=> $1) AS score
		FROM memory_units m
		WHERE m.embedding IS NOT NULL AND %s
		ORDER BY m.embedding <=> $1
		LIMIT $%d`, where, len(args))

	return r.queryCandidates(ctx, "vector search", query, args)
}

// SearchText runs filtered full-text relevance search ranked by ts_rank
func (r *MemoryRepository) SearchText(ctx context.Context, queryText string, filter retrieval.Filter, limit int) ([]ports.MemoryCandidate, error) {
	args := []any{queryText}
	where, args := compileFilter(filter, args)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT m.id, ts_rank(m.content_tsv, plainto_tsquery('english', $1)) AS score
		FROM memory_units m
		WHERE m.content_tsv @@ plainto_tsquery('english', $1) AND %s
		ORDER BY score DESC, m.created_at DESC
		LIMIT $%d`, where, len(args))

	return r.queryCandidates(ctx, "text search", query, args)
}

// SearchByEntities finds units mentioning any of the entity names, ranked by
// how many distinct entities each unit mentions, then recency. The score is
// the hit count, which fusion treats as this source's raw relevance.
func (r *MemoryRepository) SearchByEntities(ctx context.Context, names []string, filter retrieval.Filter, limit int) ([]ports.MemoryCandidate, error) {
	if len(names) == 0 {
		return nil, nil
	}
	escaped := make([]string, len(names))
	for i, n := range names {
		escaped[i] = escapeLike(n)
	}
	args := []any{escaped}
	where, args := compileFilter(filter, args)
	args = append(args, limit)

	query := fmt.Sprintf(`
		SELECT m.id,
		       (SELECT count(*) FROM unnest($1::text[]) AS ent(name)
		        WHERE m.content ILIKE '%%' || ent.name || '%%')::float8 AS score
		FROM memory_units m
		WHERE %s
		  AND EXISTS (SELECT 1 FROM unnest($1::text[]) AS ent(name)
		              WHERE m.content ILIKE '%%' || ent.name || '%%')
		ORDER BY score DESC, m.created_at DESC
		LIMIT $%d`, where, len(args))

	return r.queryCandidates(ctx, "entity search", query, args)
}

// FindByIDs hydrates memory units for response assembly
func (r *MemoryRepository) FindByIDs(ctx context.Context, ids []valueobjects.MemoryID) (map[string]*entities.MemoryUnit, error) {
	if len(ids) == 0 {
		return map[string]*entities.MemoryUnit{}, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = id.String()
	}

	out := make(map[string]*entities.MemoryUnit, len(ids))
	err := r.store.withRetry(ctx, "find memories", func(ctx context.Context) error {
		rows, err := r.store.pool.Query(ctx, `
			SELECT id, content, tags, source_type, sector, COALESCE(tenant_id, ''), created_at, deleted
			FROM memory_units
			WHERE id = ANY($1)`, raw)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id, content, sourceType, sector, tenantID string
				tags                                      []string
				createdAt                                 time.Time
				deleted                                   bool
			)
			if err := rows.Scan(&id, &content, &tags, &sourceType, &sector, &tenantID, &createdAt, &deleted); err != nil {
				return err
			}
			memID, err := valueobjects.NewMemoryIDFromString(id)
			if err != nil {
				return err
			}
			out[id] = entities.ReconstructMemoryUnit(
				memID, content, nil, tags,
				valueobjects.SourceType(sourceType),
				valueobjects.Sector(sector),
				tenantID, createdAt, deleted,
			)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// queryCandidates runs one ranked candidate query
func (r *MemoryRepository) queryCandidates(ctx context.Context, operation, query string, args []any) ([]ports.MemoryCandidate, error) {
	var out []ports.MemoryCandidate
	err := r.store.withRetry(ctx, operation, func(ctx context.Context) error {
		rows, err := r.store.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			var (
				id    string
				score float64
			)
			if err := rows.Scan(&id, &score); err != nil {
				return err
			}
			memID, err := valueobjects.NewMemoryIDFromString(id)
			if err != nil {
				return err
			}
			out = append(out, ports.MemoryCandidate{ID: memID, Score: score})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
