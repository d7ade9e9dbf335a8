package retrievers

import (
	"context"
	"fmt"

	"recall-backend/application/ports"
	"recall-backend/domain/retrieval"

	"go.uber.org/zap"
)

// SemanticRetriever ranks memory units by vector similarity to the query
// embedding. The caller may supply a pre-computed embedding; otherwise the
// embedding provider computes one on the fly.
type SemanticRetriever struct {
	memories ports.MemoryRepository
	embedder ports.EmbeddingProvider
	logger   *zap.Logger
}

// NewSemanticRetriever creates a semantic retriever
func NewSemanticRetriever(
	memories ports.MemoryRepository,
	embedder ports.EmbeddingProvider,
	logger *zap.Logger,
) *SemanticRetriever {
	return &SemanticRetriever{
		memories: memories,
		embedder: embedder,
		logger:   logger,
	}
}

// Source identifies this retriever in fused results
func (r *SemanticRetriever) Source() retrieval.Source {
	return retrieval.SourceSemantic
}

// Eligible requires either a caller embedding or a configured provider
func (r *SemanticRetriever) Eligible(req Request) (bool, string) {
	if len(req.Embedding) == 0 && r.embedder == nil {
		return false, "no query embedding and no embedding provider configured"
	}
	return true, ""
}

// Retrieve runs filtered nearest-neighbor search over unit embeddings
func (r *SemanticRetriever) Retrieve(ctx context.Context, req Request) ([]retrieval.SearchResult, error) {
	embedding := req.Embedding
	if len(embedding) == 0 {
		var err error
		embedding, err = r.embedder.Embed(ctx, req.QueryText)
		if err != nil {
			return nil, fmt.Errorf("embedding query: %w", err)
		}
	}

	candidates, err := r.memories.SearchSimilar(ctx, embedding, req.Filter, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}

	results := make([]retrieval.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = retrieval.SearchResult{
			MemoryID: c.ID,
			Source:   retrieval.SourceSemantic,
			Rank:     i + 1,
			Score:    c.Score,
		}
	}
	r.logger.Debug("semantic retrieval complete", zap.Int("candidates", len(results)))
	return results, nil
}
