package retrievers

import (
	"context"
	"fmt"
	"strings"

	"recall-backend/application/ports"
	"recall-backend/domain/retrieval"

	"go.uber.org/zap"
)

// KeywordRetriever ranks memory units by lexical full-text relevance. It has
// no embedding dependency and serves as the always-available source.
type KeywordRetriever struct {
	memories ports.MemoryRepository
	logger   *zap.Logger
}

// NewKeywordRetriever creates a keyword retriever
func NewKeywordRetriever(memories ports.MemoryRepository, logger *zap.Logger) *KeywordRetriever {
	return &KeywordRetriever{memories: memories, logger: logger}
}

// Source identifies this retriever in fused results
func (r *KeywordRetriever) Source() retrieval.Source {
	return retrieval.SourceKeyword
}

// Eligible requires non-empty query text
func (r *KeywordRetriever) Eligible(req Request) (bool, string) {
	if strings.TrimSpace(req.QueryText) == "" {
		return false, "empty query text"
	}
	return true, ""
}

// Retrieve runs filtered full-text search over unit content
func (r *KeywordRetriever) Retrieve(ctx context.Context, req Request) ([]retrieval.SearchResult, error) {
	candidates, err := r.memories.SearchText(ctx, req.QueryText, req.Filter, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	results := make([]retrieval.SearchResult, len(candidates))
	for i, c := range candidates {
		results[i] = retrieval.SearchResult{
			MemoryID: c.ID,
			Source:   retrieval.SourceKeyword,
			Rank:     i + 1,
			Score:    c.Score,
		}
	}
	r.logger.Debug("keyword retrieval complete", zap.Int("candidates", len(results)))
	return results, nil
}
