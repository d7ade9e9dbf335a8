package ports

import (
	"context"

	"recall-backend/domain/retrieval"
)

// EmbeddingProvider computes query/content embeddings. Implementations are
// expected to be fallible and retryable on rate-limit and network errors.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VisibilityProvider supplies the opaque tenant predicate the pre-filter
// pipeline ANDs into every retriever query. The engine treats the fragment
// as an uninterpreted boolean condition.
type VisibilityProvider interface {
	VisibilityFor(ctx context.Context, tenantID string) (retrieval.Visibility, error)
}
