// Package retrievers contains the per-source retrieval adapters. Each
// adapter ranks its own candidates against the shared pre-filter and emits
// uniform (id, rank, score) tuples for fusion; none of them knows how the
// others score.
package retrievers

import (
	"context"

	"recall-backend/domain/retrieval"
)

// Request carries everything a single source needs for one retrieval pass
type Request struct {
	QueryText string
	Embedding []float32
	Filter    retrieval.Filter
	// Limit is the per-source fan-out cap applied before fusion.
	Limit int
}

// Retriever is one retrieval source. Implementations are read-only and
// side-effect-free, so the orchestrator may run them concurrently.
type Retriever interface {
	// Source names this retriever's contribution in fused results.
	Source() retrieval.Source

	// Eligible reports whether this source can run for the request; the
	// reason is surfaced in response metadata when it cannot.
	Eligible(req Request) (bool, string)

	// Retrieve returns this source's ranked candidates, best first, already
	// capped at req.Limit.
	Retrieve(ctx context.Context, req Request) ([]retrieval.SearchResult, error)
}
