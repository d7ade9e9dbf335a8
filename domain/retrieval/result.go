// Package retrieval holds the pure retrieval domain logic: the shared
// pre-filter, weight resolution across retrieval sources, and weighted
// reciprocal rank fusion of heterogeneous ranked lists.
package retrieval

import "recall-backend/domain/core/valueobjects"

// Source identifies one retrieval strategy contributing ranked candidates
type Source string

const (
	SourceSemantic Source = "semantic"
	SourceKeyword  Source = "keyword"
	SourceGraph    Source = "graph"
)

// ActiveSources lists every retrieval source in fusion order. Adding a
// source here only requires a default-share entry in weights.go; the fusion
// combinator is source-agnostic.
func ActiveSources() []Source {
	return []Source{SourceSemantic, SourceKeyword, SourceGraph}
}

// ParseSource validates a retrieval source name
func ParseSource(s string) (Source, bool) {
	switch Source(s) {
	case SourceSemantic, SourceKeyword, SourceGraph:
		return Source(s), true
	default:
		return "", false
	}
}

// SearchResult is one source's view of one candidate: a uniform
// (id, rank, score) tuple every retriever emits regardless of how its raw
// scores are scaled.
type SearchResult struct {
	MemoryID valueobjects.MemoryID
	Source   Source
	Rank     int
	Score    float64
}

// SourceContribution records one source's part in a fused result, kept for
// explainability and test assertions.
type SourceContribution struct {
	Source   Source  `json:"source_type"`
	Rank     int     `json:"rank"`
	RawScore float64 `json:"raw_score"`
}

// FusedResult is a deduplicated candidate with its fused score and the full
// per-source breakdown.
type FusedResult struct {
	MemoryID   valueobjects.MemoryID
	FusedScore float64
	Sources    []SourceContribution
}
