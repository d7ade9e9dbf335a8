package retrievers

import (
	"context"
	"fmt"
	"strings"

	"recall-backend/application/ports"
	"recall-backend/domain/core/valueobjects"
	"recall-backend/domain/retrieval"
	"recall-backend/domain/services"

	"go.uber.org/zap"
)

// relationshipMarkers signal that a query is asking about how things relate
// rather than what they are, which widens graph expansion by one hop.
var relationshipMarkers = []string{
	"related", "relation", "relationship", "connected", "connection",
	"linked", "link", "between", "depends", "dependency", "caused",
	"causes", "leads to", "associated", "interacts",
}

// stopwords excluded from entity candidate extraction
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"how": true, "in": true, "is": true, "it": true, "of": true, "on": true,
	"or": true, "that": true, "the": true, "to": true, "was": true,
	"what": true, "when": true, "where": true, "which": true, "who": true,
	"with": true,
}

// GraphRetriever surfaces memory units through the knowledge graph: query
// terms are matched against node names, matched entities are expanded via
// neighbor traversal, and units mentioning any entity in the expanded set
// are ranked. Queries that touch no known entity yield an empty list, not
// an error.
type GraphRetriever struct {
	nodes     ports.NodeRepository
	traverser *services.GraphTraverser
	memories  ports.MemoryRepository
	maxDepth  int
	logger    *zap.Logger
}

// NewGraphRetriever creates a graph retriever. maxDepth bounds entity
// expansion for relationship-seeking queries; plain queries expand one hop.
func NewGraphRetriever(
	nodes ports.NodeRepository,
	traverser *services.GraphTraverser,
	memories ports.MemoryRepository,
	maxDepth int,
	logger *zap.Logger,
) *GraphRetriever {
	if maxDepth < 1 {
		maxDepth = 2
	}
	return &GraphRetriever{
		nodes:     nodes,
		traverser: traverser,
		memories:  memories,
		maxDepth:  maxDepth,
		logger:    logger,
	}
}

// Source identifies this retriever in fused results
func (r *GraphRetriever) Source() retrieval.Source {
	return retrieval.SourceGraph
}

// Eligible skips the graph source when the source-type filter cannot match
// graph-derived units, since expansion would only surface rows the filter
// discards anyway.
func (r *GraphRetriever) Eligible(req Request) (bool, string) {
	if strings.TrimSpace(req.QueryText) == "" {
		return false, "empty query text"
	}
	if !req.Filter.AllowsSourceType(valueobjects.SourceTypeGraphDerived) {
		return false, "source_type filter excludes graph-derived units"
	}
	return true, ""
}

// Retrieve matches entities, expands them through the graph and ranks
// memory units mentioning the expanded entity set.
func (r *GraphRetriever) Retrieve(ctx context.Context, req Request) ([]retrieval.SearchResult, error) {
	candidates := entityCandidates(req.QueryText)
	if len(candidates) == 0 {
		return nil, nil
	}

	matched, err := r.nodes.MatchNames(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("matching entity names: %w", err)
	}
	if len(matched) == 0 {
		return nil, nil
	}

	depth := 1
	if hasRelationshipIntent(req.QueryText) {
		depth = r.maxDepth
	}

	entityNames := make([]string, 0, len(matched)*4)
	seen := make(map[string]bool)
	for _, name := range matched {
		if !seen[strings.ToLower(name)] {
			seen[strings.ToLower(name)] = true
			entityNames = append(entityNames, name)
		}
	}

	resolved, err := r.nodes.FindByNames(ctx, matched)
	if err != nil {
		return nil, fmt.Errorf("resolving entities: %w", err)
	}
	for _, node := range resolved {
		neighbors, err := r.traverser.Neighbors(ctx, node.ID(), valueobjects.DirectionBoth, depth, nil)
		if err != nil {
			return nil, fmt.Errorf("expanding entity %q: %w", node.Name(), err)
		}
		for _, n := range neighbors {
			if !seen[strings.ToLower(n.Name)] {
				seen[strings.ToLower(n.Name)] = true
				entityNames = append(entityNames, n.Name)
			}
		}
	}

	rows, err := r.memories.SearchByEntities(ctx, entityNames, req.Filter, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("entity memory search: %w", err)
	}

	results := make([]retrieval.SearchResult, len(rows))
	for i, c := range rows {
		results[i] = retrieval.SearchResult{
			MemoryID: c.ID,
			Source:   retrieval.SourceGraph,
			Rank:     i + 1,
			Score:    c.Score,
		}
	}
	r.logger.Debug("graph retrieval complete",
		zap.Int("matched_entities", len(matched)),
		zap.Int("expanded_entities", len(entityNames)),
		zap.Int("candidates", len(results)),
	)
	return results, nil
}

// hasRelationshipIntent detects relationship-seeking phrasing
func hasRelationshipIntent(query string) bool {
	q := strings.ToLower(query)
	for _, marker := range relationshipMarkers {
		if strings.Contains(q, marker) {
			return true
		}
	}
	return false
}

// entityCandidates extracts unigram and bigram candidates from query text
func entityCandidates(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9' || r == '-' || r == '_')
	})
	var tokens []string
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	candidates := make([]string, 0, len(tokens)*2)
	candidates = append(candidates, tokens...)
	for i := 0; i+1 < len(tokens); i++ {
		candidates = append(candidates, tokens[i]+" "+tokens[i+1])
	}
	return candidates
}
