// Package services contains domain services: logic that spans entities and
// operates through narrow ports rather than owning state.
package services

import (
	"context"
	"sort"

	"recall-backend/domain/core/valueobjects"
)

// AdjacentEdge is one edge touching a node, seen from that node's side
type AdjacentEdge struct {
	NeighborID   valueobjects.NodeID
	NeighborName string
	Relation     string
	Weight       float64
	// Direction is outgoing when the origin node is the edge source,
	// incoming when it is the target.
	Direction valueobjects.Direction
}

// AdjacencySource supplies both-direction adjacency for traversal. The
// returned edges must be deterministically ordered (weight desc, name asc)
// so BFS discovery order is stable.
type AdjacencySource interface {
	Adjacent(ctx context.Context, id valueobjects.NodeID) ([]AdjacentEdge, error)
}

// Neighbor is one traversal result row
type Neighbor struct {
	Name      string
	Relation  string
	Weight    float64
	Direction valueobjects.Direction
	Distance  int
}

// Path is a shortest path between two nodes
type Path struct {
	Names  []string
	Length int
}

// GraphTraverser implements neighbor expansion and shortest-path search over
// an adjacency source. It is pure with respect to storage.
type GraphTraverser struct {
	source AdjacencySource
}

// NewGraphTraverser creates a traverser over the given adjacency source
func NewGraphTraverser(source AdjacencySource) *GraphTraverser {
	return &GraphTraverser{source: source}
}

// Neighbors expands from startID up to maxDepth hops. Neighbors are
// direction-agnostic by default: an edge A->B surfaces A from B's side,
// tagged incoming. Deduplication keys on (neighbor, relation) so two
// distinct relations to the same neighbor both surface, keeping the
// shortest distance seen. Ordering: distance asc, weight desc, name asc.
func (t *GraphTraverser) Neighbors(
	ctx context.Context,
	startID valueobjects.NodeID,
	direction valueobjects.Direction,
	maxDepth int,
	relationFilter []string,
) ([]Neighbor, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if direction == "" {
		direction = valueobjects.DirectionBoth
	}
	allowed := make(map[string]bool, len(relationFilter))
	for _, r := range relationFilter {
		allowed[r] = true
	}

	type dedupeKey struct {
		id       string
		relation string
	}
	seen := map[dedupeKey]*Neighbor{}
	visited := map[string]bool{startID.String(): true}
	frontier := []valueobjects.NodeID{startID}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []valueobjects.NodeID
		for _, id := range frontier {
			edges, err := t.source.Adjacent(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if direction != valueobjects.DirectionBoth && e.Direction != direction {
					continue
				}
				if len(allowed) > 0 && !allowed[e.Relation] {
					continue
				}
				if e.NeighborID.String() == startID.String() {
					continue
				}
				key := dedupeKey{id: e.NeighborID.String(), relation: e.Relation}
				if _, ok := seen[key]; !ok {
					seen[key] = &Neighbor{
						Name:      e.NeighborName,
						Relation:  e.Relation,
						Weight:    e.Weight,
						Direction: e.Direction,
						Distance:  depth,
					}
				}
				if !visited[e.NeighborID.String()] {
					visited[e.NeighborID.String()] = true
					next = append(next, e.NeighborID)
				}
			}
		}
		frontier = next
	}

	out := make([]Neighbor, 0, len(seen))
	for _, n := range seen {
		out = append(out, *n)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Distance != out[j].Distance {
			return out[i].Distance < out[j].Distance
		}
		if out[i].Weight != out[j].Weight {
			return out[i].Weight > out[j].Weight
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ShortestPath runs a breadth-first search over the undirected adjacency
// relation, one depth level at a time, stopping at maxDepth or on reaching
// endID. Reachability, not edge directionality, is the intent; ties break by
// BFS discovery order. Returns nil when no path exists within maxDepth.
func (t *GraphTraverser) ShortestPath(
	ctx context.Context,
	startID, endID valueobjects.NodeID,
	startName, endName string,
	maxDepth int,
) (*Path, error) {
	if maxDepth < 1 {
		maxDepth = 1
	}
	if startID.String() == endID.String() {
		return &Path{Names: []string{startName}, Length: 0}, nil
	}

	parent := map[string]step{}
	visited := map[string]bool{startID.String(): true}
	frontier := []step{{id: startID, name: startName}}

	for depth := 1; depth <= maxDepth && len(frontier) > 0; depth++ {
		var next []step
		for _, cur := range frontier {
			edges, err := t.source.Adjacent(ctx, cur.id)
			if err != nil {
				return nil, err
			}
			for _, e := range edges {
				if visited[e.NeighborID.String()] {
					continue
				}
				visited[e.NeighborID.String()] = true
				parent[e.NeighborID.String()] = cur
				if e.NeighborID.String() == endID.String() {
					return t.reconstructPath(parent, startID, endID, endName), nil
				}
				next = append(next, step{id: e.NeighborID, name: e.NeighborName})
			}
		}
		frontier = next
	}
	return nil, nil
}

// step is one discovered node during BFS
type step struct {
	id   valueobjects.NodeID
	name string
}

// reconstructPath walks the parent chain from end back to start
func (t *GraphTraverser) reconstructPath(
	parent map[string]step,
	startID, endID valueobjects.NodeID,
	endName string,
) *Path {
	names := []string{endName}
	cur := endID.String()
	for cur != startID.String() {
		p := parent[cur]
		names = append(names, p.name)
		cur = p.id.String()
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return &Path{Names: names, Length: len(names) - 1}
}
