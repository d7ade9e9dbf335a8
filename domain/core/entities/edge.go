package entities

import (
	"time"

	"recall-backend/domain/core/valueobjects"
	pkgerrors "recall-backend/pkg/errors"
)

// DefaultEdgeWeight is assigned when an assertion carries no weight
const DefaultEdgeWeight = 1.0

// Edge is a directed, typed relationship between two nodes. At most one edge
// exists per (source, target, relation); re-asserting updates weight and
// properties. Edges reference their endpoints by ID only.
type Edge struct {
	id         valueobjects.EdgeID
	sourceID   valueobjects.NodeID
	targetID   valueobjects.NodeID
	relation   string
	weight     float64
	properties map[string]any
	createdAt  time.Time
}

// NewEdge creates a new edge with validation
func NewEdge(
	sourceID, targetID valueobjects.NodeID,
	relation string,
	weight float64,
	properties map[string]any,
) (*Edge, error) {
	if sourceID.IsZero() || targetID.IsZero() {
		return nil, pkgerrors.NewValidationError("edge endpoints must be resolved node IDs")
	}
	if relation == "" {
		return nil, pkgerrors.NewValidationError("edge relation cannot be empty")
	}
	if weight == 0 {
		weight = DefaultEdgeWeight
	}
	if weight < 0 {
		return nil, pkgerrors.NewValidationError("edge weight cannot be negative")
	}
	if properties == nil {
		properties = make(map[string]any)
	}
	return &Edge{
		id:         valueobjects.NewEdgeID(),
		sourceID:   sourceID,
		targetID:   targetID,
		relation:   relation,
		weight:     weight,
		properties: properties,
		createdAt:  time.Now().UTC(),
	}, nil
}

// ReconstructEdge rebuilds an edge from persistence without re-validating
func ReconstructEdge(
	id valueobjects.EdgeID,
	sourceID, targetID valueobjects.NodeID,
	relation string,
	weight float64,
	properties map[string]any,
	createdAt time.Time,
) *Edge {
	if properties == nil {
		properties = make(map[string]any)
	}
	return &Edge{
		id:         id,
		sourceID:   sourceID,
		targetID:   targetID,
		relation:   relation,
		weight:     weight,
		properties: properties,
		createdAt:  createdAt,
	}
}

// Reassert applies a repeated assertion of this relationship
func (e *Edge) Reassert(weight float64, properties map[string]any) {
	if weight > 0 {
		e.weight = weight
	}
	for k, v := range properties {
		e.properties[k] = v
	}
}

// ID returns the edge identifier
func (e *Edge) ID() valueobjects.EdgeID { return e.id }

// SourceID returns the source node ID
func (e *Edge) SourceID() valueobjects.NodeID { return e.sourceID }

// TargetID returns the target node ID
func (e *Edge) TargetID() valueobjects.NodeID { return e.targetID }

// Relation returns the relationship type
func (e *Edge) Relation() string { return e.relation }

// Weight returns the edge weight
func (e *Edge) Weight() float64 { return e.weight }

// Properties returns the open property map
func (e *Edge) Properties() map[string]any { return e.properties }

// CreatedAt returns the creation timestamp
func (e *Edge) CreatedAt() time.Time { return e.createdAt }
