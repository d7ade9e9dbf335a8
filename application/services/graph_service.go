package services

import (
	"context"

	"recall-backend/application/ports"
	"recall-backend/domain/core/entities"
	"recall-backend/domain/core/valueobjects"
	domainservices "recall-backend/domain/services"
	pkgerrors "recall-backend/pkg/errors"

	"go.uber.org/zap"
)

// NodeAssertion is the input for asserting a graph entity
type NodeAssertion struct {
	Name       string
	Label      string
	Properties map[string]any
}

// EdgeAssertion is the input for asserting a relationship. Endpoints are
// given by name; unseen entities are created as part of the assertion.
type EdgeAssertion struct {
	SourceName  string
	SourceLabel string
	TargetName  string
	TargetLabel string
	Relation    string
	Weight      float64
	Properties  map[string]any
}

// GraphService owns the graph store operations: idempotent upserts,
// bidirectional neighbor lookup and shortest-path search. Upserts go through
// the repositories' atomic primitives; a uniqueness race that still slips
// through is retried once here before surfacing.
type GraphService struct {
	nodes     ports.NodeRepository
	edges     ports.EdgeRepository
	traverser *domainservices.GraphTraverser
	logger    *zap.Logger
}

// NewGraphService creates a graph service
func NewGraphService(
	nodes ports.NodeRepository,
	edges ports.EdgeRepository,
	traverser *domainservices.GraphTraverser,
	logger *zap.Logger,
) *GraphService {
	return &GraphService{
		nodes:     nodes,
		edges:     edges,
		traverser: traverser,
		logger:    logger,
	}
}

// UpsertNode asserts a node by name. Re-asserting an existing name updates
// label and properties in place and reports wasInserted=false.
func (s *GraphService) UpsertNode(ctx context.Context, in NodeAssertion) (*entities.Node, bool, error) {
	if in.Name == "" {
		return nil, false, pkgerrors.NewValidationError("node name is required")
	}

	node, inserted, err := s.nodes.UpsertByName(ctx, in.Name, in.Label, in.Properties)
	if pkgerrors.IsGraphIntegrity(err) {
		s.logger.Warn("node upsert integrity conflict, retrying once", zap.String("name", in.Name))
		node, inserted, err = s.nodes.UpsertByName(ctx, in.Name, in.Label, in.Properties)
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug("node asserted",
		zap.String("name", in.Name),
		zap.Bool("was_inserted", inserted),
	)
	return node, inserted, nil
}

// UpsertEdge asserts a relationship, resolving both endpoints through the
// node upsert primitive first so asserting an edge may create unseen
// entities, then atomically upserting on (source, target, relation).
func (s *GraphService) UpsertEdge(ctx context.Context, in EdgeAssertion) (*entities.Edge, bool, error) {
	if in.SourceName == "" || in.TargetName == "" {
		return nil, false, pkgerrors.NewValidationError("edge source and target names are required")
	}
	if in.Relation == "" {
		return nil, false, pkgerrors.NewValidationError("edge relation is required")
	}
	if in.Weight < 0 {
		return nil, false, pkgerrors.NewValidationError("edge weight must be non-negative")
	}
	if in.Weight == 0 {
		in.Weight = entities.DefaultEdgeWeight
	}

	source, _, err := s.UpsertNode(ctx, NodeAssertion{Name: in.SourceName, Label: in.SourceLabel})
	if err != nil {
		return nil, false, err
	}
	target, _, err := s.UpsertNode(ctx, NodeAssertion{Name: in.TargetName, Label: in.TargetLabel})
	if err != nil {
		return nil, false, err
	}

	edge, inserted, err := s.edges.Upsert(ctx, source.ID(), target.ID(), in.Relation, in.Weight, in.Properties)
	if pkgerrors.IsGraphIntegrity(err) {
		s.logger.Warn("edge upsert integrity conflict, retrying once",
			zap.String("source", in.SourceName),
			zap.String("target", in.TargetName),
			zap.String("relation", in.Relation),
		)
		edge, inserted, err = s.edges.Upsert(ctx, source.ID(), target.ID(), in.Relation, in.Weight, in.Properties)
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug("edge asserted",
		zap.String("source", in.SourceName),
		zap.String("target", in.TargetName),
		zap.String("relation", in.Relation),
		zap.Bool("was_inserted", inserted),
	)
	return edge, inserted, nil
}

// QueryNeighbors expands from a node by name. Returns (nil, nil) when the
// node does not exist so transport can answer "absent" rather than "error".
func (s *GraphService) QueryNeighbors(
	ctx context.Context,
	name string,
	direction valueobjects.Direction,
	maxDepth int,
	relationFilter []string,
) ([]domainservices.Neighbor, error) {
	node, err := s.nodes.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, nil
	}
	return s.traverser.Neighbors(ctx, node.ID(), direction, maxDepth, relationFilter)
}

// FindShortestPath resolves both names to internal IDs before any structural
// comparison, then runs depth-bounded undirected BFS. A nil path with nil
// error means no path exists within maxDepth; a missing endpoint reports
// which name was absent.
func (s *GraphService) FindShortestPath(ctx context.Context, startName, endName string, maxDepth int) (*domainservices.Path, error) {
	start, err := s.nodes.FindByName(ctx, startName)
	if err != nil {
		return nil, err
	}
	if start == nil {
		return nil, pkgerrors.NewNotFoundError("node " + startName)
	}
	end, err := s.nodes.FindByName(ctx, endName)
	if err != nil {
		return nil, err
	}
	if end == nil {
		return nil, pkgerrors.NewNotFoundError("node " + endName)
	}
	return s.traverser.ShortestPath(ctx, start.ID(), end.ID(), start.Name(), end.Name(), maxDepth)
}
