package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"recall-backend/application/services"
	"recall-backend/domain/core/valueobjects"
	"recall-backend/pkg/common"
	"recall-backend/pkg/errors"
	"recall-backend/pkg/observability"
)

// DefaultTraversalDepth bounds neighbor expansion when the caller does not
// give one.
const DefaultTraversalDepth = 1

// MaxTraversalDepth caps both neighbor expansion and path search
const MaxTraversalDepth = 6

// GraphHandler handles graph store HTTP requests
type GraphHandler struct {
	graph   *services.GraphService
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(graph *services.GraphService, metrics *observability.Metrics, logger *zap.Logger) *GraphHandler {
	return &GraphHandler{graph: graph, metrics: metrics, logger: logger}
}

// UpsertNodeRequest is the request body for asserting an entity
type UpsertNodeRequest struct {
	Name       string         `json:"name" validate:"required,max=500"`
	Label      string         `json:"label,omitempty" validate:"omitempty,max=100"`
	Properties map[string]any `json:"properties,omitempty"`
}

// NodeResponse describes an asserted entity
type NodeResponse struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Label       string         `json:"label"`
	Properties  map[string]any `json:"properties,omitempty"`
	WasInserted bool           `json:"was_inserted"`
}

// UpsertNode handles POST /api/v1/graph/nodes
func (h *GraphHandler) UpsertNode(w http.ResponseWriter, r *http.Request) {
	var req UpsertNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, errors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, errors.NewValidationError(err.Error()))
		return
	}

	node, inserted, err := h.graph.UpsertNode(r.Context(), services.NodeAssertion{
		Name:       req.Name,
		Label:      req.Label,
		Properties: req.Properties,
	})
	if err != nil {
		h.logger.Error("node upsert failed", zap.String("name", req.Name), zap.Error(err))
		common.RespondError(w, err)
		return
	}
	h.metrics.ObserveGraphUpsert("node", inserted)

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, NodeResponse{
		ID:          node.ID().String(),
		Name:        node.Name(),
		Label:       node.Label(),
		Properties:  node.Properties(),
		WasInserted: inserted,
	})
}

// UpsertEdgeRequest is the request body for asserting a relationship.
// Endpoints are named; unseen names are created as entities.
type UpsertEdgeRequest struct {
	SourceName  string         `json:"source_name" validate:"required,max=500"`
	SourceLabel string         `json:"source_label,omitempty" validate:"omitempty,max=100"`
	TargetName  string         `json:"target_name" validate:"required,max=500"`
	TargetLabel string         `json:"target_label,omitempty" validate:"omitempty,max=100"`
	Relation    string         `json:"relation" validate:"required,max=200"`
	Weight      float64        `json:"weight,omitempty" validate:"omitempty,min=0"`
	Properties  map[string]any `json:"properties,omitempty"`
}

// EdgeResponse describes an asserted relationship
type EdgeResponse struct {
	ID          string         `json:"id"`
	SourceID    string         `json:"source_id"`
	TargetID    string         `json:"target_id"`
	Relation    string         `json:"relation"`
	Weight      float64        `json:"weight"`
	Properties  map[string]any `json:"properties,omitempty"`
	WasInserted bool           `json:"was_inserted"`
}

// UpsertEdge handles POST /api/v1/graph/edges
func (h *GraphHandler) UpsertEdge(w http.ResponseWriter, r *http.Request) {
	var req UpsertEdgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, errors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, errors.NewValidationError(err.Error()))
		return
	}

	edge, inserted, err := h.graph.UpsertEdge(r.Context(), services.EdgeAssertion{
		SourceName:  req.SourceName,
		SourceLabel: req.SourceLabel,
		TargetName:  req.TargetName,
		TargetLabel: req.TargetLabel,
		Relation:    req.Relation,
		Weight:      req.Weight,
		Properties:  req.Properties,
	})
	if err != nil {
		h.logger.Error("edge upsert failed",
			zap.String("source", req.SourceName),
			zap.String("target", req.TargetName),
			zap.String("relation", req.Relation),
			zap.Error(err),
		)
		common.RespondError(w, err)
		return
	}
	h.metrics.ObserveGraphUpsert("edge", inserted)

	status := http.StatusOK
	if inserted {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, EdgeResponse{
		ID:          edge.ID().String(),
		SourceID:    edge.SourceID().String(),
		TargetID:    edge.TargetID().String(),
		Relation:    edge.Relation(),
		Weight:      edge.Weight(),
		Properties:  edge.Properties(),
		WasInserted: inserted,
	})
}

// NeighborResponse is one adjacent entity in a neighbors answer
type NeighborResponse struct {
	Name      string  `json:"name"`
	Relation  string  `json:"relation"`
	Weight    float64 `json:"weight"`
	Direction string  `json:"direction"`
	Distance  int     `json:"distance"`
}

// Neighbors handles GET /api/v1/graph/nodes/{name}/neighbors
func (h *GraphHandler) Neighbors(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		common.RespondError(w, errors.NewValidationError("node name is required"))
		return
	}

	direction := valueobjects.DirectionBoth
	if raw := r.URL.Query().Get("direction"); raw != "" {
		var err error
		direction, err = valueobjects.ParseDirection(raw)
		if err != nil {
			common.RespondError(w, errors.NewValidationError(err.Error()))
			return
		}
	}
	depth, err := parseDepth(r.URL.Query().Get("max_depth"), DefaultTraversalDepth)
	if err != nil {
		common.RespondError(w, err)
		return
	}
	var relations []string
	if raw := r.URL.Query().Get("relations"); raw != "" {
		for _, rel := range strings.Split(raw, ",") {
			if rel = strings.TrimSpace(rel); rel != "" {
				relations = append(relations, rel)
			}
		}
	}

	neighbors, err := h.graph.QueryNeighbors(r.Context(), name, direction, depth, relations)
	if err != nil {
		h.logger.Error("neighbor query failed", zap.String("name", name), zap.Error(err))
		common.RespondError(w, err)
		return
	}
	if neighbors == nil {
		common.RespondError(w, errors.NewNotFoundError("node "+name))
		return
	}

	out := make([]NeighborResponse, 0, len(neighbors))
	for _, n := range neighbors {
		out = append(out, NeighborResponse{
			Name:      n.Name,
			Relation:  n.Relation,
			Weight:    n.Weight,
			Direction: string(n.Direction),
			Distance:  n.Distance,
		})
	}
	common.RespondJSON(w, http.StatusOK, map[string]any{
		"name":      name,
		"neighbors": out,
	})
}

// PathResponse describes a shortest path between two entities
type PathResponse struct {
	Found  bool     `json:"found"`
	Path   []string `json:"path,omitempty"`
	Length int      `json:"length,omitempty"`
}

// Path handles GET /api/v1/graph/path
func (h *GraphHandler) Path(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		common.RespondError(w, errors.NewValidationError("from and to node names are required"))
		return
	}
	depth, err := parseDepth(r.URL.Query().Get("max_depth"), MaxTraversalDepth)
	if err != nil {
		common.RespondError(w, err)
		return
	}

	path, err := h.graph.FindShortestPath(r.Context(), from, to, depth)
	if err != nil {
		if !errors.IsNotFound(err) {
			h.logger.Error("path query failed",
				zap.String("from", from),
				zap.String("to", to),
				zap.Error(err),
			)
		}
		common.RespondError(w, err)
		return
	}
	if path == nil {
		common.RespondJSON(w, http.StatusOK, PathResponse{Found: false})
		return
	}
	common.RespondJSON(w, http.StatusOK, PathResponse{
		Found:  true,
		Path:   path.Names,
		Length: path.Length,
	})
}

// parseDepth validates a max_depth query parameter
func parseDepth(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	depth, err := strconv.Atoi(raw)
	if err != nil || depth < 1 {
		return 0, errors.NewValidationError("max_depth must be a positive integer")
	}
	if depth > MaxTraversalDepth {
		return 0, errors.NewValidationError("max_depth exceeds the maximum of 6")
	}
	return depth, nil
}
