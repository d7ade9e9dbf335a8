package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"recall-backend/domain/core/entities"
	"recall-backend/domain/core/valueobjects"
	"recall-backend/domain/services"
	pkgerrors "recall-backend/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EdgeRepository persists graph edges keyed on (source, target, relation)
type EdgeRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewEdgeRepository creates an edge repository
func NewEdgeRepository(store *Store, logger *zap.Logger) *EdgeRepository {
	return &EdgeRepository{store: store, logger: logger}
}

// Upsert inserts or updates an edge in a single atomic statement, reporting
// insert-vs-update from the statement itself. The accuracy of wasInserted is
// load-bearing for auditing; it must never be computed separately.
func (r *EdgeRepository) Upsert(
	ctx context.Context,
	sourceID, targetID valueobjects.NodeID,
	relation string,
	weight float64,
	properties map[string]any,
) (*entities.Edge, bool, error) {
	if properties == nil {
		properties = map[string]any{}
	}
	props, err := json.Marshal(properties)
	if err != nil {
		return nil, false, fmt.Errorf("encoding edge properties: %w", err)
	}
	if weight <= 0 {
		weight = entities.DefaultEdgeWeight
	}

	var (
		edge        *entities.Edge
		wasInserted bool
	)
	err = r.store.withRetry(ctx, "upsert edge", func(ctx context.Context) error {
		row := r.store.pool.QueryRow(ctx, `
			INSERT INTO graph_edges (id, source_id, target_id, relation, weight, properties)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (source_id, target_id, relation) DO UPDATE SET
				weight     = EXCLUDED.weight,
				properties = graph_edges.properties || EXCLUDED.properties
			RETURNING id, source_id, target_id, relation, weight, properties, created_at, (xmax = 0)`,
			uuid.New().String(), sourceID.String(), targetID.String(), relation, weight, props,
		)
		var (
			id, src, tgt, rel string
			gotWeight         float64
			gotProps          []byte
			createdAt         time.Time
		)
		if err := row.Scan(&id, &src, &tgt, &rel, &gotWeight, &gotProps, &createdAt, &wasInserted); err != nil {
			return err
		}
		edge = scanEdge(id, src, tgt, rel, gotWeight, gotProps, createdAt)
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			key := fmt.Sprintf("edge (%s, %s, %s)", sourceID, targetID, relation)
			return nil, false, pkgerrors.NewGraphIntegrityError(key, err)
		}
		return nil, false, err
	}
	return edge, wasInserted, nil
}

// Adjacent returns every edge touching the node in either direction. Rows
// are ordered weight desc, neighbor name asc so traversal discovery order
// is deterministic.
func (r *EdgeRepository) Adjacent(ctx context.Context, id valueobjects.NodeID) ([]services.AdjacentEdge, error) {
	var out []services.AdjacentEdge
	err := r.store.withRetry(ctx, "adjacent edges", func(ctx context.Context) error {
		rows, err := r.store.pool.Query(ctx, `
			SELECT n.id, n.name, e.relation, e.weight,
			       CASE WHEN e.source_id = $1 THEN 'outgoing' ELSE 'incoming' END
			FROM graph_edges e
			JOIN graph_nodes n
			  ON n.id = CASE WHEN e.source_id = $1 THEN e.target_id ELSE e.source_id END
			WHERE e.source_id = $1 OR e.target_id = $1
			ORDER BY e.weight DESC, n.name ASC`, id.String())
		if err != nil {
			return err
		}
		defer rows.Close()
		out = out[:0]
		for rows.Next() {
			var (
				neighborID, neighborName, relation, direction string
				weight                                        float64
			)
			if err := rows.Scan(&neighborID, &neighborName, &relation, &weight, &direction); err != nil {
				return err
			}
			nid, err := valueobjects.NewNodeIDFromString(neighborID)
			if err != nil {
				return err
			}
			out = append(out, services.AdjacentEdge{
				NeighborID:   nid,
				NeighborName: neighborName,
				Relation:     relation,
				Weight:       weight,
				Direction:    valueobjects.Direction(direction),
			})
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// scanEdge rebuilds a domain edge from row values
func scanEdge(id, src, tgt, rel string, weight float64, props []byte, createdAt time.Time) *entities.Edge {
	properties := map[string]any{}
	if len(props) > 0 {
		_ = json.Unmarshal(props, &properties)
	}
	edgeID, _ := valueobjects.NewEdgeIDFromString(id)
	sourceID, _ := valueobjects.NewNodeIDFromString(src)
	targetID, _ := valueobjects.NewNodeIDFromString(tgt)
	return entities.ReconstructEdge(edgeID, sourceID, targetID, rel, weight, properties, createdAt)
}
