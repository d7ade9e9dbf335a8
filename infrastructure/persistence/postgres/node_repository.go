package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"recall-backend/domain/core/entities"
	"recall-backend/domain/core/valueobjects"
	pkgerrors "recall-backend/pkg/errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// NodeRepository persists graph nodes with the name uniqueness invariant
type NodeRepository struct {
	store  *Store
	logger *zap.Logger
}

// NewNodeRepository creates a node repository
func NewNodeRepository(store *Store, logger *zap.Logger) *NodeRepository {
	return &NodeRepository{store: store, logger: logger}
}

// UpsertByName inserts or updates a node in a single atomic statement.
// was_inserted comes straight from the conflict arbitration (xmax = 0 on a
// freshly inserted row), never from a separate read — the read-then-write
// form is exactly the race that duplicates entities.
func (r *NodeRepository) UpsertByName(ctx context.Context, name, label string, properties map[string]any) (*entities.Node, bool, error) {
	if properties == nil {
		properties = map[string]any{}
	}
	props, err := json.Marshal(properties)
	if err != nil {
		return nil, false, fmt.Errorf("encoding node properties: %w", err)
	}

	var (
		node        *entities.Node
		wasInserted bool
	)
	err = r.store.withRetry(ctx, "upsert node", func(ctx context.Context) error {
		// Conflict arbitration matches the lookup regime: lower(name), so
		// re-asserting a name in a different case updates the existing node
		// instead of silently duplicating it. The first-asserted spelling
		// is kept.
		row := r.store.pool.QueryRow(ctx, `
			INSERT INTO graph_nodes (id, name, label, properties)
			VALUES ($1, $2, COALESCE(NULLIF($3, ''), 'entity'), $4)
			ON CONFLICT (lower(name)) DO UPDATE SET
				label      = COALESCE(NULLIF(EXCLUDED.label, ''), graph_nodes.label),
				properties = graph_nodes.properties || EXCLUDED.properties
			RETURNING id, name, label, properties, created_at, (xmax = 0)`,
			uuid.New().String(), strings.TrimSpace(name), label, props,
		)
		var (
			id        string
			gotName   string
			gotLabel  string
			gotProps  []byte
			createdAt time.Time
		)
		if err := row.Scan(&id, &gotName, &gotLabel, &gotProps, &createdAt, &wasInserted); err != nil {
			return err
		}
		node = scanNode(id, gotName, gotLabel, gotProps, nil, createdAt)
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, false, pkgerrors.NewGraphIntegrityError("node name "+name, err)
		}
		return nil, false, err
	}
	return node, wasInserted, nil
}

// FindByName returns (nil, nil) when the name is absent
func (r *NodeRepository) FindByName(ctx context.Context, name string) (*entities.Node, error) {
	nodes, err := r.FindByNames(ctx, []string{name})
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		return n, nil
	}
	return nil, nil
}

// FindByNames resolves many names case-insensitively in one query
func (r *NodeRepository) FindByNames(ctx context.Context, names []string) (map[string]*entities.Node, error) {
	if len(names) == 0 {
		return map[string]*entities.Node{}, nil
	}
	lowered := make([]string, len(names))
	for i, n := range names {
		lowered[i] = strings.ToLower(strings.TrimSpace(n))
	}

	out := make(map[string]*entities.Node, len(names))
	err := r.store.withRetry(ctx, "find nodes by name", func(ctx context.Context) error {
		rows, err := r.store.pool.Query(ctx, `
			SELECT id, name, label, properties, created_at
			FROM graph_nodes
			WHERE lower(name) = ANY($1)`, lowered)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var (
				id, name, label string
				props           []byte
				createdAt       time.Time
			)
			if err := rows.Scan(&id, &name, &label, &props, &createdAt); err != nil {
				return err
			}
			out[name] = scanNode(id, name, label, props, nil, createdAt)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MatchNames returns which candidate strings name existing nodes
func (r *NodeRepository) MatchNames(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	lowered := make([]string, len(candidates))
	for i, c := range candidates {
		lowered[i] = strings.ToLower(strings.TrimSpace(c))
	}

	var matched []string
	err := r.store.withRetry(ctx, "match node names", func(ctx context.Context) error {
		rows, err := r.store.pool.Query(ctx, `
			SELECT name FROM graph_nodes
			WHERE lower(name) = ANY($1)
			ORDER BY name`, lowered)
		if err != nil {
			return err
		}
		defer rows.Close()
		matched = matched[:0]
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err != nil {
				return err
			}
			matched = append(matched, name)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return matched, nil
}

// scanNode rebuilds a domain node from row values
func scanNode(id, name, label string, props []byte, embedding []float32, createdAt time.Time) *entities.Node {
	properties := map[string]any{}
	if len(props) > 0 {
		// Properties were marshalled by us; a decode failure leaves them empty.
		_ = json.Unmarshal(props, &properties)
	}
	nodeID, _ := valueobjects.NewNodeIDFromString(id)
	return entities.ReconstructNode(nodeID, name, label, properties, embedding, createdAt)
}
