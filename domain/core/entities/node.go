package entities

import (
	"strings"
	"time"

	"recall-backend/domain/core/valueobjects"
	pkgerrors "recall-backend/pkg/errors"
)

// Node is a named graph entity. Names are globally unique across the whole
// graph, not scoped by label: asserting an existing name updates the node in
// place and must never create a duplicate.
type Node struct {
	id         valueobjects.NodeID
	name       string
	label      string
	properties map[string]any
	embedding  []float32
	createdAt  time.Time
}

// NewNode creates a new node with validation
func NewNode(name, label string, properties map[string]any) (*Node, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.NewValidationError("node name cannot be empty")
	}
	if label == "" {
		label = "entity"
	}
	if properties == nil {
		properties = make(map[string]any)
	}
	return &Node{
		id:         valueobjects.NewNodeID(),
		name:       name,
		label:      label,
		properties: properties,
		createdAt:  time.Now().UTC(),
	}, nil
}

// ReconstructNode rebuilds a node from persistence without re-validating
func ReconstructNode(
	id valueobjects.NodeID,
	name, label string,
	properties map[string]any,
	embedding []float32,
	createdAt time.Time,
) *Node {
	if properties == nil {
		properties = make(map[string]any)
	}
	return &Node{
		id:         id,
		name:       name,
		label:      label,
		properties: properties,
		embedding:  embedding,
		createdAt:  createdAt,
	}
}

// Reassert applies a repeated assertion of this entity: the label and any
// provided properties are updated, identity and creation time are preserved.
func (n *Node) Reassert(label string, properties map[string]any) {
	if label != "" {
		n.label = label
	}
	for k, v := range properties {
		n.properties[k] = v
	}
}

// SetEmbedding attaches an embedding vector to the node
func (n *Node) SetEmbedding(embedding []float32) {
	n.embedding = embedding
}

// ID returns the node identifier
func (n *Node) ID() valueobjects.NodeID { return n.id }

// Name returns the globally unique node name
func (n *Node) Name() string { return n.name }

// Label returns the mutable type tag
func (n *Node) Label() string { return n.label }

// Properties returns the open property map
func (n *Node) Properties() map[string]any { return n.properties }

// Embedding returns the optional embedding vector
func (n *Node) Embedding() []float32 { return n.embedding }

// CreatedAt returns the creation timestamp
func (n *Node) CreatedAt() time.Time { return n.createdAt }
