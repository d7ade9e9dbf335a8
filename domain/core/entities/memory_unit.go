package entities

import (
	"strings"
	"time"

	"recall-backend/domain/core/valueobjects"
	pkgerrors "recall-backend/pkg/errors"
)

// MemoryUnit is the retrievable knowledge unit. Units are produced by the
// ingestion path and consumed read-only by retrieval; soft-deleted units stay
// in storage but are invisible to every retriever.
type MemoryUnit struct {
	id         valueobjects.MemoryID
	content    string
	embedding  []float32
	tags       []string
	sourceType valueobjects.SourceType
	sector     valueobjects.Sector
	tenantID   string
	createdAt  time.Time
	deleted    bool
}

// NewMemoryUnit creates a memory unit with validation
func NewMemoryUnit(
	content string,
	embedding []float32,
	tags []string,
	sourceType valueobjects.SourceType,
	sector valueobjects.Sector,
) (*MemoryUnit, error) {
	if strings.TrimSpace(content) == "" {
		return nil, pkgerrors.NewValidationError("memory content cannot be empty")
	}
	if sourceType == "" {
		sourceType = valueobjects.SourceTypeInsight
	}
	if sector == "" {
		sector = valueobjects.SectorGeneral
	}
	return &MemoryUnit{
		id:         valueobjects.NewMemoryID(),
		content:    content,
		embedding:  embedding,
		tags:       normalizeTags(tags),
		sourceType: sourceType,
		sector:     sector,
		createdAt:  time.Now().UTC(),
	}, nil
}

// ReconstructMemoryUnit rebuilds a memory unit from persistence
func ReconstructMemoryUnit(
	id valueobjects.MemoryID,
	content string,
	embedding []float32,
	tags []string,
	sourceType valueobjects.SourceType,
	sector valueobjects.Sector,
	tenantID string,
	createdAt time.Time,
	deleted bool,
) *MemoryUnit {
	return &MemoryUnit{
		id:         id,
		content:    content,
		embedding:  embedding,
		tags:       tags,
		sourceType: sourceType,
		sector:     sector,
		tenantID:   tenantID,
		createdAt:  createdAt,
		deleted:    deleted,
	}
}

// AssignTenant scopes the unit to a tenant. Units without a tenant are
// shared and visible to every caller.
func (m *MemoryUnit) AssignTenant(tenantID string) {
	m.tenantID = strings.TrimSpace(tenantID)
}

// normalizeTags lowercases, trims and deduplicates tags preserving order
func normalizeTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ContentPreview returns the first maxLen runes of the content
func (m *MemoryUnit) ContentPreview(maxLen int) string {
	runes := []rune(m.content)
	if len(runes) <= maxLen {
		return m.content
	}
	return string(runes[:maxLen]) + "..."
}

// ID returns the memory unit identifier
func (m *MemoryUnit) ID() valueobjects.MemoryID { return m.id }

// Content returns the full content
func (m *MemoryUnit) Content() string { return m.content }

// Embedding returns the embedding vector
func (m *MemoryUnit) Embedding() []float32 { return m.embedding }

// Tags returns the normalized tag set
func (m *MemoryUnit) Tags() []string { return m.tags }

// SourceType returns how this unit was produced
func (m *MemoryUnit) SourceType() valueobjects.SourceType { return m.sourceType }

// Sector returns the topical category
func (m *MemoryUnit) Sector() valueobjects.Sector { return m.sector }

// TenantID returns the owning tenant, empty for shared units
func (m *MemoryUnit) TenantID() string { return m.tenantID }

// CreatedAt returns the creation timestamp
func (m *MemoryUnit) CreatedAt() time.Time { return m.createdAt }

// IsDeleted reports the soft-delete flag
func (m *MemoryUnit) IsDeleted() bool { return m.deleted }
