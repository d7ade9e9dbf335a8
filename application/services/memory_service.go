package services

import (
	"context"

	"recall-backend/application/ports"
	"recall-backend/domain/core/entities"
	"recall-backend/domain/core/valueobjects"
	pkgerrors "recall-backend/pkg/errors"

	"go.uber.org/zap"
)

// IngestMemoryInput is the write-path input for a new memory unit
type IngestMemoryInput struct {
	Content    string
	Tags       []string
	SourceType string
	Sector     string
	// TenantID scopes the unit to its owning tenant; empty means shared.
	TenantID string
}

// MemoryService owns the ingestion path: it computes the unit's embedding
// through the external provider and persists the unit. Retrieval never
// writes; this is the only component that does.
type MemoryService struct {
	memories ports.MemoryRepository
	embedder ports.EmbeddingProvider
	logger   *zap.Logger
}

// NewMemoryService creates a memory service
func NewMemoryService(
	memories ports.MemoryRepository,
	embedder ports.EmbeddingProvider,
	logger *zap.Logger,
) *MemoryService {
	return &MemoryService{
		memories: memories,
		embedder: embedder,
		logger:   logger,
	}
}

// Ingest validates, embeds and stores a new memory unit. A unit saved
// without an embedding (provider unavailable) is still lexically and
// graph-retrievable.
func (s *MemoryService) Ingest(ctx context.Context, in IngestMemoryInput) (*entities.MemoryUnit, error) {
	sourceType := valueobjects.SourceTypeInsight
	if in.SourceType != "" {
		var err error
		sourceType, err = valueobjects.ParseSourceType(in.SourceType)
		if err != nil {
			return nil, pkgerrors.NewValidationError(err.Error())
		}
	}
	sector := valueobjects.SectorGeneral
	if in.Sector != "" {
		var err error
		sector, err = valueobjects.ParseSector(in.Sector)
		if err != nil {
			return nil, pkgerrors.NewValidationError(err.Error())
		}
	}

	var embedding []float32
	if s.embedder != nil {
		var err error
		embedding, err = s.embedder.Embed(ctx, in.Content)
		if err != nil {
			s.logger.Warn("embedding unavailable, storing memory without vector", zap.Error(err))
			embedding = nil
		}
	}

	unit, err := entities.NewMemoryUnit(in.Content, embedding, in.Tags, sourceType, sector)
	if err != nil {
		return nil, err
	}
	unit.AssignTenant(in.TenantID)
	if err := s.memories.Save(ctx, unit); err != nil {
		return nil, err
	}

	s.logger.Info("memory ingested",
		zap.String("memory_id", unit.ID().String()),
		zap.String("source_type", string(unit.SourceType())),
		zap.Int("tags", len(unit.Tags())),
		zap.Bool("embedded", len(embedding) > 0),
	)
	return unit, nil
}
