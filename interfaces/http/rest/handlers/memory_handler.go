package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"recall-backend/application/services"
	"recall-backend/pkg/common"
	"recall-backend/pkg/errors"
)

// MemoryHandler handles memory ingestion HTTP requests
type MemoryHandler struct {
	memories *services.MemoryService
	logger   *zap.Logger
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memories *services.MemoryService, logger *zap.Logger) *MemoryHandler {
	return &MemoryHandler{memories: memories, logger: logger}
}

// IngestMemoryRequest is the request body for storing a memory unit
type IngestMemoryRequest struct {
	Content    string   `json:"content" validate:"required"`
	Tags       []string `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=100"`
	SourceType string   `json:"source_type,omitempty" validate:"omitempty,oneof=insight episode graph_derived"`
	Sector     string   `json:"sector,omitempty" validate:"omitempty,oneof=general technical personal planning reflection"`
}

// IngestMemoryResponse acknowledges a stored memory unit
type IngestMemoryResponse struct {
	ID         string   `json:"id"`
	Tags       []string `json:"tags,omitempty"`
	SourceType string   `json:"source_type"`
	Sector     string   `json:"sector"`
	Embedded   bool     `json:"embedded"`
	CreatedAt  string   `json:"created_at"`
}

// Ingest handles POST /api/v1/memories
func (h *MemoryHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req IngestMemoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, errors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, errors.NewValidationError(err.Error()))
		return
	}

	tenantID, _ := common.GetTenantID(r.Context())
	unit, err := h.memories.Ingest(r.Context(), services.IngestMemoryInput{
		Content:    req.Content,
		Tags:       req.Tags,
		SourceType: req.SourceType,
		Sector:     req.Sector,
		TenantID:   tenantID,
	})
	if err != nil {
		h.logger.Error("memory ingestion failed", zap.Error(err))
		common.RespondError(w, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, IngestMemoryResponse{
		ID:         unit.ID().String(),
		Tags:       unit.Tags(),
		SourceType: string(unit.SourceType()),
		Sector:     string(unit.Sector()),
		Embedded:   len(unit.Embedding()) > 0,
		CreatedAt:  unit.CreatedAt().Format(time.RFC3339),
	})
}
