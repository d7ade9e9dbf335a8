// Package handlers exposes the HTTP surface of the retrieval engine
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"

	"recall-backend/application/queries"
	queryhandlers "recall-backend/application/queries/handlers"
	"recall-backend/pkg/common"
	"recall-backend/pkg/errors"
)

// SearchHandler handles hybrid search requests
type SearchHandler struct {
	search *queryhandlers.SearchHandler
	logger *zap.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(search *queryhandlers.SearchHandler, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{search: search, logger: logger}
}

// SearchRequest is the request body for POST /api/v1/search
type SearchRequest struct {
	QueryText string             `json:"query_text" validate:"required"`
	Embedding []float32          `json:"embedding,omitempty"`
	TopK      int                `json:"top_k,omitempty" validate:"omitempty,min=1,max=100"`
	Weights   map[string]float64 `json:"weights,omitempty"`
	Filters   *SearchFilters     `json:"filters,omitempty"`
}

// SearchFilters narrows the candidate set before any ranking happens
type SearchFilters struct {
	Tags        []string `json:"tags,omitempty"`
	DateFrom    *string  `json:"date_from,omitempty"`
	DateTo      *string  `json:"date_to,omitempty"`
	SourceTypes []string `json:"source_types,omitempty"`
	Sectors     []string `json:"sectors,omitempty"`
}

// Search handles POST /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, errors.NewValidationError("invalid request body: "+err.Error()))
		return
	}
	if err := validate.Struct(req); err != nil {
		common.RespondError(w, errors.NewValidationError(err.Error()))
		return
	}

	query := queries.SearchQuery{
		QueryText: req.QueryText,
		Embedding: req.Embedding,
		TopK:      req.TopK,
		Weights:   req.Weights,
	}
	if req.Filters != nil {
		query.Tags = req.Filters.Tags
		query.SourceTypes = req.Filters.SourceTypes
		query.Sectors = req.Filters.Sectors
		var err error
		if query.DateFrom, err = parseDate(req.Filters.DateFrom); err != nil {
			common.RespondError(w, errors.NewValidationError("date_from must be an RFC 3339 date"))
			return
		}
		if query.DateTo, err = parseDate(req.Filters.DateTo); err != nil {
			common.RespondError(w, errors.NewValidationError("date_to must be an RFC 3339 date"))
			return
		}
	}
	if tenantID, ok := common.GetTenantID(r.Context()); ok {
		query.TenantID = tenantID
	}

	response, err := h.search.Handle(r.Context(), query)
	if err != nil {
		h.logger.Error("search failed", zap.Error(err))
		common.RespondError(w, err)
		return
	}
	common.RespondRaw(w, http.StatusOK, response)
}

// parseDate accepts a date or a full timestamp
func parseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, *s); err == nil {
		return &t, nil
	}
	t, err := time.Parse("2006-01-02", *s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
