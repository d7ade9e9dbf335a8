// Package queries defines the read-side requests and response models
package queries

import (
	"strings"
	"time"

	"recall-backend/domain/core/valueobjects"
	"recall-backend/domain/retrieval"
	pkgerrors "recall-backend/pkg/errors"
)

// DefaultTopK applies when a search does not specify a result count
const DefaultTopK = 5

// MaxTopK bounds how many fused results one query may request
const MaxTopK = 100

// SearchQuery is the transport-agnostic hybrid search request
type SearchQuery struct {
	QueryText   string
	Embedding   []float32
	TopK        int
	Weights     map[string]float64
	Tags        []string
	DateFrom    *time.Time
	DateTo      *time.Time
	SourceTypes []string
	Sectors     []string
	// TenantID scopes visibility; empty means an anonymous caller, scoped
	// to shared rows only.
	TenantID string
}

// Validate rejects malformed or contradictory input before any retriever
// runs, naming the violated constraint.
func (q *SearchQuery) Validate() error {
	if strings.TrimSpace(q.QueryText) == "" {
		return pkgerrors.NewValidationError("query_text is required")
	}
	if q.TopK < 0 {
		return pkgerrors.NewValidationError("top_k must be positive")
	}
	if q.TopK == 0 {
		q.TopK = DefaultTopK
	}
	if q.TopK > MaxTopK {
		return pkgerrors.NewValidationError("top_k exceeds the maximum of 100")
	}
	if q.DateFrom != nil && q.DateTo != nil && q.DateFrom.After(*q.DateTo) {
		return pkgerrors.NewValidationError("date_from must not be after date_to")
	}
	for s, w := range q.Weights {
		if _, ok := retrieval.ParseSource(s); !ok {
			return pkgerrors.NewValidationError("unknown weight source " + s)
		}
		if w < 0 {
			return pkgerrors.NewValidationError("weight for " + s + " must be non-negative")
		}
	}
	for _, st := range q.SourceTypes {
		if _, err := valueobjects.ParseSourceType(st); err != nil {
			return pkgerrors.NewValidationError(err.Error())
		}
	}
	for _, sec := range q.Sectors {
		if _, err := valueobjects.ParseSector(sec); err != nil {
			return pkgerrors.NewValidationError(err.Error())
		}
	}
	return nil
}

// SourceWeights converts the caller's string-keyed weights to typed sources
func (q *SearchQuery) SourceWeights() map[retrieval.Source]float64 {
	if len(q.Weights) == 0 {
		return nil
	}
	out := make(map[retrieval.Source]float64, len(q.Weights))
	for s, w := range q.Weights {
		out[retrieval.Source(s)] = w
	}
	return out
}

// ResultSource is one source's contribution to a result, echoed for
// explainability.
type ResultSource struct {
	SourceType string  `json:"source_type"`
	Rank       int     `json:"rank"`
	RawScore   float64 `json:"raw_score"`
}

// Result is one fused search hit
type Result struct {
	ID             string         `json:"id"`
	ContentPreview string         `json:"content_preview"`
	FusedScore     float64        `json:"fused_score"`
	Sources        []ResultSource `json:"sources"`
}

// AppliedFilters echoes what actually constrained the query
type AppliedFilters struct {
	Tags          []string   `json:"tags,omitempty"`
	DateFrom      *time.Time `json:"date_from,omitempty"`
	DateTo        *time.Time `json:"date_to,omitempty"`
	SourceTypes   []string   `json:"source_types,omitempty"`
	Sectors       []string   `json:"sectors,omitempty"`
	TenantScoped  bool       `json:"tenant_scoped"`
	SkippedSource map[string]string `json:"skipped_sources,omitempty"`
	FailedSource  map[string]string `json:"failed_sources,omitempty"`
}

// SearchResponse is the full search answer. AppliedWeights reflects the
// post-normalization vector so callers can verify what actually ran.
type SearchResponse struct {
	Results        []Result           `json:"results"`
	AppliedFilters AppliedFilters     `json:"applied_filters"`
	AppliedWeights map[string]float64 `json:"applied_weights"`
}
