// Package handlers contains the read-side orchestration
package handlers

import (
	"context"
	"strings"
	"sync"
	"time"

	"recall-backend/application/ports"
	"recall-backend/application/queries"
	"recall-backend/application/retrievers"
	"recall-backend/domain/core/valueobjects"
	"recall-backend/domain/retrieval"
	pkgerrors "recall-backend/pkg/errors"
	"recall-backend/pkg/observability"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SearchConfig tunes the orchestration
type SearchConfig struct {
	// FanOutFactor multiplies top_k into the per-source candidate cap.
	FanOutFactor int
	// MaxFanOut bounds the cap regardless of top_k.
	MaxFanOut int
	// RetrieverTimeout is the per-source deadline; a source exceeding it is
	// dropped from fusion, not the whole query.
	RetrieverTimeout time.Duration
	// RRFSmoothing is the fusion K constant.
	RRFSmoothing int
}

// DefaultSearchConfig returns the tuned defaults
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		FanOutFactor:     3,
		MaxFanOut:        200,
		RetrieverTimeout: 3 * time.Second,
		RRFSmoothing:     retrieval.DefaultRRFSmoothing,
	}
}

// SearchHandler fuses the three retrieval sources into one ranked answer.
// The retrievers are read-only and side-effect-free over the same filter, so
// they run concurrently; fusion waits for all of them and proceeds with
// whatever completed, failing only when no source did.
type SearchHandler struct {
	retrievers []retrievers.Retriever
	memories   ports.MemoryRepository
	visibility ports.VisibilityProvider
	config     SearchConfig
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewSearchHandler creates a search handler
func NewSearchHandler(
	sources []retrievers.Retriever,
	memories ports.MemoryRepository,
	visibility ports.VisibilityProvider,
	config SearchConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *SearchHandler {
	if config.FanOutFactor <= 0 {
		config.FanOutFactor = 3
	}
	if config.MaxFanOut <= 0 {
		config.MaxFanOut = 200
	}
	if config.RetrieverTimeout <= 0 {
		config.RetrieverTimeout = 3 * time.Second
	}
	return &SearchHandler{
		retrievers: sources,
		memories:   memories,
		visibility: visibility,
		config:     config,
		metrics:    metrics,
		logger:     logger,
	}
}

// Handle executes one hybrid search
func (h *SearchHandler) Handle(ctx context.Context, q queries.SearchQuery) (*queries.SearchResponse, error) {
	started := time.Now()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	filter, err := h.buildFilter(ctx, q)
	if err != nil {
		return nil, err
	}

	weights, err := retrieval.ResolveWeights(q.SourceWeights(), retrieval.ActiveSources())
	if err != nil {
		return nil, err
	}

	limit := q.TopK * h.config.FanOutFactor
	if limit > h.config.MaxFanOut {
		limit = h.config.MaxFanOut
	}
	req := retrievers.Request{
		QueryText: q.QueryText,
		Embedding: q.Embedding,
		Filter:    filter,
		Limit:     limit,
	}

	bySource, skipped, failed := h.fanOut(ctx, req)
	if len(bySource) == 0 {
		var cause error
		for _, msg := range failed {
			cause = pkgerrors.NewInternalError(msg)
			break
		}
		return nil, pkgerrors.NewSearchUnavailableError(cause)
	}

	fused := retrieval.Fuse(bySource, weights, retrieval.FusionConfig{
		Smoothing: h.config.RRFSmoothing,
		TopK:      q.TopK,
	})

	resp, err := h.buildResponse(ctx, q, fused, weights, skipped, failed)
	if err != nil {
		return nil, err
	}

	if h.metrics != nil {
		h.metrics.ObserveSearch(time.Since(started), len(resp.Results), len(failed))
	}
	h.logger.Info("search complete",
		zap.Int("results", len(resp.Results)),
		zap.Int("sources_completed", len(bySource)),
		zap.Int("sources_failed", len(failed)),
		zap.Int("sources_skipped", len(skipped)),
		zap.Duration("duration", time.Since(started)),
	)
	return resp, nil
}

// buildFilter assembles the shared pre-filter, including the opaque tenant
// visibility predicate, and validates it before anything runs.
func (h *SearchHandler) buildFilter(ctx context.Context, q queries.SearchQuery) (retrieval.Filter, error) {
	filter := retrieval.Filter{
		Tags:     normalizeLower(q.Tags),
		DateFrom: q.DateFrom,
		DateTo:   q.DateTo,
	}
	for _, st := range q.SourceTypes {
		parsed, err := valueobjects.ParseSourceType(st)
		if err != nil {
			return retrieval.Filter{}, pkgerrors.NewValidationError(err.Error())
		}
		filter.SourceTypes = append(filter.SourceTypes, parsed)
	}
	for _, s := range q.Sectors {
		parsed, err := valueobjects.ParseSector(s)
		if err != nil {
			return retrieval.Filter{}, pkgerrors.NewValidationError(err.Error())
		}
		filter.Sectors = append(filter.Sectors, parsed)
	}
	// The visibility predicate is consulted for every request. Anonymous
	// callers get the shared-rows-only fragment, never an unscoped query.
	if h.visibility != nil {
		vis, err := h.visibility.VisibilityFor(ctx, q.TenantID)
		if err != nil {
			return retrieval.Filter{}, err
		}
		filter.Visibility = vis
	}
	if err := filter.Validate(); err != nil {
		return retrieval.Filter{}, err
	}
	return filter, nil
}

// fanOut runs every eligible retriever concurrently under its own deadline.
// A failed or timed-out source is logged and excluded; it never aborts the
// others.
func (h *SearchHandler) fanOut(ctx context.Context, req retrievers.Request) (
	bySource map[retrieval.Source][]retrieval.SearchResult,
	skipped map[string]string,
	failed map[string]string,
) {
	bySource = make(map[retrieval.Source][]retrieval.SearchResult)
	skipped = make(map[string]string)
	failed = make(map[string]string)

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)

	for _, r := range h.retrievers {
		r := r
		if ok, reason := r.Eligible(req); !ok {
			skipped[string(r.Source())] = reason
			continue
		}
		g.Go(func() error {
			sourceCtx, cancel := context.WithTimeout(gctx, h.config.RetrieverTimeout)
			defer cancel()

			sourceStart := time.Now()
			results, err := r.Retrieve(sourceCtx, req)
			if h.metrics != nil {
				h.metrics.ObserveRetriever(string(r.Source()), time.Since(sourceStart), err == nil)
			}

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Partial source failure: degraded but available.
				h.logger.Warn("retrieval source failed",
					zap.String("source", string(r.Source())),
					zap.Error(err),
				)
				failed[string(r.Source())] = err.Error()
				return nil
			}
			bySource[r.Source()] = results
			return nil
		})
	}
	_ = g.Wait()
	return bySource, skipped, failed
}

// buildResponse hydrates fused IDs into response rows, preserving fusion
// order and attaching per-source provenance.
func (h *SearchHandler) buildResponse(
	ctx context.Context,
	q queries.SearchQuery,
	fused []retrieval.FusedResult,
	weights map[retrieval.Source]float64,
	skipped, failed map[string]string,
) (*queries.SearchResponse, error) {
	ids := make([]valueobjects.MemoryID, len(fused))
	for i, f := range fused {
		ids[i] = f.MemoryID
	}
	units, err := h.memories.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	results := make([]queries.Result, 0, len(fused))
	for _, f := range fused {
		row := queries.Result{
			ID:         f.MemoryID.String(),
			FusedScore: f.FusedScore,
		}
		if unit, ok := units[f.MemoryID.String()]; ok {
			row.ContentPreview = unit.ContentPreview(200)
		}
		for _, c := range f.Sources {
			row.Sources = append(row.Sources, queries.ResultSource{
				SourceType: string(c.Source),
				Rank:       c.Rank,
				RawScore:   c.RawScore,
			})
		}
		results = append(results, row)
	}

	applied := make(map[string]float64, len(weights))
	for s, w := range weights {
		applied[string(s)] = w
	}

	return &queries.SearchResponse{
		Results: results,
		AppliedFilters: queries.AppliedFilters{
			Tags:          normalizeLower(q.Tags),
			DateFrom:      q.DateFrom,
			DateTo:        q.DateTo,
			SourceTypes:   q.SourceTypes,
			Sectors:       q.Sectors,
			TenantScoped:  q.TenantID != "",
			SkippedSource: emptyAsNil(skipped),
			FailedSource:  emptyAsNil(failed),
		},
		AppliedWeights: applied,
	}, nil
}

// normalizeLower lowercases and trims tag inputs
func normalizeLower(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func emptyAsNil(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	return m
}
