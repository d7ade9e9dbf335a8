package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"recall-backend/application/ports"
	"recall-backend/application/queries"
	"recall-backend/application/retrievers"
	"recall-backend/domain/core/entities"
	"recall-backend/domain/core/valueobjects"
	"recall-backend/domain/retrieval"
	pkgerrors "recall-backend/pkg/errors"
)

// stubRetriever returns a canned result list or error for one source
type stubRetriever struct {
	source  retrieval.Source
	results []retrieval.SearchResult
	err     error
	skip    string
	gotReq  *retrievers.Request
}

func (s *stubRetriever) Source() retrieval.Source { return s.source }

func (s *stubRetriever) Eligible(retrievers.Request) (bool, string) {
	if s.skip != "" {
		return false, s.skip
	}
	return true, ""
}

func (s *stubRetriever) Retrieve(_ context.Context, req retrievers.Request) ([]retrieval.SearchResult, error) {
	s.gotReq = &req
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// hydratingRepo implements only the FindByIDs path the handler needs
type hydratingRepo struct {
	units map[string]*entities.MemoryUnit
}

func (h *hydratingRepo) Save(context.Context, *entities.MemoryUnit) error { panic("not used") }

func (h *hydratingRepo) SearchSimilar(context.Context, []float32, retrieval.Filter, int) ([]ports.MemoryCandidate, error) {
	panic("not used")
}

func (h *hydratingRepo) SearchText(context.Context, string, retrieval.Filter, int) ([]ports.MemoryCandidate, error) {
	panic("not used")
}

func (h *hydratingRepo) SearchByEntities(context.Context, []string, retrieval.Filter, int) ([]ports.MemoryCandidate, error) {
	panic("not used")
}

func (h *hydratingRepo) FindByIDs(_ context.Context, ids []valueobjects.MemoryID) (map[string]*entities.MemoryUnit, error) {
	out := map[string]*entities.MemoryUnit{}
	for _, id := range ids {
		if u, ok := h.units[id.String()]; ok {
			out[id.String()] = u
		}
	}
	return out, nil
}

type stubVisibility struct {
	got   string
	calls int
	vis   retrieval.Visibility
}

func (s *stubVisibility) VisibilityFor(_ context.Context, tenantID string) (retrieval.Visibility, error) {
	s.calls++
	s.got = tenantID
	if tenantID == "" {
		return retrieval.Visibility{Fragment: "m.tenant_id IS NULL"}, nil
	}
	return s.vis, nil
}

// corpusRetriever ranks an in-memory corpus through the same filter
// semantics storage pushes into SQL
type corpusRetriever struct {
	source retrieval.Source
	corpus []*entities.MemoryUnit
}

func (c *corpusRetriever) Source() retrieval.Source                   { return c.source }
func (c *corpusRetriever) Eligible(retrievers.Request) (bool, string) { return true, "" }

func (c *corpusRetriever) Retrieve(_ context.Context, req retrievers.Request) ([]retrieval.SearchResult, error) {
	var out []retrieval.SearchResult
	for _, u := range c.corpus {
		view := retrieval.MemoryView{
			Tags:       u.Tags(),
			CreatedAt:  u.CreatedAt(),
			SourceType: u.SourceType(),
			Sector:     u.Sector(),
			Deleted:    u.IsDeleted(),
		}
		if !req.Filter.Matches(view) {
			continue
		}
		out = append(out, retrieval.SearchResult{
			MemoryID: u.ID(),
			Source:   c.source,
			Rank:     len(out) + 1,
			Score:    1.0 / float64(len(out)+1),
		})
		if len(out) == req.Limit {
			break
		}
	}
	return out, nil
}

func newUnit(t *testing.T, content string) *entities.MemoryUnit {
	t.Helper()
	unit, err := entities.NewMemoryUnit(content, nil, nil, valueobjects.SourceTypeInsight, valueobjects.SectorGeneral)
	require.NoError(t, err)
	return unit
}

func newUnitAt(content string, tags []string, createdAt time.Time) *entities.MemoryUnit {
	return entities.ReconstructMemoryUnit(
		valueobjects.NewMemoryID(), content, nil, tags,
		valueobjects.SourceTypeInsight, valueobjects.SectorGeneral,
		"", createdAt, false,
	)
}

func rankedResults(source retrieval.Source, ids ...valueobjects.MemoryID) []retrieval.SearchResult {
	out := make([]retrieval.SearchResult, 0, len(ids))
	for i, id := range ids {
		out = append(out, retrieval.SearchResult{
			MemoryID: id,
			Source:   source,
			Rank:     i + 1,
			Score:    1.0 / float64(i+1),
		})
	}
	return out
}

func newHandler(repo ports.MemoryRepository, vis ports.VisibilityProvider, sources ...retrievers.Retriever) *SearchHandler {
	return NewSearchHandler(sources, repo, vis, DefaultSearchConfig(), nil, zap.NewNop())
}

func TestSearch_EmptyQueryTextRejected(t *testing.T) {
	h := newHandler(&hydratingRepo{}, nil, &stubRetriever{source: retrieval.SourceKeyword})

	_, err := h.Handle(context.Background(), queries.SearchQuery{QueryText: "   "})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSearch_FusesAcrossSourcesAndHydrates(t *testing.T) {
	unit := newUnit(t, "alice joined the platform team in february")
	other := newUnit(t, "unrelated note about databases")
	repo := &hydratingRepo{units: map[string]*entities.MemoryUnit{
		unit.ID().String():  unit,
		other.ID().String(): other,
	}}

	semantic := &stubRetriever{
		source:  retrieval.SourceSemantic,
		results: rankedResults(retrieval.SourceSemantic, other.ID(), unit.ID()),
	}
	keyword := &stubRetriever{
		source:  retrieval.SourceKeyword,
		results: rankedResults(retrieval.SourceKeyword, unit.ID()),
	}

	h := newHandler(repo, nil, semantic, keyword)
	resp, err := h.Handle(context.Background(), queries.SearchQuery{QueryText: "alice", TopK: 5})
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	// unit appears in both lists so it outranks other despite the lower
	// semantic rank.
	assert.Equal(t, unit.ID().String(), resp.Results[0].ID)
	assert.Len(t, resp.Results[0].Sources, 2)
	assert.Equal(t, "alice joined the platform team in february", resp.Results[0].ContentPreview)
	assert.Greater(t, resp.Results[0].FusedScore, resp.Results[1].FusedScore)
}

func TestSearch_FewerMatchesThanTopKReturnsExactlyThatMany(t *testing.T) {
	unit := newUnit(t, "the only matching memory")
	repo := &hydratingRepo{units: map[string]*entities.MemoryUnit{unit.ID().String(): unit}}

	keyword := &stubRetriever{
		source:  retrieval.SourceKeyword,
		results: rankedResults(retrieval.SourceKeyword, unit.ID()),
	}

	h := newHandler(repo, nil, keyword)
	resp, err := h.Handle(context.Background(), queries.SearchQuery{QueryText: "matching", TopK: 10})
	require.NoError(t, err)

	assert.Len(t, resp.Results, 1)
}

func TestSearch_PartialSourceFailureDegradesNotFails(t *testing.T) {
	unit := newUnit(t, "still retrievable")
	repo := &hydratingRepo{units: map[string]*entities.MemoryUnit{unit.ID().String(): unit}}

	semantic := &stubRetriever{source: retrieval.SourceSemantic, err: errors.New("provider down")}
	keyword := &stubRetriever{
		source:  retrieval.SourceKeyword,
		results: rankedResults(retrieval.SourceKeyword, unit.ID()),
	}

	h := newHandler(repo, nil, semantic, keyword)
	resp, err := h.Handle(context.Background(), queries.SearchQuery{QueryText: "retrievable", TopK: 5})
	require.NoError(t, err)

	require.Len(t, resp.Results, 1)
	assert.Contains(t, resp.AppliedFilters.FailedSource, "semantic")
	// The failed source contributes nothing to the surviving result.
	for _, s := range resp.Results[0].Sources {
		assert.NotEqual(t, "semantic", s.SourceType)
	}
}

func TestSearch_AllSourcesFailedIsSearchUnavailable(t *testing.T) {
	h := newHandler(&hydratingRepo{}, nil,
		&stubRetriever{source: retrieval.SourceSemantic, err: errors.New("down")},
		&stubRetriever{source: retrieval.SourceKeyword, err: errors.New("down")},
	)

	_, err := h.Handle(context.Background(), queries.SearchQuery{QueryText: "anything"})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeSearchUnavailable))
}

func TestSearch_SkippedSourceEchoed(t *testing.T) {
	unit := newUnit(t, "keyword hit")
	repo := &hydratingRepo{units: map[string]*entities.MemoryUnit{unit.ID().String(): unit}}

	h := newHandler(repo, nil,
		&stubRetriever{source: retrieval.SourceGraph, skip: "source_type filter excludes graph-derived units"},
		&stubRetriever{source: retrieval.SourceKeyword, results: rankedResults(retrieval.SourceKeyword, unit.ID())},
	)

	resp, err := h.Handle(context.Background(), queries.SearchQuery{
		QueryText:   "keyword",
		SourceTypes: []string{"insight"},
	})
	require.NoError(t, err)

	assert.Contains(t, resp.AppliedFilters.SkippedSource, "graph")
}

func TestSearch_PartialWeightsRescaledAndEchoed(t *testing.T) {
	unit := newUnit(t, "weighted")
	repo := &hydratingRepo{units: map[string]*entities.MemoryUnit{unit.ID().String(): unit}}

	h := newHandler(repo, nil,
		&stubRetriever{source: retrieval.SourceKeyword, results: rankedResults(retrieval.SourceKeyword, unit.ID())},
	)

	resp, err := h.Handle(context.Background(), queries.SearchQuery{
		QueryText: "weighted",
		Weights:   map[string]float64{"semantic": 0.5, "keyword": 0.5},
	})
	require.NoError(t, err)

	assert.InDelta(t, 0.4, resp.AppliedWeights["semantic"], 1e-9)
	assert.InDelta(t, 0.4, resp.AppliedWeights["keyword"], 1e-9)
	assert.InDelta(t, 0.2, resp.AppliedWeights["graph"], 1e-9)
}

func TestSearch_InvalidWeightSourceRejected(t *testing.T) {
	h := newHandler(&hydratingRepo{}, nil, &stubRetriever{source: retrieval.SourceKeyword})

	_, err := h.Handle(context.Background(), queries.SearchQuery{
		QueryText: "q",
		Weights:   map[string]float64{"lexical": 1.0},
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestSearch_FilterReachesEveryRetriever(t *testing.T) {
	unit := newUnit(t, "tagged")
	repo := &hydratingRepo{units: map[string]*entities.MemoryUnit{unit.ID().String(): unit}}

	keyword := &stubRetriever{
		source:  retrieval.SourceKeyword,
		results: rankedResults(retrieval.SourceKeyword, unit.ID()),
	}
	vis := &stubVisibility{vis: retrieval.Visibility{Fragment: "m.tenant_id = ?", Args: []any{"tenant-7"}}}

	h := newHandler(repo, vis, keyword)
	resp, err := h.Handle(context.Background(), queries.SearchQuery{
		QueryText: "tagged",
		Tags:      []string{" Project-Atlas ", "month-2"},
		TenantID:  "tenant-7",
	})
	require.NoError(t, err)

	require.NotNil(t, keyword.gotReq)
	assert.Equal(t, []string{"project-atlas", "month-2"}, keyword.gotReq.Filter.Tags)
	assert.Equal(t, "m.tenant_id = ?", keyword.gotReq.Filter.Visibility.Fragment)
	assert.Equal(t, "tenant-7", vis.got)
	assert.True(t, resp.AppliedFilters.TenantScoped)
}

func TestSearch_FanOutLimitCapped(t *testing.T) {
	unit := newUnit(t, "capped")
	repo := &hydratingRepo{units: map[string]*entities.MemoryUnit{unit.ID().String(): unit}}

	keyword := &stubRetriever{
		source:  retrieval.SourceKeyword,
		results: rankedResults(retrieval.SourceKeyword, unit.ID()),
	}

	cfg := DefaultSearchConfig()
	cfg.FanOutFactor = 3
	cfg.MaxFanOut = 20
	h := NewSearchHandler([]retrievers.Retriever{keyword}, repo, nil, cfg, nil, zap.NewNop())

	_, err := h.Handle(context.Background(), queries.SearchQuery{QueryText: "capped", TopK: 100})
	require.NoError(t, err)

	require.NotNil(t, keyword.gotReq)
	assert.Equal(t, 20, keyword.gotReq.Limit)
}

func TestSearch_AnonymousRequestsScopedToSharedRows(t *testing.T) {
	unit := newUnit(t, "shared note")
	repo := &hydratingRepo{units: map[string]*entities.MemoryUnit{unit.ID().String(): unit}}

	keyword := &stubRetriever{
		source:  retrieval.SourceKeyword,
		results: rankedResults(retrieval.SourceKeyword, unit.ID()),
	}
	vis := &stubVisibility{vis: retrieval.Visibility{Fragment: "m.tenant_id = ?", Args: []any{"unused"}}}

	h := newHandler(repo, vis, keyword)
	resp, err := h.Handle(context.Background(), queries.SearchQuery{QueryText: "shared"})
	require.NoError(t, err)

	// The provider is consulted even without a tenant so anonymous callers
	// run scoped to shared rows, never with no predicate at all.
	assert.Equal(t, 1, vis.calls)
	assert.Equal(t, "", vis.got)
	require.NotNil(t, keyword.gotReq)
	assert.Equal(t, "m.tenant_id IS NULL", keyword.gotReq.Filter.Visibility.Fragment)
	assert.False(t, resp.AppliedFilters.TenantScoped)
}

func TestSearch_TagAndDateFilterEndToEnd(t *testing.T) {
	feb := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)
	inRangeA := newUnitAt("atlas kickoff retrospective", []string{"project-atlas"}, feb.AddDate(0, 0, 9))
	inRangeB := newUnitAt("atlas milestone review", []string{"project-atlas"}, feb.AddDate(0, 0, 19))
	tooEarly := newUnitAt("atlas planning draft", []string{"project-atlas"}, feb.AddDate(0, -1, 4))
	untagged := newUnitAt("unrelated february note", nil, feb.AddDate(0, 0, 12))
	corpus := []*entities.MemoryUnit{tooEarly, inRangeA, untagged, inRangeB}

	repo := &hydratingRepo{units: map[string]*entities.MemoryUnit{
		inRangeA.ID().String(): inRangeA,
		inRangeB.ID().String(): inRangeB,
		tooEarly.ID().String(): tooEarly,
		untagged.ID().String(): untagged,
	}}

	h := newHandler(repo, nil,
		&corpusRetriever{source: retrieval.SourceSemantic, corpus: corpus},
		&corpusRetriever{source: retrieval.SourceKeyword, corpus: corpus},
	)
	resp, err := h.Handle(context.Background(), queries.SearchQuery{
		QueryText: "atlas",
		Tags:      []string{"project-atlas"},
		DateFrom:  &feb,
		TopK:      10,
	})
	require.NoError(t, err)

	require.Len(t, resp.Results, 2)
	wantIDs := map[string]bool{inRangeA.ID().String(): true, inRangeB.ID().String(): true}
	for _, res := range resp.Results {
		assert.True(t, wantIDs[res.ID], "unexpected result %s", res.ID)
		assert.NotEmpty(t, res.Sources)
	}
}
