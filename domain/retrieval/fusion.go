package retrieval

import "sort"

// DefaultRRFSmoothing is the K constant in 1/(K+rank)
const DefaultRRFSmoothing = 60

// FusionConfig tunes the fusion step
type FusionConfig struct {
	// Smoothing is the RRF K constant; zero selects the default.
	Smoothing int
	// TopK truncates the fused output; zero returns everything.
	TopK int
}

// Fuse merges per-source ranked lists with weighted reciprocal rank fusion.
// An item's fused score is the sum of weight/(K+rank) over the sources that
// contain it; absence from a source contributes zero, never a penalty. Items
// appearing in several sources collapse to one result carrying every
// contribution. Ties break by contributing-source count, then memory ID, so
// output order is deterministic.
//
// The combinator is source-agnostic: a fourth source only needs a weight
// entry, no change here.
func Fuse(bySource map[Source][]SearchResult, weights map[Source]float64, cfg FusionConfig) []FusedResult {
	smoothing := cfg.Smoothing
	if smoothing <= 0 {
		smoothing = DefaultRRFSmoothing
	}

	fused := make(map[string]*FusedResult)
	for source, results := range bySource {
		weight := weights[source]
		for i, r := range results {
			rank := r.Rank
			if rank <= 0 {
				rank = i + 1
			}
			f, ok := fused[r.MemoryID.String()]
			if !ok {
				f = &FusedResult{MemoryID: r.MemoryID}
				fused[r.MemoryID.String()] = f
			}
			f.FusedScore += weight / float64(smoothing+rank)
			f.Sources = append(f.Sources, SourceContribution{
				Source:   source,
				Rank:     rank,
				RawScore: r.Score,
			})
		}
	}

	out := make([]FusedResult, 0, len(fused))
	for _, f := range fused {
		sort.Slice(f.Sources, func(i, j int) bool {
			return f.Sources[i].Source < f.Sources[j].Source
		})
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FusedScore != out[j].FusedScore {
			return out[i].FusedScore > out[j].FusedScore
		}
		if len(out[i].Sources) != len(out[j].Sources) {
			return len(out[i].Sources) > len(out[j].Sources)
		}
		return out[i].MemoryID.String() < out[j].MemoryID.String()
	})

	if cfg.TopK > 0 && len(out) > cfg.TopK {
		out = out[:cfg.TopK]
	}
	return out
}
