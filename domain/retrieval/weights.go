package retrieval

import (
	"fmt"
	"math"

	pkgerrors "recall-backend/pkg/errors"
)

// defaultShares is the system default weight vector. Shares sum to 1.0; when
// a new source is added its default share is carved out here and partial
// caller weights are rescaled into the remainder rather than discarded.
var defaultShares = map[Source]float64{
	SourceSemantic: 0.5,
	SourceKeyword:  0.3,
	SourceGraph:    0.2,
}

// DefaultWeights returns a copy of the system default weight vector
func DefaultWeights() map[Source]float64 {
	out := make(map[Source]float64, len(defaultShares))
	for s, w := range defaultShares {
		out[s] = w
	}
	return out
}

// ResolveWeights turns an optional partial weight map into a complete vector
// over every active source.
//
// Rules:
//   - nil or empty input resolves to the system defaults;
//   - a map covering every active source is used verbatim after validation;
//   - a partial map reserves the missing sources' default shares and rescales
//     the caller's weights proportionally into the remaining mass, so a
//     caller that predates a source keeps its relative intent intact.
func ResolveWeights(caller map[Source]float64, active []Source) (map[Source]float64, error) {
	if len(active) == 0 {
		active = ActiveSources()
	}
	if len(caller) == 0 {
		out := make(map[Source]float64, len(active))
		for _, s := range active {
			out[s] = defaultShares[s]
		}
		return out, nil
	}

	var callerSum float64
	for s, w := range caller {
		if _, ok := ParseSource(string(s)); !ok {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("unknown weight source %q", s))
		}
		if w < 0 {
			return nil, pkgerrors.NewValidationError(fmt.Sprintf("weight for %q must be non-negative", s))
		}
		callerSum += w
	}
	if callerSum == 0 {
		return nil, pkgerrors.NewValidationError("weights must not all be zero")
	}

	var missing []Source
	for _, s := range active {
		if _, ok := caller[s]; !ok {
			missing = append(missing, s)
		}
	}

	out := make(map[Source]float64, len(active))
	if len(missing) == 0 {
		for _, s := range active {
			out[s] = caller[s]
		}
		return out, nil
	}

	// Reserve the missing sources' default shares and rescale the caller's
	// weights into what is left. With caller {semantic:0.5, keyword:0.5} and
	// graph defaulting to 0.2 this yields {0.4, 0.4, 0.2}.
	var reserved float64
	for _, s := range missing {
		reserved += defaultShares[s]
	}
	if reserved >= 1 {
		return nil, pkgerrors.NewValidationError("default shares for omitted sources leave no weight mass")
	}
	scale := (1 - reserved) / callerSum
	for _, s := range active {
		if w, ok := caller[s]; ok {
			out[s] = round6(w * scale)
		} else {
			out[s] = defaultShares[s]
		}
	}
	return out, nil
}

// round6 trims float noise so resolved weights echo cleanly to callers
func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
