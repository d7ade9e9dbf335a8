package retrieval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "recall-backend/pkg/errors"
)

func TestResolveWeights_EmptyUsesDefaults(t *testing.T) {
	resolved, err := ResolveWeights(nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 0.5, resolved[SourceSemantic])
	assert.Equal(t, 0.3, resolved[SourceKeyword])
	assert.Equal(t, 0.2, resolved[SourceGraph])
}

func TestResolveWeights_FullVectorUsedVerbatim(t *testing.T) {
	caller := map[Source]float64{
		SourceSemantic: 2.0,
		SourceKeyword:  1.0,
		SourceGraph:    1.0,
	}

	resolved, err := ResolveWeights(caller, nil)
	require.NoError(t, err)

	// A complete vector is not normalized; fusion only cares about ratios.
	assert.Equal(t, caller, resolved)
}

func TestResolveWeights_PartialRescalesIntoRemainder(t *testing.T) {
	// Graph is omitted, so its 0.2 default share is reserved and the
	// caller's weights are rescaled into the remaining 0.8.
	caller := map[Source]float64{
		SourceSemantic: 0.5,
		SourceKeyword:  0.5,
	}

	resolved, err := ResolveWeights(caller, nil)
	require.NoError(t, err)

	assert.InDelta(t, 0.4, resolved[SourceSemantic], 1e-9)
	assert.InDelta(t, 0.4, resolved[SourceKeyword], 1e-9)
	assert.InDelta(t, 0.2, resolved[SourceGraph], 1e-9)
}

func TestResolveWeights_PartialPreservesCallerRatios(t *testing.T) {
	caller := map[Source]float64{
		SourceSemantic: 3.0,
		SourceKeyword:  1.0,
	}

	resolved, err := ResolveWeights(caller, nil)
	require.NoError(t, err)

	// 0.8 mass split 3:1.
	assert.InDelta(t, 0.6, resolved[SourceSemantic], 1e-9)
	assert.InDelta(t, 0.2, resolved[SourceKeyword], 1e-9)
	assert.InDelta(t, 0.2, resolved[SourceGraph], 1e-9)
}

func TestResolveWeights_UnknownSourceRejected(t *testing.T) {
	_, err := ResolveWeights(map[Source]float64{"lexical": 1.0}, nil)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestResolveWeights_NegativeWeightRejected(t *testing.T) {
	_, err := ResolveWeights(map[Source]float64{SourceSemantic: -0.1}, nil)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestResolveWeights_AllZeroRejected(t *testing.T) {
	caller := map[Source]float64{
		SourceSemantic: 0,
		SourceKeyword:  0,
	}

	_, err := ResolveWeights(caller, nil)

	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestResolveWeights_RestrictedActiveSet(t *testing.T) {
	// When only two sources are active, a full caller map over them is
	// verbatim even though the graph source exists elsewhere.
	caller := map[Source]float64{
		SourceSemantic: 0.7,
		SourceKeyword:  0.3,
	}

	resolved, err := ResolveWeights(caller, []Source{SourceSemantic, SourceKeyword})
	require.NoError(t, err)

	assert.Equal(t, 0.7, resolved[SourceSemantic])
	assert.Equal(t, 0.3, resolved[SourceKeyword])
	_, hasGraph := resolved[SourceGraph]
	assert.False(t, hasGraph)
}

func TestDefaultWeights_ReturnsCopy(t *testing.T) {
	first := DefaultWeights()
	first[SourceSemantic] = 99

	second := DefaultWeights()
	assert.Equal(t, 0.5, second[SourceSemantic])
}
