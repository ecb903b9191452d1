package similarity

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/types"
)

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float64
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, expected: 1},
		{name: "scaled", a: []float32{1, 2, 3}, b: []float32{2, 4, 6}, expected: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, expected: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, expected: -1},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, expected: 0},
		{name: "both zero", a: []float32{0, 0}, b: []float32{0, 0}, expected: 0},
		{name: "empty", a: nil, b: nil, expected: 0},
		{name: "dimension mismatch", a: []float32{1, 2}, b: []float32{1, 2, 3}, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			assert.False(t, math.IsNaN(got))
			assert.InDelta(t, tt.expected, got, 1e-9)
		})
	}
}

func TestCosineProperties(t *testing.T) {
	vectors := [][]float32{
		{0.1, 0.7, -0.2},
		{3, -1, 4},
		{0, 0, 0},
		{-0.5, -0.5, 0.25},
		{1e-20, 1e-20, 1e-20},
	}

	for i, a := range vectors {
		self := Cosine(a, a)
		if magnitude(a) == 0 {
			assert.Equal(t, 0.0, self, "zero vector %d", i)
		} else {
			assert.InDelta(t, 1.0, self, 1e-9, "self similarity %d", i)
		}
		for j, b := range vectors {
			ab, ba := Cosine(a, b), Cosine(b, a)
			assert.Equal(t, ab, ba, "symmetry %d/%d", i, j)
			assert.GreaterOrEqual(t, ab, -1.0)
			assert.LessOrEqual(t, ab, 1.0)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	assert.Error(t, Config{MinScore: 1, MaxCandidates: 5}.Validate())
	assert.Error(t, Config{MinScore: -0.1, MaxCandidates: 5}.Validate())
	assert.Error(t, Config{MinScore: 0.6, MaxCandidates: 0}.Validate())
}

func TestBuildRejectsBadCorpus(t *testing.T) {
	idx, err := NewIndex(DefaultConfig())
	require.NoError(t, err)

	assert.Error(t, idx.Build([]Entry{{ID: ""}}))
	assert.Error(t, idx.Build([]Entry{{ID: "a"}, {ID: "a"}}))
	assert.NoError(t, idx.Build(nil))
	assert.Equal(t, 0, idx.Len())
}

func TestRetrieveExcludesSelfAndThreshold(t *testing.T) {
	corpus := []Entry{
		{ID: "a", Vector: []float32{1, 0}},
		{ID: "b", Vector: []float32{1, 0}},     // same vector, different id
		{ID: "c", Vector: []float32{3, 4}},     // cosine 0.6 exactly: excluded
		{ID: "d", Vector: []float32{0.8, 0.6}}, // cosine 0.8
		{ID: "e", Vector: []float32{0, 1}},     // orthogonal
		{ID: "f", Vector: []float32{0, 0}},     // zero magnitude
		{ID: "g", Vector: []float32{1, 0, 0}},  // wrong dimension
	}

	matches, err := Retrieve(corpus[0], corpus, DefaultConfig())
	require.NoError(t, err)

	ids := make([]string, len(matches))
	for i, m := range matches {
		ids[i] = m.ID
		assert.Greater(t, m.Score, DefaultMinScore)
	}
	assert.Equal(t, []string{"b", "d"}, ids)
	assert.Equal(t, 1, matches[0].Position)
	assert.Equal(t, 3, matches[1].Position)
}

func TestRetrieveCapsAndSortsStable(t *testing.T) {
	corpus := []Entry{{ID: "target", Vector: []float32{1, 0}}}
	// Two groups of equal scores, inserted weakest first.
	for i := 0; i < 4; i++ {
		corpus = append(corpus, Entry{ID: fmt.Sprintf("weak-%d", i), Vector: []float32{0.8, 0.6}})
	}
	for i := 0; i < 4; i++ {
		corpus = append(corpus, Entry{ID: fmt.Sprintf("strong-%d", i), Vector: []float32{1, 0.1}})
	}

	matches, err := Retrieve(corpus[0], corpus, DefaultConfig())
	require.NoError(t, err)
	require.Len(t, matches, DefaultMaxCandidates)

	got := make([]string, len(matches))
	for i, m := range matches {
		got[i] = m.ID
		assert.NotEqual(t, "target", m.ID)
		if i > 0 {
			assert.GreaterOrEqual(t, matches[i-1].Score, m.Score)
		}
	}
	assert.Equal(t, []string{"strong-0", "strong-1", "strong-2", "strong-3", "weak-0"}, got)
}

func TestRetrieveDeterministic(t *testing.T) {
	corpus := []Entry{
		{ID: "1", Vector: []float32{0.9, 0.1, 0.3}},
		{ID: "2", Vector: []float32{0.8, 0.2, 0.3}},
		{ID: "3", Vector: []float32{0.85, 0.15, 0.3}},
		{ID: "4", Vector: []float32{0.1, 0.9, 0.3}},
	}
	idx, err := NewIndex(DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, idx.Build(corpus))

	first := idx.Retrieve(corpus[0])
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, idx.Retrieve(corpus[0]))
	}
}

func TestRetrieveZeroTarget(t *testing.T) {
	corpus := []Entry{{ID: "a", Vector: []float32{1, 1}}}
	matches, err := Retrieve(Entry{ID: "z", Vector: types.EmbeddingVector{0, 0}}, corpus, DefaultConfig())
	require.NoError(t, err)
	assert.Empty(t, matches)
}
