package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/types"
)

func cands(scores ...float64) []types.SimilarityCandidate {
	out := make([]types.SimilarityCandidate, len(scores))
	for i, s := range scores {
		out[i] = types.SimilarityCandidate{TargetID: string(rune('a' + i)), Score: s}
	}
	return out
}

func TestFallbackConfidence(t *testing.T) {
	th := DefaultThresholds()
	tests := []struct {
		name       string
		scores     []float64
		confidence float64
		duplicate  bool
		action     types.Action
	}{
		{"single strong match", []float64{0.95}, 76, true, types.ActionReviewRequired},
		{"perfect match", []float64{1.0}, 80, true, types.ActionReviewRequired},
		{"mixed", []float64{0.85, 0.65}, 60, false, types.ActionNotDuplicate},
		{"weak", []float64{0.65}, 52, false, types.ActionNotDuplicate},
		{"none", nil, 0, false, types.ActionNotDuplicate},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cands(tt.scores...)
			conf := th.FallbackConfidence(c)
			assert.Equal(t, tt.confidence, conf)
			assert.Equal(t, tt.duplicate, th.IsDuplicate(c))
			assert.Equal(t, tt.action, th.DecideDuplicateAction(conf))
		})
	}
}

func TestFallbackConfidenceMonotonic(t *testing.T) {
	th := DefaultThresholds()
	prev := -1.0
	for s := 0.60; s <= 1.0; s += 0.01 {
		conf := th.FallbackConfidence(cands(s))
		assert.GreaterOrEqual(t, conf, prev, "score %.2f", s)
		prev = conf
	}
}

func TestDecideDuplicateAction(t *testing.T) {
	th := DefaultThresholds()
	assert.Equal(t, types.ActionMarkDuplicate, th.DecideDuplicateAction(81))
	assert.Equal(t, types.ActionReviewRequired, th.DecideDuplicateAction(80))
	assert.Equal(t, types.ActionReviewRequired, th.DecideDuplicateAction(61))
	assert.Equal(t, types.ActionNotDuplicate, th.DecideDuplicateAction(60))
	assert.Equal(t, types.ActionNotDuplicate, th.DecideDuplicateAction(0))
}

func TestThresholdsValidate(t *testing.T) {
	require.NoError(t, DefaultThresholds().Validate())

	bad := DefaultThresholds()
	bad.ReviewAbove = 90
	assert.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.FallbackDampening = 0
	assert.Error(t, bad.Validate())

	bad = DefaultThresholds()
	bad.MarkDuplicateAbove = 120
	assert.Error(t, bad.Validate())
}

func TestRankStable(t *testing.T) {
	results := []types.AnalysisResult{
		{Document: types.Document{ID: "a"}, Verdict: types.Verdict{Confidence: 50}},
		{Document: types.Document{ID: "b"}, Verdict: types.Verdict{Confidence: 90}},
		{Document: types.Document{ID: "c"}, Verdict: types.Verdict{Confidence: 50}},
		{Document: types.Document{ID: "d"}, Verdict: types.Verdict{Confidence: 90}},
	}
	Rank(results)

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Document.ID
	}
	assert.Equal(t, []string{"b", "d", "a", "c"}, ids)
}

func TestStateTransitions(t *testing.T) {
	tests := []struct {
		from, to State
		ok       bool
	}{
		{StatePending, StateAnalyzed, true},
		{StatePending, StateSuppressed, true},
		{StatePending, StateReported, false},
		{StateAnalyzed, StateReported, true},
		{StateAnalyzed, StateSuppressed, true},
		{StateAnalyzed, StatePending, false},
		{StateReported, StateSuppressed, false},
		{StateSuppressed, StateReported, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to))
		})
	}
	assert.True(t, StateReported.IsTerminal())
	assert.False(t, StateAnalyzed.IsTerminal())
	assert.False(t, State("bogus").IsValid())
}

func TestTracker(t *testing.T) {
	tr := NewTracker([]string{"a", "b", "c"})
	assert.Equal(t, 3, tr.Count(StatePending))

	require.NoError(t, tr.Transition(0, StateAnalyzed))
	require.NoError(t, tr.Transition(0, StateReported))
	require.NoError(t, tr.Transition(1, StateSuppressed))

	err := tr.Transition(2, StateReported)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "c")

	assert.Equal(t, StateReported, tr.State(0))
	assert.Equal(t, 1, tr.Count(StateReported))
	assert.Equal(t, 1, tr.Count(StateSuppressed))
	assert.Equal(t, 1, tr.Count(StatePending))
}
