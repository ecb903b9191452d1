package adjudicator

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/internal/policy"
	"github.com/repolens/repolens/internal/scheduler"
	"github.com/repolens/repolens/internal/types"
)

// stubClassifier returns a fixed reply or error and records prompts.
type stubClassifier struct {
	reply   string
	err     error
	calls   atomic.Int32
	prompts []string
}

func (s *stubClassifier) Complete(_ context.Context, _ string, prompt string) (string, error) {
	s.calls.Add(1)
	s.prompts = append(s.prompts, prompt)
	return s.reply, s.err
}

func newSched(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New(scheduler.Config{MaxConcurrent: 1})
	require.NoError(t, err)
	return s
}

func fixture() (*types.Document, []types.SimilarityCandidate, map[string]*types.Document) {
	target := &types.Document{ID: "1", Number: 1, Title: "Crash on startup", Body: "panic in main"}
	other := &types.Document{ID: "2", Number: 2, Title: "Crash at startup", Body: "nil pointer in main"}
	third := &types.Document{ID: "3", Number: 3, Title: "Startup slow", Body: "takes 10s"}
	corpus := map[string]*types.Document{"1": target, "2": other, "3": third}
	candidates := []types.SimilarityCandidate{
		{TargetID: "2", Score: 0.95, Justification: "very similar titles (95% similar)"},
		{TargetID: "3", Score: 0.7, Justification: "General similarity (70%)"},
	}
	return target, candidates, corpus
}

func TestDuplicateAdjudicateClassifierVerdict(t *testing.T) {
	target, candidates, corpus := fixture()
	stub := &stubClassifier{reply: "```json\n" + `{"isDuplicate": true, "confidence": 92, "reasoning": "same panic", "suggestedAction": "mark_duplicate", "duplicateOf": "#3"}` + "\n```"}

	adj := NewDuplicate(stub, newSched(t), DuplicateConfig{Thresholds: policy.DefaultThresholds()})
	v := adj.Adjudicate(context.Background(), target, candidates, corpus)

	assert.Equal(t, types.FlagDuplicate, v.Flag)
	assert.Equal(t, 92.0, v.Confidence)
	assert.Equal(t, types.ActionMarkDuplicate, v.SuggestedAction)
	assert.Equal(t, "3", v.RelatedID)
	assert.False(t, v.Fallback)

	require.Len(t, stub.prompts, 1)
	assert.Contains(t, stub.prompts[0], "Crash at startup")
	assert.Contains(t, stub.prompts[0], "Similarity: 95%")
}

func TestDuplicateAdjudicateClampsConfidence(t *testing.T) {
	target, candidates, corpus := fixture()
	stub := &stubClassifier{reply: `{"isDuplicate": false, "confidence": 250, "reasoning": "x", "suggestedAction": "not_duplicate", "duplicateOf": null}`}

	adj := NewDuplicate(stub, nil, DuplicateConfig{Thresholds: policy.DefaultThresholds()})
	v := adj.Adjudicate(context.Background(), target, candidates, corpus)

	assert.Equal(t, 100.0, v.Confidence)
	assert.Equal(t, types.FlagNone, v.Flag)
	assert.Equal(t, "2", v.RelatedID)
}

func TestDuplicateFallbackScenarios(t *testing.T) {
	target := &types.Document{ID: "a", Title: "x"}
	candidates := []types.SimilarityCandidate{{TargetID: "b", Score: 0.95}}
	corpus := map[string]*types.Document{"a": target, "b": {ID: "b"}}

	tests := []struct {
		name  string
		stub  *stubClassifier
		kind  types.ErrorKind
		calls int32
	}{
		{"provider error", &stubClassifier{err: errors.New("503")}, types.ErrorProvider, 1},
		{"malformed json", &stubClassifier{reply: "I think so {"}, types.ErrorProvider, 1},
		{"missing field", &stubClassifier{reply: `{"isDuplicate": true, "confidence": 90, "reasoning": "x"}`}, types.ErrorValidation, 1},
		{"bad action", &stubClassifier{reply: `{"isDuplicate": true, "confidence": 90, "reasoning": "x", "suggestedAction": "close"}`}, types.ErrorValidation, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj := NewDuplicate(tt.stub, newSched(t), DuplicateConfig{Thresholds: policy.DefaultThresholds()})

			outcome := adj.Classify(context.Background(), target, candidates, corpus)
			assert.False(t, outcome.IsOk())
			assert.Equal(t, tt.kind, outcome.Kind())

			v := adj.Adjudicate(context.Background(), target, candidates, corpus)
			assert.True(t, v.Fallback)
			assert.Equal(t, 76.0, v.Confidence)
			assert.Equal(t, types.ActionReviewRequired, v.SuggestedAction)
			assert.Equal(t, types.FlagDuplicate, v.Flag)
			assert.Equal(t, "b", v.RelatedID)
			assert.Equal(t, 2*tt.calls, tt.stub.calls.Load())
		})
	}
}

func TestDuplicateSkipsCallWhenContextDone(t *testing.T) {
	target, candidates, corpus := fixture()
	stub := &stubClassifier{reply: `{}`}
	adj := NewDuplicate(stub, newSched(t), DuplicateConfig{Thresholds: policy.DefaultThresholds()})

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	v := adj.Adjudicate(ctx, target, candidates, corpus)
	assert.True(t, v.Fallback)
	assert.Equal(t, int32(0), stub.calls.Load())
}

func TestDuplicateNilClassifierFallsBack(t *testing.T) {
	target, candidates, corpus := fixture()
	adj := NewDuplicate(nil, nil, DuplicateConfig{Thresholds: policy.DefaultThresholds()})

	outcome := adj.Classify(context.Background(), target, candidates, corpus)
	assert.ErrorIs(t, outcome.Err(), ErrNoClassifier)

	v := adj.Adjudicate(context.Background(), target, candidates, corpus)
	assert.True(t, v.Fallback)
	// mean(95, 70) = 82.5 -> round(66) = 66
	assert.Equal(t, 66.0, v.Confidence)
	assert.Equal(t, types.FlagDuplicate, v.Flag)
	assert.Equal(t, types.ActionReviewRequired, v.SuggestedAction)
}

func TestPromptLimitsCandidates(t *testing.T) {
	target := &types.Document{ID: "t", Title: "target", Body: strings.Repeat("x", 5000)}
	corpus := map[string]*types.Document{"t": target}
	var candidates []types.SimilarityCandidate
	for _, id := range []string{"c1", "c2", "c3", "c4", "c5"} {
		corpus[id] = &types.Document{ID: id, Title: "title " + id}
		candidates = append(candidates, types.SimilarityCandidate{TargetID: id, Score: 0.8})
	}

	adj := NewDuplicate(nil, nil, DuplicateConfig{Thresholds: policy.DefaultThresholds()})
	prompt := adj.buildPrompt(target, candidates, corpus)

	assert.Contains(t, prompt, "title c3")
	assert.NotContains(t, prompt, "title c4")
	assert.Less(t, len(prompt), 5000)
}

func TestResolveDuplicateOf(t *testing.T) {
	_, candidates, corpus := fixture()
	tests := []struct {
		raw  string
		want string
	}{
		{``, "2"},
		{`null`, "2"},
		{`"3"`, "3"},
		{`3`, "3"},
		{`"#3"`, "3"},
		{`"99"`, "2"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveDuplicateOf([]byte(tt.raw), candidates, corpus))
		})
	}
	assert.Equal(t, "", resolveDuplicateOf(nil, nil, corpus))
}

func TestQualityAdjudicateClassifierVerdict(t *testing.T) {
	stub := &stubClassifier{reply: `Here you go: {"isSpam": false, "isLowQuality": true, "isSlop": true, "confidence": 0.85, "reasoning": "generic text", "suggestedAction": "label"}`}
	adj := NewQuality(stub, newSched(t), QualityConfig{})

	v := adj.Adjudicate(context.Background(), &types.Document{ID: "1", Title: "hi", IsPullRequest: true})

	assert.Equal(t, types.FlagSlop, v.Flag)
	assert.True(t, v.Flags.LowQuality)
	assert.True(t, v.Flags.Slop)
	assert.False(t, v.Flags.Spam)
	assert.Equal(t, 0.85, v.Confidence)
	assert.Equal(t, types.ActionLabel, v.SuggestedAction)
	assert.Contains(t, stub.prompts[0], "pull request")
}

func TestQualityFallbackOnMalformedJSON(t *testing.T) {
	stub := &stubClassifier{reply: "definitely spam!!"}
	adj := NewQuality(stub, newSched(t), QualityConfig{})

	v := adj.Adjudicate(context.Background(), &types.Document{ID: "1", Title: "buy now"})

	assert.True(t, v.Fallback)
	assert.Equal(t, 0.3, v.Confidence)
	assert.Equal(t, types.ActionReview, v.SuggestedAction)
	assert.False(t, v.Flags.Any())
	assert.Equal(t, types.FlagNone, v.Flag)
	assert.Equal(t, "Analysis failed, manual review recommended", v.Reasoning)
}

func TestQualityValidation(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"missing flag", `{"isSpam": true, "isLowQuality": false, "confidence": 0.9, "reasoning": "x", "suggestedAction": "close"}`},
		{"duplicate action", `{"isSpam": true, "isLowQuality": false, "isSlop": false, "confidence": 0.9, "reasoning": "x", "suggestedAction": "mark_duplicate"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			adj := NewQuality(&stubClassifier{reply: tt.reply}, nil, QualityConfig{})
			outcome := adj.Classify(context.Background(), &types.Document{ID: "1"})
			assert.Equal(t, types.ErrorValidation, outcome.Kind())
		})
	}
}

func TestOutcome(t *testing.T) {
	ok := Ok(types.Verdict{Flag: types.FlagSpam, Confidence: 1})
	assert.True(t, ok.IsOk())
	assert.NoError(t, ok.Err())
	assert.Equal(t, types.ErrorKind(""), ok.Kind())
	v, err := ok.Verdict()
	require.NoError(t, err)
	assert.Equal(t, types.FlagSpam, v.Flag)

	bad := Err(types.ErrorProvider, errors.New("timeout"), "call %d failed", 2)
	assert.False(t, bad.IsOk())
	_, err = bad.Verdict()
	require.Error(t, err)
	assert.Equal(t, types.ErrorProvider, types.KindOf(err))
	assert.Contains(t, bad.String(), "call 2 failed")
}
