// Package policy turns confidence and similarity into recommended actions,
// ranks reported results, and tracks each document's lifecycle in a run.
package policy

import (
	"fmt"
	"math"
	"sort"

	"github.com/repolens/repolens/internal/types"
)

// Default decision thresholds. All confidences here are on the 0-100 scale.
const (
	DefaultMarkDuplicateAbove = 80.0
	DefaultReviewAbove        = 60.0
	DefaultFallbackDampening  = 0.8
)

// Thresholds configures the duplicate decision policy
type Thresholds struct {
	MarkDuplicateAbove float64 `yaml:"mark_duplicate_above"` // confidence > this: mark_duplicate
	ReviewAbove        float64 `yaml:"review_above"`         // confidence > this: review_required
	FallbackDampening  float64 `yaml:"fallback_dampening"`   // multiplier applied to mean similarity on fallback
}

// DefaultThresholds returns the production decision thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		MarkDuplicateAbove: DefaultMarkDuplicateAbove,
		ReviewAbove:        DefaultReviewAbove,
		FallbackDampening:  DefaultFallbackDampening,
	}
}

// Validate checks that the thresholds are ordered and in range
func (t Thresholds) Validate() error {
	if t.ReviewAbove < 0 || t.ReviewAbove > 100 {
		return fmt.Errorf("review_above must be between 0 and 100 (got %.2f)", t.ReviewAbove)
	}
	if t.MarkDuplicateAbove < 0 || t.MarkDuplicateAbove > 100 {
		return fmt.Errorf("mark_duplicate_above must be between 0 and 100 (got %.2f)", t.MarkDuplicateAbove)
	}
	if t.ReviewAbove > t.MarkDuplicateAbove {
		return fmt.Errorf("review_above (%.2f) must not exceed mark_duplicate_above (%.2f)",
			t.ReviewAbove, t.MarkDuplicateAbove)
	}
	if t.FallbackDampening <= 0 || t.FallbackDampening > 1 {
		return fmt.Errorf("fallback_dampening must be in (0, 1] (got %.2f)", t.FallbackDampening)
	}
	return nil
}

// MeanSimilarity returns the mean candidate score on the 0-100 scale.
// An empty candidate list yields 0.
func MeanSimilarity(candidates []types.SimilarityCandidate) float64 {
	if len(candidates) == 0 {
		return 0
	}
	var sum float64
	for _, c := range candidates {
		sum += types.Clamp(c.Score, 0, 1) * 100
	}
	return sum / float64(len(candidates))
}

// FallbackConfidence is round(mean(score*100) * dampening), clamped to 0-100.
func (t Thresholds) FallbackConfidence(candidates []types.SimilarityCandidate) float64 {
	return types.Clamp(math.Round(MeanSimilarity(candidates)*t.FallbackDampening), 0, 100)
}

// DecideDuplicateAction maps a 0-100 confidence to a duplicate action.
func (t Thresholds) DecideDuplicateAction(confidence float64) types.Action {
	switch {
	case confidence > t.MarkDuplicateAbove:
		return types.ActionMarkDuplicate
	case confidence > t.ReviewAbove:
		return types.ActionReviewRequired
	default:
		return types.ActionNotDuplicate
	}
}

// IsDuplicate reports whether the undampened mean similarity alone is
// strong enough to flag a duplicate.
func (t Thresholds) IsDuplicate(candidates []types.SimilarityCandidate) bool {
	return MeanSimilarity(candidates) > t.MarkDuplicateAbove
}

// Rank sorts results by verdict confidence, highest first. Equal confidences
// keep their scan order.
func Rank(results []types.AnalysisResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Verdict.Confidence > results[j].Verdict.Confidence
	})
}
