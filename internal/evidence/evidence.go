// Package evidence computes lexical and temporal signals between a document
// and a similarity candidate and renders them as a human-readable justification.
package evidence

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/repolens/repolens/internal/types"
)

// Thresholds for evidence phrases. A phrase is added only when its signal
// is strictly above (or, for time, strictly below) the threshold.
type Thresholds struct {
	VerySimilarTitle float64       `yaml:"very_similar_title"`
	SimilarTitle     float64       `yaml:"similar_title"`
	SimilarBody      float64       `yaml:"similar_body"`
	SameTimeWindow   time.Duration `yaml:"same_time_window"`
}

// DefaultThresholds returns the default evidence thresholds
func DefaultThresholds() Thresholds {
	return Thresholds{
		VerySimilarTitle: 0.7,
		SimilarTitle:     0.5,
		SimilarBody:      0.6,
		SameTimeWindow:   7 * 24 * time.Hour,
	}
}

// Validate checks if the thresholds have valid values
func (t Thresholds) Validate() error {
	if t.SimilarTitle < 0 || t.SimilarTitle > 1 {
		return fmt.Errorf("similar_title must be between 0.0 and 1.0 (got %.2f)", t.SimilarTitle)
	}
	if t.VerySimilarTitle < t.SimilarTitle || t.VerySimilarTitle > 1 {
		return fmt.Errorf("very_similar_title must be between similar_title and 1.0 (got %.2f)", t.VerySimilarTitle)
	}
	if t.SimilarBody < 0 || t.SimilarBody > 1 {
		return fmt.Errorf("similar_body must be between 0.0 and 1.0 (got %.2f)", t.SimilarBody)
	}
	if t.SameTimeWindow < 0 {
		return fmt.Errorf("same_time_window cannot be negative (got %v)", t.SameTimeWindow)
	}
	return nil
}

// Evidence phrases
const (
	PhraseVerySimilarTitles = "very similar titles"
	PhraseSimilarTitles     = "similar titles"
	PhraseSimilarContent    = "similar content"
	PhraseSameTime          = "created around the same time"
)

// Signals are the raw measurements behind a justification.
type Signals struct {
	TitleJaccard float64
	BodyJaccard  float64
	CreatedDelta time.Duration
}

// Measure computes the lexical and temporal signals between two documents.
func Measure(target, candidate *types.Document) Signals {
	delta := target.CreatedAt.Sub(candidate.CreatedAt)
	if delta < 0 {
		delta = -delta
	}
	return Signals{
		TitleJaccard: Jaccard(target.Title, candidate.Title),
		BodyJaccard:  Jaccard(target.Body, candidate.Body),
		CreatedDelta: delta,
	}
}

// Phrases returns the evidence phrases the signals qualify for, in order.
func (t Thresholds) Phrases(s Signals) []string {
	var phrases []string
	switch {
	case s.TitleJaccard > t.VerySimilarTitle:
		phrases = append(phrases, PhraseVerySimilarTitles)
	case s.TitleJaccard > t.SimilarTitle:
		phrases = append(phrases, PhraseSimilarTitles)
	}
	if s.BodyJaccard > t.SimilarBody {
		phrases = append(phrases, PhraseSimilarContent)
	}
	if s.CreatedDelta < t.SameTimeWindow {
		phrases = append(phrases, PhraseSameTime)
	}
	return phrases
}

// Justify explains why candidate is similar to target.
func (t Thresholds) Justify(target, candidate *types.Document, score float64) string {
	pct := Percent(score)
	phrases := t.Phrases(Measure(target, candidate))
	if len(phrases) == 0 {
		return fmt.Sprintf("General similarity (%d%%)", pct)
	}
	return fmt.Sprintf("%s (%d%% similar)", strings.Join(phrases, ", "), pct)
}

// Justify uses the default thresholds.
func Justify(target, candidate *types.Document, score float64) string {
	return DefaultThresholds().Justify(target, candidate, score)
}

// Percent converts a [0,1] score to a rounded percentage.
func Percent(score float64) int {
	return int(math.Round(types.Clamp(score, 0, 1) * 100))
}
