package types

import "fmt"

// Flag is the primary category a verdict assigns to a document
type Flag string

const (
	FlagNone       Flag = "none"
	FlagDuplicate  Flag = "duplicate"
	FlagSpam       Flag = "spam"
	FlagLowQuality Flag = "low_quality"
	FlagSlop       Flag = "slop"
)

// IsValid checks if the flag value is valid
func (f Flag) IsValid() bool {
	switch f {
	case FlagNone, FlagDuplicate, FlagSpam, FlagLowQuality, FlagSlop:
		return true
	}
	return false
}

// Action is the recommendation handed to the caller. The duplicate engine
// and the quality engine use disjoint subsets.
type Action string

const (
	// Duplicate engine actions
	ActionMarkDuplicate  Action = "mark_duplicate"
	ActionReviewRequired Action = "review_required"
	ActionNotDuplicate   Action = "not_duplicate"

	// Quality engine actions
	ActionClose  Action = "close"
	ActionLabel  Action = "label"
	ActionReview Action = "review"
	ActionNone   Action = "none"
)

// IsDuplicateAction reports whether a belongs to the duplicate engine's enum
func (a Action) IsDuplicateAction() bool {
	switch a {
	case ActionMarkDuplicate, ActionReviewRequired, ActionNotDuplicate:
		return true
	}
	return false
}

// IsQualityAction reports whether a belongs to the quality engine's enum
func (a Action) IsQualityAction() bool {
	switch a {
	case ActionClose, ActionLabel, ActionReview, ActionNone:
		return true
	}
	return false
}

// QualityFlags are the per-category booleans returned by the quality classifier.
type QualityFlags struct {
	Spam       bool `json:"is_spam"`
	LowQuality bool `json:"is_low_quality"`
	Slop       bool `json:"is_slop"`
}

// Any reports whether at least one category is set.
func (q QualityFlags) Any() bool {
	return q.Spam || q.LowQuality || q.Slop
}

// Primary picks the single flag reported in Verdict.Flag. Spam wins over
// slop, slop over low quality.
func (q QualityFlags) Primary() Flag {
	switch {
	case q.Spam:
		return FlagSpam
	case q.Slop:
		return FlagSlop
	case q.LowQuality:
		return FlagLowQuality
	default:
		return FlagNone
	}
}

// Verdict is the final classification of one document in one run.
// Exactly one Verdict exists per analyzed document, either from the
// classifier or from the fallback policy.
type Verdict struct {
	Flag            Flag         `json:"flag"`
	Flags           QualityFlags `json:"flags"`
	Confidence      float64      `json:"confidence"`
	Reasoning       string       `json:"reasoning"`
	SuggestedAction Action       `json:"suggested_action"`
	RelatedID       string       `json:"related_id,omitempty"`
	Fallback        bool         `json:"fallback"`
}

// Validate checks if the verdict has valid values
func (v *Verdict) Validate() error {
	if !v.Flag.IsValid() {
		return fmt.Errorf("invalid flag: %s", v.Flag)
	}
	if v.Confidence < 0 || v.Confidence > 100 {
		return fmt.Errorf("confidence must be between 0 and 100 (got %.2f)", v.Confidence)
	}
	if !v.SuggestedAction.IsDuplicateAction() && !v.SuggestedAction.IsQualityAction() {
		return fmt.Errorf("invalid suggested action: %s", v.SuggestedAction)
	}
	return nil
}
