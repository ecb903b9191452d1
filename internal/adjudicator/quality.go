package adjudicator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/ai"
	"github.com/repolens/repolens/internal/metrics"
	"github.com/repolens/repolens/internal/scheduler"
	"github.com/repolens/repolens/internal/types"
)

// Quality fallback values. The quality engine reports confidence on a 0-1 scale.
const (
	QualityFallbackConfidence = 0.3
	QualityFallbackReasoning  = "Analysis failed, manual review recommended"
)

// QualityConfig configures a QualityAdjudicator
type QualityConfig struct {
	BodyChars int // Body truncation (default: 2000)
	Logger    *zap.Logger
}

// QualityAdjudicator asks the classifier whether a document is spam,
// low quality, or machine-generated slop.
type QualityAdjudicator struct {
	classifier ai.Classifier
	sched      *scheduler.Scheduler
	cfg        QualityConfig
	logger     *zap.Logger
}

// NewQuality creates a quality adjudicator. classifier may be nil, in which
// case every document gets the fallback verdict.
func NewQuality(classifier ai.Classifier, sched *scheduler.Scheduler, cfg QualityConfig) *QualityAdjudicator {
	if cfg.BodyChars <= 0 {
		cfg.BodyChars = DefaultTargetBodyChars
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QualityAdjudicator{classifier: classifier, sched: sched, cfg: cfg, logger: logger}
}

// Adjudicate returns the quality verdict for target
func (a *QualityAdjudicator) Adjudicate(ctx context.Context, target *types.Document) types.Verdict {
	outcome := a.Classify(ctx, target)
	if v, err := outcome.Verdict(); err == nil {
		metrics.VerdictsTotal.WithLabelValues(string(types.EngineQuality), "classifier").Inc()
		return v
	}

	a.logger.Warn("quality classification failed, using fallback",
		zap.String("document_id", target.ID),
		zap.String("kind", string(outcome.Kind())),
		zap.Error(outcome.Err()))
	metrics.VerdictsTotal.WithLabelValues(string(types.EngineQuality), "fallback").Inc()
	metrics.FallbacksTotal.WithLabelValues(string(types.EngineQuality), string(outcome.Kind())).Inc()
	return QualityFallback()
}

// Classify calls the classifier and validates its reply without applying
// the fallback policy.
func (a *QualityAdjudicator) Classify(ctx context.Context, target *types.Document) Outcome {
	if a.classifier == nil {
		return Err(types.ErrorProvider, ErrNoClassifier, "quality check skipped")
	}
	if err := ctx.Err(); err != nil {
		return Err(types.ErrorProvider, err, "deadline reached before quality check")
	}

	text, err := complete(ctx, a.sched, a.classifier, "quality_check", a.buildPrompt(target))
	if err != nil {
		return Err(types.ErrorProvider, err, "quality check call failed")
	}

	parsed := ai.Parse[qualityResponse](text, "quality verdict")
	if !parsed.Success {
		return Err(types.ErrorProvider, nil, "unparseable quality verdict: %s (response: %s)",
			parsed.Error, ai.Truncate(text, 200))
	}

	v, err := parsed.Data.toVerdict()
	if err != nil {
		return Err(types.ErrorValidation, err, "invalid quality verdict")
	}
	return Ok(v)
}

// QualityFallback is the conservative verdict for a document that could not
// be evaluated. It never flags anything, so nothing is auto-closed.
func QualityFallback() types.Verdict {
	return types.Verdict{
		Flag:            types.FlagNone,
		Confidence:      QualityFallbackConfidence,
		Reasoning:       QualityFallbackReasoning,
		SuggestedAction: types.ActionReview,
		Fallback:        true,
	}
}

type qualityResponse struct {
	IsSpam          *bool    `json:"isSpam"`
	IsLowQuality    *bool    `json:"isLowQuality"`
	IsSlop          *bool    `json:"isSlop"`
	Confidence      *float64 `json:"confidence"`
	Reasoning       *string  `json:"reasoning"`
	SuggestedAction *string  `json:"suggestedAction"`
}

func (r qualityResponse) toVerdict() (types.Verdict, error) {
	var missing []string
	if r.IsSpam == nil {
		missing = append(missing, "isSpam")
	}
	if r.IsLowQuality == nil {
		missing = append(missing, "isLowQuality")
	}
	if r.IsSlop == nil {
		missing = append(missing, "isSlop")
	}
	if r.Confidence == nil {
		missing = append(missing, "confidence")
	}
	if r.Reasoning == nil {
		missing = append(missing, "reasoning")
	}
	if r.SuggestedAction == nil {
		missing = append(missing, "suggestedAction")
	}
	if len(missing) > 0 {
		return types.Verdict{}, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	action := types.Action(*r.SuggestedAction)
	if !action.IsQualityAction() {
		return types.Verdict{}, fmt.Errorf("suggestedAction %q is not one of close, label, review, none", action)
	}

	flags := types.QualityFlags{Spam: *r.IsSpam, LowQuality: *r.IsLowQuality, Slop: *r.IsSlop}
	return types.Verdict{
		Flag:            flags.Primary(),
		Flags:           flags,
		Confidence:      types.Clamp(*r.Confidence, 0, 1),
		Reasoning:       strings.TrimSpace(*r.Reasoning),
		SuggestedAction: action,
	}, nil
}

func (a *QualityAdjudicator) buildPrompt(target *types.Document) string {
	kind := "issue"
	if target.IsPullRequest {
		kind = "pull request"
	}
	return fmt.Sprintf(`You are triaging an open GitHub %s for spam and low-quality content.

ID: %s
Author: %s
Title: %s
Body: %s

TASK:
Classify the %s. A document may match several categories.
- spam: promotional, off-topic, or malicious content
- low quality: missing reproduction steps, empty or unclear descriptions, no actionable request
- slop: generic machine-generated text that does not engage with this project

Only recommend "close" when you are certain. Prefer "review" when unsure.

OUTPUT FORMAT (JSON only, no markdown):
{
  "isSpam": boolean,
  "isLowQuality": boolean,
  "isSlop": boolean,
  "confidence": number (0.0-1.0),
  "reasoning": "Brief explanation",
  "suggestedAction": "close" | "label" | "review" | "none"
}

IMPORTANT: Respond with ONLY raw JSON. Do NOT wrap it in markdown code fences.`,
		kind, target.ID, target.Author, target.Title, ai.Truncate(target.Body, a.cfg.BodyChars), kind)
}
