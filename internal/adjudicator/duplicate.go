package adjudicator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/ai"
	"github.com/repolens/repolens/internal/evidence"
	"github.com/repolens/repolens/internal/metrics"
	"github.com/repolens/repolens/internal/policy"
	"github.com/repolens/repolens/internal/scheduler"
	"github.com/repolens/repolens/internal/types"
)

// Prompt shaping defaults
const (
	DefaultPromptCandidates = 3
	DefaultTargetBodyChars  = 2000
	DefaultCandidateChars   = 500
)

// ErrNoClassifier is the failure recorded when no classifier is configured.
var ErrNoClassifier = errors.New("no classifier configured")

// DuplicateConfig configures a DuplicateAdjudicator
type DuplicateConfig struct {
	Thresholds       policy.Thresholds
	PromptCandidates int // Candidates described to the classifier (default: 3)
	TargetBodyChars  int // Target body truncation (default: 2000)
	CandidateChars   int // Candidate body truncation (default: 500)
	Logger           *zap.Logger
}

// DuplicateAdjudicator asks the classifier whether a document duplicates
// one of its retrieved candidates.
type DuplicateAdjudicator struct {
	classifier ai.Classifier
	sched      *scheduler.Scheduler
	cfg        DuplicateConfig
	logger     *zap.Logger
}

// NewDuplicate creates a duplicate adjudicator. classifier may be nil, in
// which case every document gets the fallback verdict.
func NewDuplicate(classifier ai.Classifier, sched *scheduler.Scheduler, cfg DuplicateConfig) *DuplicateAdjudicator {
	if cfg.PromptCandidates <= 0 {
		cfg.PromptCandidates = DefaultPromptCandidates
	}
	if cfg.TargetBodyChars <= 0 {
		cfg.TargetBodyChars = DefaultTargetBodyChars
	}
	if cfg.CandidateChars <= 0 {
		cfg.CandidateChars = DefaultCandidateChars
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DuplicateAdjudicator{classifier: classifier, sched: sched, cfg: cfg, logger: logger}
}

// Adjudicate returns the verdict for target given its ranked candidates.
// corpus resolves candidate IDs to documents for the prompt.
func (a *DuplicateAdjudicator) Adjudicate(ctx context.Context, target *types.Document, candidates []types.SimilarityCandidate, corpus map[string]*types.Document) types.Verdict {
	outcome := a.Classify(ctx, target, candidates, corpus)
	if v, err := outcome.Verdict(); err == nil {
		metrics.VerdictsTotal.WithLabelValues(string(types.EngineDuplicates), "classifier").Inc()
		return v
	}

	a.logger.Warn("duplicate classification failed, using fallback",
		zap.String("document_id", target.ID),
		zap.String("kind", string(outcome.Kind())),
		zap.Error(outcome.Err()))
	metrics.VerdictsTotal.WithLabelValues(string(types.EngineDuplicates), "fallback").Inc()
	metrics.FallbacksTotal.WithLabelValues(string(types.EngineDuplicates), string(outcome.Kind())).Inc()
	return DuplicateFallback(a.cfg.Thresholds, candidates)
}

// Classify calls the classifier and validates its reply without applying
// the fallback policy.
func (a *DuplicateAdjudicator) Classify(ctx context.Context, target *types.Document, candidates []types.SimilarityCandidate, corpus map[string]*types.Document) Outcome {
	if a.classifier == nil {
		return Err(types.ErrorProvider, ErrNoClassifier, "duplicate check skipped")
	}
	if err := ctx.Err(); err != nil {
		return Err(types.ErrorProvider, err, "deadline reached before duplicate check")
	}

	prompt := a.buildPrompt(target, candidates, corpus)

	text, err := complete(ctx, a.sched, a.classifier, "duplicate_check", prompt)
	if err != nil {
		return Err(types.ErrorProvider, err, "duplicate check call failed")
	}

	parsed := ai.Parse[duplicateResponse](text, "duplicate verdict")
	if !parsed.Success {
		return Err(types.ErrorProvider, nil, "unparseable duplicate verdict: %s (response: %s)",
			parsed.Error, ai.Truncate(text, 200))
	}

	v, err := parsed.Data.toVerdict(candidates, corpus)
	if err != nil {
		return Err(types.ErrorValidation, err, "invalid duplicate verdict")
	}
	return Ok(v)
}

// DuplicateFallback derives a verdict from similarity alone. Confidence is
// the dampened mean candidate score; the flag uses the undampened mean.
func DuplicateFallback(th policy.Thresholds, candidates []types.SimilarityCandidate) types.Verdict {
	confidence := th.FallbackConfidence(candidates)
	flag := types.FlagNone
	if th.IsDuplicate(candidates) {
		flag = types.FlagDuplicate
	}
	v := types.Verdict{
		Flag:            flag,
		Confidence:      confidence,
		Reasoning:       fmt.Sprintf("Classifier unavailable; based on %d%% average similarity", int(math.Round(policy.MeanSimilarity(candidates)))),
		SuggestedAction: th.DecideDuplicateAction(confidence),
		Fallback:        true,
	}
	if len(candidates) > 0 {
		v.RelatedID = candidates[0].TargetID
	}
	return v
}

// duplicateResponse uses pointers so that absent fields can be told apart
// from zero values.
type duplicateResponse struct {
	IsDuplicate     *bool           `json:"isDuplicate"`
	Confidence      *float64        `json:"confidence"`
	Reasoning       *string         `json:"reasoning"`
	SuggestedAction *string         `json:"suggestedAction"`
	DuplicateOf     json.RawMessage `json:"duplicateOf,omitempty"`
}

func (r duplicateResponse) toVerdict(candidates []types.SimilarityCandidate, corpus map[string]*types.Document) (types.Verdict, error) {
	var missing []string
	if r.IsDuplicate == nil {
		missing = append(missing, "isDuplicate")
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
	if !action.IsDuplicateAction() {
		return types.Verdict{}, fmt.Errorf("suggestedAction %q is not one of mark_duplicate, review_required, not_duplicate", action)
	}

	flag := types.FlagNone
	if *r.IsDuplicate {
		flag = types.FlagDuplicate
	}
	v := types.Verdict{
		Flag:            flag,
		Confidence:      types.Clamp(*r.Confidence, 0, 100),
		Reasoning:       strings.TrimSpace(*r.Reasoning),
		SuggestedAction: action,
		RelatedID:       resolveDuplicateOf(r.DuplicateOf, candidates, corpus),
	}
	return v, nil
}

// resolveDuplicateOf matches the classifier's duplicateOf (an ID or an issue
// number) against the candidates, defaulting to the top candidate.
func resolveDuplicateOf(raw json.RawMessage, candidates []types.SimilarityCandidate, corpus map[string]*types.Document) string {
	if len(candidates) == 0 {
		return ""
	}
	ref := strings.TrimSpace(string(raw))
	if ref != "" && ref != "null" {
		if unquoted, err := strconv.Unquote(ref); err == nil {
			ref = unquoted
		}
		ref = strings.TrimPrefix(ref, "#")
		for _, c := range candidates {
			if c.TargetID == ref {
				return c.TargetID
			}
			if doc, ok := corpus[c.TargetID]; ok && doc.Number > 0 && strconv.Itoa(doc.Number) == ref {
				return c.TargetID
			}
		}
	}
	return candidates[0].TargetID
}

func (a *DuplicateAdjudicator) buildPrompt(target *types.Document, candidates []types.SimilarityCandidate, corpus map[string]*types.Document) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `You are reviewing open GitHub issues and pull requests for duplicates.

TARGET:
ID: %s
Title: %s
Body: %s

POSSIBLE DUPLICATES (ranked by semantic similarity):
`, target.ID, target.Title, ai.Truncate(target.Body, a.cfg.TargetBodyChars))

	n := len(candidates)
	if n > a.cfg.PromptCandidates {
		n = a.cfg.PromptCandidates
	}
	for i, c := range candidates[:n] {
		title, body := "", ""
		if doc, ok := corpus[c.TargetID]; ok {
			title, body = doc.Title, doc.Body
		}
		fmt.Fprintf(&sb, `
[%d] ID: %s
    Title: %s
    Similarity: %d%%
    Evidence: %s
    Body: %s
`, i+1, c.TargetID, title, evidence.Percent(c.Score), c.Justification, ai.Truncate(body, a.cfg.CandidateChars))
	}

	sb.WriteString(`
TASK:
Decide whether the TARGET describes the same underlying problem or change as one of the candidates.
Different wording is fine if the root cause is the same. Related but distinct problems are NOT duplicates.

OUTPUT FORMAT (JSON only, no markdown):
{
  "isDuplicate": boolean,
  "confidence": number (0-100),
  "reasoning": "Brief explanation",
  "suggestedAction": "mark_duplicate" | "review_required" | "not_duplicate",
  "duplicateOf": "ID of the best matching candidate, if any"
}

IMPORTANT: Respond with ONLY raw JSON. Do NOT wrap it in markdown code fences.`)
	return sb.String()
}
