// Package quality triages open issues and pull requests for spam, low-quality
// content, and machine-generated slop. Every document is classified; only
// flagged documents are reported.
package quality

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/repolens/repolens/internal/adjudicator"
	"github.com/repolens/repolens/internal/ai"
	"github.com/repolens/repolens/internal/metrics"
	"github.com/repolens/repolens/internal/policy"
	"github.com/repolens/repolens/internal/scheduler"
	"github.com/repolens/repolens/internal/types"
)

// Engine runs quality triage over a corpus
type Engine struct {
	cfg         Config
	adjudicator *adjudicator.QualityAdjudicator
	logger      *zap.Logger
}

// NewEngine creates a quality triage engine. classifier may be nil, in which
// case every document gets the conservative fallback verdict and nothing is
// reported.
func NewEngine(classifier ai.Classifier, cfg Config, logger *zap.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	sched, err := scheduler.New(cfg.Scheduler)
	if err != nil {
		return nil, err
	}
	adj := adjudicator.NewQuality(classifier, sched, adjudicator.QualityConfig{
		BodyChars: cfg.BodyChars,
		Logger:    logger,
	})
	return &Engine{cfg: cfg, adjudicator: adj, logger: logger}, nil
}

// Config returns the engine's configuration
func (e *Engine) Config() Config {
	return e.cfg
}

type slot struct {
	result  *types.AnalysisResult
	failure error
}

// Analyze classifies every document and returns the flagged ones, sorted by
// confidence. The only error is a fatal input error.
func (e *Engine) Analyze(ctx context.Context, docs []types.Document) (*types.Report, error) {
	start := time.Now()
	report := &types.Report{
		RunID:     uuid.New().String(),
		Engine:    types.EngineQuality,
		StartedAt: start,
		Results:   []types.AnalysisResult{},
	}
	logger := e.logger.With(zap.String("run_id", report.RunID), zap.String("engine", string(report.Engine)))

	if err := types.ValidateCorpus(docs); err != nil {
		metrics.RunsTotal.WithLabelValues(string(report.Engine), "error").Inc()
		return nil, err
	}

	logger.Info("quality triage started",
		zap.Int("documents", len(docs)),
		zap.Duration("min_interval", e.cfg.Scheduler.MinInterval))

	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	tracker := policy.NewTracker(ids)
	slots := make([]slot, len(docs))

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Workers)
	for i := range docs {
		g.Go(func() error {
			slots[i] = e.analyzeOne(ctx, i, &docs[i], tracker, logger)
			return nil
		})
	}
	_ = g.Wait()

	summary := types.Summary{Total: len(docs)}
	for _, s := range slots {
		if s.failure != nil {
			summary.PartialFailures++
			continue
		}
		if s.result == nil {
			continue
		}
		if s.result.Verdict.Fallback {
			summary.Fallbacks++
		}
		if s.result.Verdict.Flags.Any() {
			report.Results = append(report.Results, *s.result)
		}
	}
	policy.Rank(report.Results)

	summary.Reported = tracker.Count(policy.StateReported)
	summary.Suppressed = tracker.Count(policy.StateSuppressed)
	summary.Analyzed = summary.Reported + summary.Suppressed
	summary.DurationMs = time.Since(start).Milliseconds()
	report.Summary = summary

	engine := string(report.Engine)
	metrics.RunsTotal.WithLabelValues(engine, "success").Inc()
	metrics.RunDuration.WithLabelValues(engine).Observe(time.Since(start).Seconds())
	metrics.DocumentsTotal.WithLabelValues(engine, string(policy.StateReported)).Add(float64(summary.Reported))
	metrics.DocumentsTotal.WithLabelValues(engine, string(policy.StateSuppressed)).Add(float64(summary.Suppressed))

	logger.Info("quality triage complete",
		zap.Int("flagged", summary.Reported),
		zap.Int("fallbacks", summary.Fallbacks),
		zap.Int("partial_failures", summary.PartialFailures),
		zap.Int64("duration_ms", summary.DurationMs))

	return report, nil
}

func (e *Engine) analyzeOne(ctx context.Context, i int, target *types.Document, tracker *policy.Tracker, logger *zap.Logger) (out slot) {
	defer func() {
		if r := recover(); r != nil {
			out = slot{failure: types.NewError(types.ErrorPartialBatch, nil, "document %s: %v", target.ID, r)}
			logger.Error("document pipeline panicked",
				zap.String("document_id", target.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	verdict := e.adjudicator.Adjudicate(ctx, target)
	if err := tracker.Transition(i, policy.StateAnalyzed); err != nil {
		panic(err)
	}

	next := policy.StateSuppressed
	if verdict.Flags.Any() {
		next = policy.StateReported
	}
	if err := tracker.Transition(i, next); err != nil {
		panic(err)
	}

	return slot{result: &types.AnalysisResult{
		Document:   *target,
		Candidates: []types.SimilarityCandidate{},
		Verdict:    verdict,
	}}
}
