package deduplication

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/repolens/repolens/internal/adjudicator"
	"github.com/repolens/repolens/internal/ai"
	"github.com/repolens/repolens/internal/embedding"
	"github.com/repolens/repolens/internal/metrics"
	"github.com/repolens/repolens/internal/policy"
	"github.com/repolens/repolens/internal/scheduler"
	"github.com/repolens/repolens/internal/similarity"
	"github.com/repolens/repolens/internal/types"
)

// Engine finds likely duplicates among a corpus of open issues and pull
// requests. It is safe to call Analyze concurrently; each call works on its
// own copy of the run state.
type Engine struct {
	cfg         Config
	embedder    embedding.Provider
	adjudicator *adjudicator.DuplicateAdjudicator
	logger      *zap.Logger
}

// NewEngine creates a duplicate detection engine. classifier may be nil, in
// which case every reported document carries the similarity fallback verdict.
func NewEngine(embedder embedding.Provider, classifier ai.Classifier, cfg Config, logger *zap.Logger) (*Engine, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedding provider cannot be nil")
	}
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
	adj := adjudicator.NewDuplicate(classifier, sched, adjudicator.DuplicateConfig{
		Thresholds:       cfg.Policy,
		PromptCandidates: cfg.PromptCandidates,
		Logger:           logger,
	})
	return &Engine{cfg: cfg, embedder: embedder, adjudicator: adj, logger: logger}, nil
}

// Config returns the engine's configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// slot is one document's output. Only the goroutine handling that document writes it.
type slot struct {
	result  *types.AnalysisResult
	failure error
}

// Analyze runs the duplicate pipeline over docs and returns the ranked report.
// Only documents with at least one candidate are reported. The only error
// is a fatal input error; per-document failures are counted in the summary.
func (e *Engine) Analyze(ctx context.Context, docs []types.Document) (*types.Report, error) {
	start := time.Now()
	report := &types.Report{
		RunID:     uuid.New().String(),
		Engine:    types.EngineDuplicates,
		StartedAt: start,
		Results:   []types.AnalysisResult{},
	}
	logger := e.logger.With(zap.String("run_id", report.RunID), zap.String("engine", string(report.Engine)))

	corpus, err := indexDocuments(docs)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(string(report.Engine), "error").Inc()
		return nil, err
	}

	logger.Info("duplicate analysis started", zap.Int("documents", len(docs)))

	embedded := embedding.EmbedAll(ctx, e.embedder, docs, embedding.BatchOptions{
		Concurrency:   e.cfg.EmbedConcurrency,
		MaxInputChars: e.cfg.MaxInputChars,
		Logger:        logger,
	})

	entries := make([]similarity.Entry, 0, len(docs))
	for i, r := range embedded {
		if r.OK() {
			entries = append(entries, similarity.Entry{ID: docs[i].ID, Vector: r.Vector})
		}
	}
	index, err := similarity.NewIndex(e.cfg.Similarity)
	if err != nil {
		return nil, err
	}
	if err := index.Build(entries); err != nil {
		return nil, types.NewError(types.ErrorFatalInput, err, "building similarity index")
	}

	ids := make([]string, len(docs))
	for i := range docs {
		ids[i] = docs[i].ID
	}
	tracker := policy.NewTracker(ids)
	slots := make([]slot, len(docs))

	// Positions in index matches refer to entries, not docs.
	entryDocs := make([]int, 0, len(entries))
	for i, r := range embedded {
		if r.OK() {
			entryDocs = append(entryDocs, i)
		}
	}

	g := new(errgroup.Group)
	g.SetLimit(e.cfg.Workers)
	for i := range docs {
		if !embedded[i].OK() {
			_ = tracker.Transition(i, policy.StateSuppressed)
			continue
		}
		g.Go(func() error {
			slots[i] = e.analyzeOne(ctx, i, docs, embedded[i].Vector, index, entryDocs, corpus, tracker, logger)
			return nil
		})
	}
	_ = g.Wait()

	summary := types.Summary{Total: len(docs)}
	for i, r := range embedded {
		if r.OK() {
			summary.Embedded++
		} else if !errors.Is(r.Err, embedding.ErrEmptyText) {
			summary.EmbeddingFailures++
		}
		s := slots[i]
		switch {
		case s.failure != nil:
			summary.PartialFailures++
		case s.result != nil:
			report.Results = append(report.Results, *s.result)
			if s.result.Verdict.Fallback {
				summary.Fallbacks++
			}
		}
	}
	policy.Rank(report.Results)

	summary.Reported = tracker.Count(policy.StateReported)
	summary.Suppressed = tracker.Count(policy.StateSuppressed)
	summary.Analyzed = summary.Reported + tracker.Count(policy.StateAnalyzed)
	summary.DurationMs = time.Since(start).Milliseconds()
	report.Summary = summary

	recordRun(report, time.Since(start))
	logger.Info("duplicate analysis complete",
		zap.Int("reported", summary.Reported),
		zap.Int("suppressed", summary.Suppressed),
		zap.Int("fallbacks", summary.Fallbacks),
		zap.Int("embedding_failures", summary.EmbeddingFailures),
		zap.Int("partial_failures", summary.PartialFailures),
		zap.Int64("duration_ms", summary.DurationMs))

	return report, nil
}

// analyzeOne retrieves, justifies, and adjudicates a single document. A
// panic anywhere in this document's pipeline is contained here.
func (e *Engine) analyzeOne(
	ctx context.Context,
	i int,
	docs []types.Document,
	vector types.EmbeddingVector,
	index *similarity.Index,
	entryDocs []int,
	corpus map[string]*types.Document,
	tracker *policy.Tracker,
	logger *zap.Logger,
) (out slot) {
	target := &docs[i]
	defer func() {
		if r := recover(); r != nil {
			out = slot{failure: types.NewError(types.ErrorPartialBatch, nil, "document %s: %v", target.ID, r)}
			logger.Error("document pipeline panicked",
				zap.String("document_id", target.ID),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()

	matches := index.Retrieve(similarity.Entry{ID: target.ID, Vector: vector})
	if len(matches) == 0 {
		if err := tracker.Transition(i, policy.StateSuppressed); err != nil {
			panic(err)
		}
		return slot{}
	}

	candidates := make([]types.SimilarityCandidate, len(matches))
	for k, m := range matches {
		other := &docs[entryDocs[m.Position]]
		candidates[k] = types.SimilarityCandidate{
			TargetID:      m.ID,
			Score:         m.Score,
			Justification: e.cfg.Evidence.Justify(target, other, m.Score),
		}
	}

	verdict := e.adjudicator.Adjudicate(ctx, target, candidates, corpus)
	if err := tracker.Transition(i, policy.StateAnalyzed); err != nil {
		panic(err)
	}
	if err := tracker.Transition(i, policy.StateReported); err != nil {
		panic(err)
	}

	return slot{result: &types.AnalysisResult{
		Document:   *target,
		Candidates: candidates,
		Verdict:    verdict,
	}}
}

// indexDocuments validates the corpus and maps IDs to documents.
func indexDocuments(docs []types.Document) (map[string]*types.Document, error) {
	if err := types.ValidateCorpus(docs); err != nil {
		return nil, err
	}
	corpus := make(map[string]*types.Document, len(docs))
	for i := range docs {
		corpus[docs[i].ID] = &docs[i]
	}
	return corpus, nil
}

func recordRun(report *types.Report, elapsed time.Duration) {
	engine := string(report.Engine)
	metrics.RunsTotal.WithLabelValues(engine, "success").Inc()
	metrics.RunDuration.WithLabelValues(engine).Observe(elapsed.Seconds())
	metrics.DocumentsTotal.WithLabelValues(engine, string(policy.StateReported)).Add(float64(report.Summary.Reported))
	metrics.DocumentsTotal.WithLabelValues(engine, string(policy.StateSuppressed)).Add(float64(report.Summary.Suppressed))
	if report.Summary.PartialFailures > 0 {
		metrics.DocumentsTotal.WithLabelValues(engine, "failed").Add(float64(report.Summary.PartialFailures))
	}
}
