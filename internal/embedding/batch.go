package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/repolens/repolens/internal/types"
)

// BatchOptions controls EmbedAll
type BatchOptions struct {
	Concurrency   int // Parallel provider calls (default: 8)
	MaxInputChars int // Input clipping (default: DefaultMaxInputChars)
	Logger        *zap.Logger
}

// Result is one document's embedding outcome. Exactly one of Vector and Err is set.
type Result struct {
	Vector types.EmbeddingVector
	Err    error
}

// OK reports whether the document was embedded
func (r Result) OK() bool {
	return r.Err == nil && len(r.Vector) > 0
}

// EmbedAll embeds every document concurrently. Each document owns its slot
// in the returned slice, so no locking is needed. A failure affects only its
// own slot; EmbedAll itself never fails.
func EmbedAll(ctx context.Context, provider Provider, docs []types.Document, opts BatchOptions) []Result {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}
	maxChars := opts.MaxInputChars
	if maxChars <= 0 {
		maxChars = DefaultMaxInputChars
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	results := make([]Result, len(docs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i := range docs {
		doc := &docs[i]
		text := clip(doc.Text(), maxChars)
		if text == "" {
			results[i] = Result{Err: ErrEmptyText}
			continue
		}
		g.Go(func() error {
			results[i] = embedOne(gctx, provider, text)
			if results[i].Err != nil {
				logger.Warn("embedding failed",
					zap.String("document_id", doc.ID),
					zap.Error(results[i].Err))
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func embedOne(ctx context.Context, provider Provider, text string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Errorf("embedding provider panic: %v", r)}
		}
	}()

	if err := ctx.Err(); err != nil {
		return Result{Err: err}
	}
	start := time.Now()
	vec, err := provider.Embed(ctx, text)
	if err != nil {
		return Result{Err: err}
	}
	if len(vec) == 0 {
		return Result{Err: fmt.Errorf("empty vector after %v: %w", time.Since(start), ErrProvider)}
	}
	return Result{Vector: vec}
}
