// Package analysis is the single request/response entry point: load a
// repository's open items and run one engine over them.
package analysis

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/corpus"
	"github.com/repolens/repolens/internal/types"
)

// Engine analyzes a materialized corpus. Both the duplicate and quality
// engines satisfy it.
type Engine interface {
	Analyze(ctx context.Context, docs []types.Document) (*types.Report, error)
}

// Request identifies the repository and the analysis to run
type Request struct {
	Owner  string       `json:"owner"`
	Repo   string       `json:"repo"`
	Engine types.Engine `json:"engine"`
}

var (
	ownerPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9-]{0,38})$`)
	repoPattern  = regexp.MustCompile(`^[A-Za-z0-9._-]{1,100}$`)
)

// Validate checks the request and returns a fatal input error if it is unusable
func (r Request) Validate() error {
	owner := strings.TrimSpace(r.Owner)
	repo := strings.TrimSpace(r.Repo)
	if owner == "" || repo == "" {
		return types.NewError(types.ErrorFatalInput, nil, "owner and repo are required")
	}
	if !ownerPattern.MatchString(owner) {
		return types.NewError(types.ErrorFatalInput, nil, "invalid owner %q", r.Owner)
	}
	if !repoPattern.MatchString(repo) || repo == "." || repo == ".." {
		return types.NewError(types.ErrorFatalInput, nil, "invalid repo %q", r.Repo)
	}
	if !r.Engine.IsValid() {
		return types.NewError(types.ErrorFatalInput, nil, "unknown engine %q (want %s or %s)",
			r.Engine, types.EngineDuplicates, types.EngineQuality)
	}
	return nil
}

// Service wires a corpus loader to the analysis engines
type Service struct {
	loader  corpus.Loader
	engines map[types.Engine]Engine
	logger  *zap.Logger
}

// NewService creates a Service. Engines left nil are reported as unavailable.
func NewService(loader corpus.Loader, duplicates, quality Engine, logger *zap.Logger) (*Service, error) {
	if loader == nil {
		return nil, fmt.Errorf("corpus loader cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	engines := make(map[types.Engine]Engine, 2)
	if duplicates != nil {
		engines[types.EngineDuplicates] = duplicates
	}
	if quality != nil {
		engines[types.EngineQuality] = quality
	}
	return &Service{loader: loader, engines: engines, logger: logger}, nil
}

// Analyze loads the repository's open items and runs the requested engine.
// Every error is a *types.Error; a fatal error carries no partial results.
func (s *Service) Analyze(ctx context.Context, req Request) (*types.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	engine, ok := s.engines[req.Engine]
	if !ok {
		return nil, types.NewError(types.ErrorFatalInput, nil, "engine %q is not configured", req.Engine)
	}

	owner, repo := strings.TrimSpace(req.Owner), strings.TrimSpace(req.Repo)
	logger := s.logger.With(zap.String("repo", owner+"/"+repo), zap.String("engine", string(req.Engine)))

	docs, err := s.loader.ListOpenItems(ctx, owner, repo)
	if err != nil {
		logger.Error("corpus load failed", zap.Error(err))
		return nil, types.NewError(types.ErrorFatalInput, err, "loading %s/%s", owner, repo)
	}
	logger.Info("corpus loaded", zap.Int("documents", len(docs)))

	report, err := engine.Analyze(ctx, docs)
	if err != nil {
		var typed *types.Error
		if errors.As(err, &typed) {
			return nil, err
		}
		return nil, types.NewError(types.ErrorFatalInput, err, "analyzing %s/%s", owner, repo)
	}
	report.Owner = owner
	report.Repo = repo
	return report, nil
}
