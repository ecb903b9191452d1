package main

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/ai"
	"github.com/repolens/repolens/internal/analysis"
	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/corpus"
	"github.com/repolens/repolens/internal/deduplication"
	"github.com/repolens/repolens/internal/embedding"
	"github.com/repolens/repolens/internal/quality"
	"github.com/repolens/repolens/internal/server"
	"github.com/repolens/repolens/internal/types"
)

// components are the wired pieces of one process.
type components struct {
	service *analysis.Service
	checks  map[string]server.HealthChecker
}

// buildClassifier returns nil when the classifier is disabled or cannot be
// created; the engines then run on their fallback policies.
func buildClassifier(c config.Config, logger *zap.Logger) ai.Classifier {
	if c.Classifier.Disabled {
		logger.Info("classifier disabled; verdicts will use fallback policy")
		return nil
	}
	aiCfg := c.Classifier.Config
	aiCfg.Logger = logger
	classifier, err := ai.NewClassifier(&aiCfg)
	if err != nil {
		logger.Warn("classifier unavailable; verdicts will use fallback policy", zap.Error(err))
		return nil
	}
	return classifier
}

func buildLoader(c config.Config, file string, logger *zap.Logger) (corpus.Loader, error) {
	if file != "" {
		return &corpus.FileLoader{Path: file}, nil
	}
	return corpus.NewGitHubLoader(c.GitHub, nil, logger.Named("github"))
}

// buildComponents wires the engines named in want. An engine that fails to
// build is an error when it was asked for explicitly.
func buildComponents(c config.Config, file string, want []types.Engine, logger *zap.Logger) (*components, error) {
	loader, err := buildLoader(c, file, logger)
	if err != nil {
		return nil, err
	}
	classifier := buildClassifier(c, logger)

	checks := make(map[string]server.HealthChecker)
	if hc, ok := classifier.(server.HealthChecker); ok {
		checks["classifier"] = hc
	}

	var dup, qual analysis.Engine
	for _, engine := range want {
		switch engine {
		case types.EngineDuplicates:
			embedder, err := embedding.NewOpenAIProvider(&c.Embedding)
			if err != nil {
				return nil, fmt.Errorf("embedding provider: %w", err)
			}
			e, err := deduplication.NewEngine(embedder, classifier, c.Duplicates, logger.Named("duplicates"))
			if err != nil {
				return nil, err
			}
			dup = e
		case types.EngineQuality:
			e, err := quality.NewEngine(classifier, c.Quality, logger.Named("quality"))
			if err != nil {
				return nil, err
			}
			qual = e
		}
	}

	svc, err := analysis.NewService(loader, dup, qual, logger)
	if err != nil {
		return nil, err
	}
	return &components{service: svc, checks: checks}, nil
}
