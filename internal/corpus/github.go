package corpus

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/go-github/v66/github"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/types"
)

// GitHubConfig configures a GitHubLoader
type GitHubConfig struct {
	Token               string `yaml:"token"`
	BaseURL             string `yaml:"base_url"` // GitHub Enterprise API root; empty for github.com
	IncludePullRequests bool   `yaml:"include_pull_requests"`
	PerPage             int    `yaml:"per_page"`  // default: 100
	MaxItems            int    `yaml:"max_items"` // 0 = no limit
}

// GitHubLoader lists open issues (and optionally pull requests) through the
// GitHub REST API.
type GitHubLoader struct {
	client *github.Client
	cfg    GitHubConfig
	logger *zap.Logger
}

var _ Loader = (*GitHubLoader)(nil)

// NewGitHubLoader creates a GitHub-backed loader. httpClient may be nil.
func NewGitHubLoader(cfg GitHubConfig, httpClient *http.Client, logger *zap.Logger) (*GitHubLoader, error) {
	if cfg.PerPage <= 0 || cfg.PerPage > 100 {
		cfg.PerPage = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client := github.NewClient(httpClient)
	if cfg.Token != "" {
		client = client.WithAuthToken(cfg.Token)
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		u, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("invalid github base url %q: %w", cfg.BaseURL, err)
		}
		client.BaseURL = u
	}
	return &GitHubLoader{client: client, cfg: cfg, logger: logger}, nil
}

// ListOpenItems implements Loader
func (l *GitHubLoader) ListOpenItems(ctx context.Context, owner, repo string) ([]types.Document, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Sort:        "created",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: l.cfg.PerPage},
	}

	var docs []types.Document
	pages := 0
	for {
		issues, resp, err := l.client.Issues.ListByRepo(ctx, owner, repo, opts)
		if err != nil {
			return nil, classifyGitHubError(owner, repo, err)
		}
		pages++

		for _, issue := range issues {
			if issue.IsPullRequest() && !l.cfg.IncludePullRequests {
				continue
			}
			docs = append(docs, documentFromIssue(issue))
			if l.cfg.MaxItems > 0 && len(docs) >= l.cfg.MaxItems {
				l.logger.Warn("corpus truncated",
					zap.String("repo", owner+"/"+repo),
					zap.Int("max_items", l.cfg.MaxItems))
				return docs, nil
			}
		}

		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	l.logger.Debug("loaded corpus",
		zap.String("repo", owner+"/"+repo),
		zap.Int("documents", len(docs)),
		zap.Int("pages", pages))
	return docs, nil
}

func documentFromIssue(issue *github.Issue) types.Document {
	return types.Document{
		ID:            strconv.Itoa(issue.GetNumber()),
		Number:        issue.GetNumber(),
		Title:         issue.GetTitle(),
		Body:          issue.GetBody(),
		CreatedAt:     issue.GetCreatedAt().Time,
		URL:           issue.GetHTMLURL(),
		Author:        issue.GetUser().GetLogin(),
		IsPullRequest: issue.IsPullRequest(),
	}
}

func classifyGitHubError(owner, repo string, err error) error {
	var errResp *github.ErrorResponse
	if errors.As(err, &errResp) && errResp.Response != nil {
		switch errResp.Response.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("listing %s/%s: %w: %v", owner, repo, ErrUnauthorized, err)
		case http.StatusNotFound:
			return fmt.Errorf("listing %s/%s: %w", owner, repo, ErrNotFound)
		}
	}
	var rateErr *github.RateLimitError
	if errors.As(err, &rateErr) {
		return fmt.Errorf("listing %s/%s: rate limited until %v: %w", owner, repo, rateErr.Rate.Reset.Time, err)
	}
	return fmt.Errorf("listing %s/%s: %w", owner, repo, err)
}
