// Package corpus loads the open issues and pull requests to analyze.
package corpus

import (
	"context"
	"errors"

	"github.com/repolens/repolens/internal/types"
)

// Loader supplies the documents for one repository as a single materialized
// list. Implementations handle their own pagination.
type Loader interface {
	ListOpenItems(ctx context.Context, owner, repo string) ([]types.Document, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, owner, repo string) ([]types.Document, error)

// ListOpenItems implements Loader
func (f LoaderFunc) ListOpenItems(ctx context.Context, owner, repo string) ([]types.Document, error) {
	return f(ctx, owner, repo)
}

var (
	// ErrUnauthorized means the loader's credentials were rejected
	ErrUnauthorized = errors.New("not authorized to read repository")
	// ErrNotFound means the repository does not exist or is not visible
	ErrNotFound = errors.New("repository not found")
)
