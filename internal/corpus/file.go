package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/repolens/repolens/internal/types"
)

// FileLoader reads a corpus snapshot from a JSON or YAML file. The file holds
// either a bare list of documents or an object with an "items" list.
// Owner and repo are only checked against the snapshot when it records them.
type FileLoader struct {
	Path string
}

var _ Loader = (*FileLoader)(nil)

type snapshot struct {
	Owner string           `json:"owner" yaml:"owner"`
	Repo  string           `json:"repo" yaml:"repo"`
	Items []types.Document `json:"items" yaml:"items"`
}

// ListOpenItems implements Loader
func (f *FileLoader) ListOpenItems(ctx context.Context, owner, repo string) ([]types.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Clean(f.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus %s: %w", f.Path, err)
	}

	snap, err := decodeSnapshot(f.Path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse corpus %s: %w", f.Path, err)
	}
	if snap.Owner != "" && !strings.EqualFold(snap.Owner, owner) ||
		snap.Repo != "" && !strings.EqualFold(snap.Repo, repo) {
		return nil, fmt.Errorf("corpus %s is for %s/%s, not %s/%s: %w",
			f.Path, snap.Owner, snap.Repo, owner, repo, ErrNotFound)
	}
	return snap.Items, nil
}

// decodeSnapshot accepts either an object with "items" or a bare list.
func decodeSnapshot(path string, data []byte) (snapshot, error) {
	var unmarshal func([]byte, any) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		unmarshal = json.Unmarshal
	case ".yaml", ".yml":
		unmarshal = yaml.Unmarshal
	default:
		return snapshot{}, fmt.Errorf("unsupported corpus format %q (want .json, .yaml or .yml)", filepath.Ext(path))
	}

	var snap snapshot
	objErr := unmarshal(data, &snap)
	if objErr == nil {
		return snap, nil
	}
	var items []types.Document
	if err := unmarshal(data, &items); err != nil {
		return snapshot{}, objErr
	}
	return snapshot{Items: items}, nil
}
