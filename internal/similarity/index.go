package similarity

import (
	"fmt"
	"sort"

	"github.com/repolens/repolens/internal/types"
)

const (
	// DefaultMinScore is the retrieval cutoff; only scores strictly above it are kept.
	DefaultMinScore = 0.6
	// DefaultMaxCandidates caps the candidate list per target.
	DefaultMaxCandidates = 5
)

// Config holds retrieval thresholds
type Config struct {
	MinScore      float64 `yaml:"min_score"`
	MaxCandidates int     `yaml:"max_candidates"`
}

// DefaultConfig returns the default retrieval configuration
func DefaultConfig() Config {
	return Config{
		MinScore:      DefaultMinScore,
		MaxCandidates: DefaultMaxCandidates,
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.MinScore < 0 || c.MinScore >= 1 {
		return fmt.Errorf("min_score must be in [0.0, 1.0) (got %.2f)", c.MinScore)
	}
	if c.MaxCandidates <= 0 {
		return fmt.Errorf("max_candidates must be positive (got %d)", c.MaxCandidates)
	}
	return nil
}

// Entry is one document's vector in the index.
type Entry struct {
	ID     string
	Vector types.EmbeddingVector
}

// Match is a retrieval hit. Position is the match's index in the corpus
// passed to Build, so callers can look the document up without a map.
type Match struct {
	ID       string
	Position int
	Score    float64
}

// Index is a brute-force cosine index. It is read-only after Build and safe
// for concurrent Retrieve calls.
type Index struct {
	cfg     Config
	entries []Entry
	mags    []float64
}

// NewIndex creates an empty index with the given thresholds
func NewIndex(cfg Config) (*Index, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Index{cfg: cfg}, nil
}

// Build loads the corpus and precomputes magnitudes. Corpus order is kept
// and used to break score ties.
func (x *Index) Build(entries []Entry) error {
	seen := make(map[string]struct{}, len(entries))
	for i, e := range entries {
		if e.ID == "" {
			return fmt.Errorf("entry at index %d has empty id", i)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("duplicate entry id %q", e.ID)
		}
		seen[e.ID] = struct{}{}
	}
	x.entries = append([]Entry(nil), entries...)
	x.mags = make([]float64, len(entries))
	for i := range x.entries {
		x.mags[i] = magnitude(x.entries[i].Vector)
	}
	return nil
}

// Len returns the number of indexed entries
func (x *Index) Len() int {
	return len(x.entries)
}

// Retrieve returns the entries most similar to target, excluding target
// itself by ID. Only scores above MinScore are kept, sorted descending with
// ties in corpus order, capped at MaxCandidates.
func (x *Index) Retrieve(target Entry) []Match {
	tm := magnitude(target.Vector)
	if tm == 0 {
		return nil
	}

	var matches []Match
	for i, e := range x.entries {
		if e.ID == target.ID {
			continue
		}
		if x.mags[i] == 0 || len(e.Vector) != len(target.Vector) {
			continue
		}
		s := bound(dot(target.Vector, e.Vector) / (tm * x.mags[i]))
		if s <= x.cfg.MinScore {
			continue
		}
		matches = append(matches, Match{ID: e.ID, Position: i, Score: types.Clamp(s, 0, 1)})
	}

	sort.SliceStable(matches, func(a, b int) bool {
		return matches[a].Score > matches[b].Score
	})
	if len(matches) > x.cfg.MaxCandidates {
		matches = matches[:x.cfg.MaxCandidates]
	}
	return matches
}

// Retrieve is the pure form: build a throwaway index over corpus and query it.
func Retrieve(target Entry, corpus []Entry, cfg Config) ([]Match, error) {
	idx, err := NewIndex(cfg)
	if err != nil {
		return nil, err
	}
	if err := idx.Build(corpus); err != nil {
		return nil, err
	}
	return idx.Retrieve(target), nil
}
