package types

import (
	"fmt"
	"strings"
	"time"
)

// Document is an open issue or pull request under analysis.
// Identity is ID; a Document is never mutated during a run.
type Document struct {
	ID            string    `json:"id" yaml:"id"`
	Number        int       `json:"number,omitempty" yaml:"number,omitempty"`
	Title         string    `json:"title" yaml:"title"`
	Body          string    `json:"body" yaml:"body"`
	CreatedAt     time.Time `json:"created_at" yaml:"created_at"`
	URL           string    `json:"url,omitempty" yaml:"url,omitempty"`
	Author        string    `json:"author,omitempty" yaml:"author,omitempty"`
	IsPullRequest bool      `json:"is_pull_request,omitempty" yaml:"is_pull_request,omitempty"`
}

// Validate checks if the document has valid field values
func (d *Document) Validate() error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if d.Number < 0 {
		return fmt.Errorf("number cannot be negative (got %d)", d.Number)
	}
	return nil
}

// Text returns the title and body joined the way they are sent to
// embedding and classification providers.
func (d *Document) Text() string {
	title := strings.TrimSpace(d.Title)
	body := strings.TrimSpace(d.Body)
	switch {
	case body == "":
		return title
	case title == "":
		return body
	default:
		return title + "\n\n" + body
	}
}

// EmbeddingVector is the provider's fixed-length representation of a document.
type EmbeddingVector []float32

// SimilarityCandidate is another document that scored above the retrieval
// threshold for a target. Only the similarity index builds these.
type SimilarityCandidate struct {
	TargetID      string  `json:"target_id"`
	Score         float64 `json:"score"` // 0.0-1.0
	Justification string  `json:"justification"`
}

// AnalysisResult is one reported document with its evidence and verdict.
type AnalysisResult struct {
	Document   Document              `json:"document"`
	Candidates []SimilarityCandidate `json:"candidates"`
	Verdict    Verdict               `json:"verdict"`
}

// ActionRecord is what downstream collaborators receive to apply labels or
// comments. The engine itself never mutates the repository.
type ActionRecord struct {
	DocumentID        string  `json:"document_id"`
	SuggestedAction   Action  `json:"suggested_action"`
	Confidence        float64 `json:"confidence"`
	Reasoning         string  `json:"reasoning"`
	RelatedDocumentID string  `json:"related_document_id,omitempty"`
}

// ActionFor builds the action record for a reported result.
func ActionFor(r AnalysisResult) ActionRecord {
	return ActionRecord{
		DocumentID:        r.Document.ID,
		SuggestedAction:   r.Verdict.SuggestedAction,
		Confidence:        r.Verdict.Confidence,
		Reasoning:         r.Verdict.Reasoning,
		RelatedDocumentID: r.Verdict.RelatedID,
	}
}

// Clamp bounds v to [lo, hi]. NaN collapses to lo.
func Clamp(v, lo, hi float64) float64 {
	if v != v || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ValidateCorpus checks every document and rejects repeated IDs. Failures
// are fatal input errors.
func ValidateCorpus(docs []Document) error {
	seen := make(map[string]struct{}, len(docs))
	for i := range docs {
		if err := docs[i].Validate(); err != nil {
			return NewError(ErrorFatalInput, err, "document at index %d is invalid", i)
		}
		if _, dup := seen[docs[i].ID]; dup {
			return NewError(ErrorFatalInput, nil, "duplicate document id %q", docs[i].ID)
		}
		seen[docs[i].ID] = struct{}{}
	}
	return nil
}
