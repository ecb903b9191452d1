package types

import "time"

// Engine names the analysis that produced a report
type Engine string

const (
	EngineDuplicates Engine = "duplicates"
	EngineQuality    Engine = "quality"
)

// IsValid checks if the engine value is valid
func (e Engine) IsValid() bool {
	switch e {
	case EngineDuplicates, EngineQuality:
		return true
	}
	return false
}

// Summary counts what happened to every document in a run.
// Reported + Suppressed + PartialFailures == Total.
type Summary struct {
	Total             int   `json:"total"`
	Embedded          int   `json:"embedded"`
	EmbeddingFailures int   `json:"embedding_failures"`
	Analyzed          int   `json:"analyzed"`
	Reported          int   `json:"reported"`
	Suppressed        int   `json:"suppressed"`
	Fallbacks         int   `json:"fallbacks"`
	PartialFailures   int   `json:"partial_failures"`
	DurationMs        int64 `json:"duration_ms"`
}

// Report is the ranked output of one analysis run.
type Report struct {
	RunID     string           `json:"run_id"`
	Engine    Engine           `json:"engine"`
	Owner     string           `json:"owner,omitempty"`
	Repo      string           `json:"repo,omitempty"`
	StartedAt time.Time        `json:"started_at"`
	Results   []AnalysisResult `json:"results"`
	Summary   Summary          `json:"summary"`
}

// Actions returns one action record per reported result, in ranking order.
func (r *Report) Actions() []ActionRecord {
	out := make([]ActionRecord, 0, len(r.Results))
	for _, res := range r.Results {
		out = append(out, ActionFor(res))
	}
	return out
}
