package main

import (
	"fmt"
	"io"
	"math"

	"github.com/fatih/color"

	"github.com/repolens/repolens/internal/types"
)

// displayReport prints a ranked report in a compact two-line-per-result format
func displayReport(w io.Writer, report *types.Report, limit int) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	fmt.Fprintf(w, "\n%s %s %s/%s %s\n\n", cyan("▶"), report.Engine, report.Owner, report.Repo, gray(report.RunID))

	results := report.Results
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	if len(results) == 0 {
		fmt.Fprintf(w, "  %s Nothing to report\n", green("✓"))
	}

	for i, res := range results {
		v := res.Verdict
		line := fmt.Sprintf("%2d. %s %s", i+1, documentLabel(res.Document), truncateString(res.Document.Title, 60))
		if v.RelatedID != "" {
			line += gray(" → " + v.RelatedID)
		}
		actionColor := actionColorFor(v.SuggestedAction)
		fmt.Fprintf(w, "%s\n", line)

		meta := fmt.Sprintf("%s | %s", formatConfidence(report.Engine, v.Confidence), actionColor.Sprint(v.SuggestedAction))
		if v.Flag != types.FlagNone && v.Flag != "" {
			meta += " | " + string(v.Flag)
		}
		if n := len(res.Candidates); n > 0 {
			meta += fmt.Sprintf(" | %d candidate(s)", n)
		}
		if v.Fallback {
			meta += " | " + yellow("fallback")
		}
		fmt.Fprintf(w, "    %s\n", meta)
		if v.Reasoning != "" {
			fmt.Fprintf(w, "    %s\n", gray(truncateString(v.Reasoning, 100)))
		}
	}

	if hidden := len(report.Results) - len(results); hidden > 0 {
		fmt.Fprintf(w, "\n  %s\n", gray(fmt.Sprintf("... %d more (use --limit 0 to show all)", hidden)))
	}

	s := report.Summary
	fmt.Fprintf(w, "\n%s %d total, %d reported, %d suppressed", cyan("Summary:"), s.Total, s.Reported, s.Suppressed)
	if s.EmbeddingFailures > 0 {
		fmt.Fprintf(w, ", %s", yellow(fmt.Sprintf("%d embedding failure(s)", s.EmbeddingFailures)))
	}
	if s.Fallbacks > 0 {
		fmt.Fprintf(w, ", %s", yellow(fmt.Sprintf("%d fallback(s)", s.Fallbacks)))
	}
	if s.PartialFailures > 0 {
		fmt.Fprintf(w, ", %s", color.RedString("%d failed", s.PartialFailures))
	}
	fmt.Fprintf(w, " %s\n", gray(fmt.Sprintf("(%dms)", s.DurationMs)))
}

func documentLabel(d types.Document) string {
	kind := "issue"
	if d.IsPullRequest {
		kind = "pr"
	}
	id := d.ID
	if d.Number > 0 {
		id = fmt.Sprintf("#%d", d.Number)
	}
	return color.New(color.FgGreen).Sprint(id) + color.New(color.FgHiBlack).Sprint("("+kind+")")
}

// formatConfidence renders a confidence as a percentage. Duplicate verdicts
// are already on a 0-100 scale; quality verdicts are 0-1.
func formatConfidence(engine types.Engine, confidence float64) string {
	if engine == types.EngineQuality {
		confidence *= 100
	}
	return fmt.Sprintf("%d%%", int(math.Round(confidence)))
}

func actionColorFor(a types.Action) *color.Color {
	switch a {
	case types.ActionMarkDuplicate, types.ActionClose:
		return color.New(color.FgRed)
	case types.ActionReviewRequired, types.ActionReview, types.ActionLabel:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgWhite)
	}
}

// truncateString shortens s to at most maxLen runes, ending in "..." when cut
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return "..."
	}
	return string(r[:maxLen-3]) + "..."
}
