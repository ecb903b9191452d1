package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/analysis"
	"github.com/repolens/repolens/internal/types"
)

var duplicatesCmd = &cobra.Command{
	Use:   "duplicates <owner>/<repo>",
	Short: "Find open issues and pull requests that duplicate each other",
	Long: `Embed every open issue and pull request, retrieve the most similar
items for each one, and ask the classifier whether they describe the same
problem. Results are ranked by confidence, then by number of candidates.

Examples:
  # Analyze a live repository (uses GITHUB_TOKEN and OPENAI_API_KEY)
  repolens duplicates acme/widgets

  # Analyze a saved snapshot
  repolens duplicates acme/widgets --file testdata/widgets.yaml

  # Machine-readable output
  repolens duplicates acme/widgets --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, types.EngineDuplicates, args[0])
	},
}

var triageCmd = &cobra.Command{
	Use:   "triage <owner>/<repo>",
	Short: "Flag spam, low-quality and machine-generated submissions",
	Long: `Classify every open issue and pull request for spam, low quality and
AI-generated slop. Only flagged items are reported.

Examples:
  repolens triage acme/widgets
  repolens triage acme/widgets --file snapshot.json --limit 10`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalysis(cmd, types.EngineQuality, args[0])
	},
}

func init() {
	for _, c := range []*cobra.Command{duplicatesCmd, triageCmd} {
		c.Flags().StringP("file", "f", "", "Read the corpus from a JSON or YAML snapshot instead of GitHub")
		c.Flags().Bool("json", false, "Print the full report as JSON")
		c.Flags().IntP("limit", "n", 0, "Show at most this many results (0 = all)")
		c.Flags().Duration("timeout", 0, "Deadline for the whole run (0 = none)")
		rootCmd.AddCommand(c)
	}
}

// parseRepoArg splits "owner/repo". Deeper validation happens in the service.
func parseRepoArg(arg string) (string, string, error) {
	owner, repo, ok := strings.Cut(strings.TrimSpace(arg), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") {
		return "", "", fmt.Errorf("expected <owner>/<repo>, got %q", arg)
	}
	return owner, repo, nil
}

func runAnalysis(cmd *cobra.Command, engine types.Engine, arg string) error {
	file, _ := cmd.Flags().GetString("file")
	asJSON, _ := cmd.Flags().GetBool("json")
	limit, _ := cmd.Flags().GetInt("limit")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	owner, repo, err := parseRepoArg(arg)
	if err != nil {
		return err
	}

	comps, err := buildComponents(cfg, file, []types.Engine{engine}, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	report, err := comps.service.Analyze(ctx, analysis.Request{Owner: owner, Repo: repo, Engine: engine})
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*types.Report
			Actions []types.ActionRecord `json:"actions"`
		}{report, report.Actions()})
	}

	displayReport(cmd.OutOrStdout(), report, limit)
	log.Debug("run finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}
