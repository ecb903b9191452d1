// Command repolens finds duplicate and low-quality open issues and pull
// requests in a GitHub repository.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/config"
	"github.com/repolens/repolens/internal/logger"
)

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg config.Config
	log *zap.Logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "repolens",
	Short: "Duplicate and spam triage for GitHub issues and pull requests",
	Long: `repolens ranks open issues and pull requests that look like duplicates of
each other, and flags spam, low-quality and machine-generated submissions.

It only recommends actions; it never labels, comments on or closes anything.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			loaded.Logging.Level = logLevel
		}
		if cmd.Flags().Changed("log-format") {
			loaded.Logging.Format = logFormat
		}
		l, err := logger.New(loaded.Logging.Format, loaded.Logging.Level)
		if err != nil {
			return err
		}
		cfg, log = loaded, l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("REPOLENS_CONFIG"), "Path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatConsole, "Log format (console or json)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
