package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/metrics"
	"github.com/repolens/repolens/internal/server"
	"github.com/repolens/repolens/internal/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis API over HTTP",
	Long: `Start an HTTP server exposing:

  POST /v1/analyze   {"owner": "...", "repo": "...", "engine": "duplicates|quality"}
  GET  /healthz
  GET  /metrics      Prometheus metrics

Set http.api_keys (or REPOLENS_API_KEYS) to require bearer tokens on /v1.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		if port, _ := cmd.Flags().GetInt("port"); port > 0 {
			cfg.HTTP.Port = port
		}

		comps, err := buildComponents(cfg, file, []types.Engine{types.EngineDuplicates, types.EngineQuality}, log)
		if err != nil {
			return err
		}
		metrics.Register()

		srv := server.New(comps.service, server.Options{
			RequestTimeout: time.Duration(cfg.HTTP.RequestTimeoutSec) * time.Second,
			APIKeys:        cfg.HTTP.APIKeys,
			Checks:         comps.checks,
		}, log.Named("http"))

		addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
		httpSrv := &http.Server{
			Addr:         addr,
			Handler:      srv.Handler(),
			ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
			WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Info("Starting HTTP server", zap.String("addr", addr))
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		case <-ctx.Done():
			log.Info("Received shutdown signal")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("Error during shutdown", zap.Error(err))
			return err
		}
		log.Info("Server stopped gracefully")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringP("file", "f", "", "Serve analyses of a JSON or YAML snapshot instead of GitHub")
	serveCmd.Flags().IntP("port", "p", 0, "Listen port (overrides http.port)")
	rootCmd.AddCommand(serveCmd)
}
