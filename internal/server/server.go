// Package server exposes the analysis service over HTTP with a chi router.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/repolens/repolens/internal/analysis"
	"github.com/repolens/repolens/internal/corpus"
	"github.com/repolens/repolens/internal/logger"
	"github.com/repolens/repolens/internal/metrics"
	"github.com/repolens/repolens/internal/types"
)

const maxRequestBytes = 1 << 20

// kindInternal marks failures that are not attributable to the request.
const kindInternal types.ErrorKind = "internal"

// Analyzer runs one analysis request. *analysis.Service satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, req analysis.Request) (*types.Report, error)
}

// HealthChecker reports whether a dependency is usable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Options configures the HTTP surface.
type Options struct {
	// RequestTimeout bounds one analysis run. Zero means no deadline beyond the client's.
	RequestTimeout time.Duration
	// APIKeys are accepted as bearer tokens on /v1 routes. Empty disables auth.
	APIKeys []string
	// Checks are consulted by /healthz, keyed by dependency name.
	Checks map[string]HealthChecker
}

// Server serves POST /v1/analyze, /healthz and /metrics.
type Server struct {
	analyzer Analyzer
	opts     Options
	logger   *zap.Logger
}

// New creates a Server.
func New(analyzer Analyzer, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{analyzer: analyzer, opts: opts, logger: logger}
}

// Handler returns the routed HTTP handler with middleware attached.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(s.opts.APIKeys))
		r.Post("/analyze", s.analyze)
	})
	return r
}

type analyzeResponse struct {
	*types.Report
	Actions []types.ActionRecord `json:"actions"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req analysis.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest,
			types.NewError(types.ErrorFatalInput, err, "invalid request body: %v", err))
		return
	}

	ctx := r.Context()
	if s.opts.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()
	}

	report, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		status := statusFor(err)
		log.Warn("analysis failed",
			zap.String("owner", req.Owner),
			zap.String("repo", req.Repo),
			zap.String("engine", string(req.Engine)),
			zap.Int("status", status),
			zap.Error(err))
		writeJSON(w, status, publicError(err))
		return
	}

	log.Info("analysis complete",
		zap.String("run_id", report.RunID),
		zap.String("engine", string(report.Engine)),
		zap.Int("total", report.Summary.Total),
		zap.Int("reported", report.Summary.Reported),
		zap.Int("fallbacks", report.Summary.Fallbacks))
	writeJSON(w, http.StatusOK, analyzeResponse{Report: report, Actions: report.Actions()})
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if len(s.opts.Checks) > 0 {
		resp.Checks = make(map[string]string, len(s.opts.Checks))
	}
	for name, check := range s.opts.Checks {
		if err := check.HealthCheck(r.Context()); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// statusFor maps an analysis error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, corpus.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, corpus.ErrUnauthorized):
		return http.StatusForbidden
	case types.KindOf(err) == types.ErrorFatalInput:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// publicError returns the {error_kind, message} body for err. Untyped errors
// are not echoed to the client.
func publicError(err error) *types.Error {
	var typed *types.Error
	if errors.As(err, &typed) {
		return &types.Error{
			Kind:    typed.Kind,
			Message: strings.TrimPrefix(typed.Error(), string(typed.Kind)+": "),
		}
	}
	return &types.Error{Kind: kindInternal, Message: "internal error"}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					writeJSON(w, http.StatusInternalServerError,
						&types.Error{Kind: kindInternal, Message: "internal error"})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// requestLogger emits one log line per request and puts a request-scoped
// logger in the context.
func requestLogger(base *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := base.With(zap.String("request_id", requestID))
			ctx := logger.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}

// BearerAuthMiddleware validates Bearer tokens against apiKeys.
// If apiKeys is empty, authentication is disabled.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k = strings.TrimSpace(k); k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		if len(validKeys) == 0 {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const bearerPrefix = "Bearer "
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, bearerPrefix) {
				writeJSON(w, http.StatusUnauthorized,
					&types.Error{Kind: types.ErrorFatalInput, Message: "missing or malformed bearer token"})
				return
			}
			if _, ok := validKeys[auth[len(bearerPrefix):]]; !ok {
				writeJSON(w, http.StatusUnauthorized,
					&types.Error{Kind: types.ErrorFatalInput, Message: "invalid api key"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
