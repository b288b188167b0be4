// Package httpapi exposes the analysis pipeline and stored budgets over
// HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Veraticus/plancost/internal/analysis"
	"github.com/Veraticus/plancost/internal/pricing"
	"github.com/Veraticus/plancost/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	defaultRequestTimeout = 10 * time.Minute
	maxAnalysisBody       = 64 << 20
	maxSmallBody          = 1 << 20
)

// Analyzer runs the three analysis modes.
type Analyzer interface {
	AnalyzePlans(ctx context.Context, req analysis.PlanRequest) (*analysis.Analysis, error)
	MergeExtractions(ctx context.Context, req analysis.MergeRequest) (*analysis.Analysis, error)
	AnalyzeManual(ctx context.Context, req analysis.ManualRequest) (*analysis.Analysis, error)
}

// Deps are the collaborators of the API.
type Deps struct {
	Analyzer Analyzer
	Store    service.Storage
	Pricing  *pricing.Table
	// Gatherer backs /metrics. Nil means the default registry.
	Gatherer prometheus.Gatherer
	Logger   *slog.Logger
}

// Validate checks that the required dependencies are present.
func (d *Deps) Validate() error {
	if d.Analyzer == nil {
		return fmt.Errorf("analyzer is required")
	}
	if d.Store == nil {
		return fmt.Errorf("storage is required")
	}
	if d.Pricing == nil {
		return fmt.Errorf("pricing table is required")
	}
	return nil
}

type handlers struct {
	deps   Deps
	logger *slog.Logger
}

// NewRouter builds the chi router serving the API.
func NewRouter(deps Deps) (http.Handler, error) {
	if err := deps.Validate(); err != nil {
		return nil, err
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{deps: deps, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusNotFound, "route_not_found", fmt.Sprintf("no route for %s", req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed",
			fmt.Sprintf("method %s not allowed on %s", req.Method, req.URL.Path))
	})

	r.Get("/healthz", h.healthz)
	r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(defaultRequestTimeout))

		r.Post("/analyses/plans", h.analyzePlans)
		r.Post("/analyses/merge", h.mergeExtractions)
		r.Post("/analyses/manual", h.analyzeManual)

		r.Get("/benchmarks", h.benchmarks)

		r.Get("/projects", h.listProjects)
		r.Route("/projects/{projectID}", func(r chi.Router) {
			r.Get("/budget", h.getBudget)
			r.Delete("/budget/categories/{name}", h.deleteCategory)
			r.Put("/budget/categories/{name}/items/{position}", h.updateItem)
			r.Get("/runs", h.listRuns)
			r.Get("/runs/{runID}", h.getRun)
		})
	})

	return r, nil
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestLogger logs one line per request with its status and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()))
		})
	}
}

// Serve runs srv until ctx is canceled, then shuts down within
// shutdownTimeout. A server with certificates in its TLSConfig serves HTTPS.
func Serve(ctx context.Context, srv *http.Server, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		var err error
		if srv.TLSConfig != nil && len(srv.TLSConfig.Certificates) > 0 {
			slog.Info("HTTPS API listening", "address", srv.Addr)
			err = srv.ListenAndServeTLS("", "")
		} else {
			slog.Info("HTTP API listening", "address", srv.Addr)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("Shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down HTTP API: %w", err)
	}
	return <-errCh
}
