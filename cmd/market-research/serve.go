// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/market-research/internal/archive"
	"github.com/pdiddy/market-research/internal/metrics"
	"github.com/pdiddy/market-research/internal/research"
	"github.com/pdiddy/market-research/pkg/types"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the research pipeline over HTTP",
	Long: `Serve exposes the pipeline as a JSON API:

  POST /v1/research    {"topic": "..."} runs the pipeline and returns the outcome
  GET  /v1/runs        lists archived runs (?limit=N)
  GET  /v1/runs/{id}   returns one archived run with citations
  GET  /healthz        liveness probe
  GET  /metrics        Prometheus metrics

A research request runs synchronously; closing the connection cancels it.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	addr, _ := cmd.Flags().GetString("addr")

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	p, closeCache, err := buildPipeline(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	var store *archive.Store
	if cfg.Archive.Enabled {
		store, err = openArchive(cfg.Archive)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newAPI(p, store, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
	return nil
}

// runner runs one research request. *research.Pipeline implements it.
type runner interface {
	Run(ctx context.Context, topic string) types.Outcome
}

// api serves the HTTP endpoints. store is nil when the archive is disabled.
type api struct {
	pipeline runner
	store    *archive.Store
	logger   *zap.Logger
}

func newAPI(p runner, store *archive.Store, logger *zap.Logger) *api {
	return &api{pipeline: p, store: store, logger: logger}
}

func (a *api) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(metrics.Middleware())

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/research", a.handleResearch)
		r.Get("/runs", a.handleListRuns)
		r.Get("/runs/{id}", a.handleGetRun)
	})
	return r
}

type researchRequest struct {
	Topic string `json:"topic"`
}

type researchResponse struct {
	RunID   string                `json:"run_id,omitempty"`
	Outcome types.OutcomeKind     `json:"outcome"`
	Status  string                `json:"status"`
	Message string                `json:"message"`
	Report  *types.ResearchReport `json:"report,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *api) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	out := a.pipeline.Run(r.Context(), req.Topic)
	resp := researchResponse{
		Outcome: out.Kind,
		Status:  research.Describe(out),
		Message: out.Message,
		Report:  out.Report,
	}

	if a.store != nil && out.Kind != types.OutcomeInvalidTopic {
		id, err := a.store.Save(context.WithoutCancel(r.Context()), out)
		if err != nil {
			a.logger.Warn("run not archived", zap.Error(err),
				zap.String("request_id", chiMiddleware.GetReqID(r.Context())))
		} else {
			resp.RunID = id
		}
	}

	status := http.StatusOK
	if out.Kind == types.OutcomeInvalidTopic {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, resp)
}

func (a *api) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "archive disabled"})
		return
	}
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	runs, err := a.store.List(r.Context(), limit)
	if err != nil {
		a.logger.Error("listing runs", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	if runs == nil {
		runs = []archive.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (a *api) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if a.store == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "archive disabled"})
		return
	}
	run, err := a.store.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, archive.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "run not found"})
		return
	}
	if err != nil {
		a.logger.Error("loading run", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func init() {
	serveCmd.Flags().String("addr", ":8080", "Listen address")
	rootCmd.AddCommand(serveCmd)
}
