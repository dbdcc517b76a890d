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
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-etl/internal/etl/dataset"
	"github.com/sells-group/market-etl/internal/model"
	"github.com/sells-group/market-etl/internal/monitoring"
	"github.com/sells-group/market-etl/internal/store"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the pipeline HTTP API",
	Long: `Starts an HTTP server exposing run history, per-dataset health, and an
endpoint for triggering transformations. A background checker evaluates
dataset health on an interval and posts alerts to the configured webhook.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		if err := cfg.Validate("pipeline"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		sess, err := newSession("", "")
		if err != nil {
			return err
		}
		defer sess.Close() //nolint:errcheck

		reg, err := dataset.NewRegistry(cfg)
		if err != nil {
			return err
		}

		engine := dataset.NewEngine(sess, st, reg)
		collector := monitoring.NewCollector(st, reg.Names())

		checker := monitoring.NewChecker(collector, monitoring.NewAlerter(cfg.Monitor), cfg.Monitor)
		go checker.Run(ctx)

		addr := serveAddr
		if addr == "" {
			addr = cfg.Serve.Addr
		}

		return startServer(ctx, addr, buildRouter(st, engine, reg, collector))
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (defaults to serve.addr from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter assembles the API routes.
func buildRouter(st store.Store, engine *dataset.Engine, reg *dataset.Registry, collector *monitoring.Collector) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/runs", handleListRuns(st))
		r.Get("/runs/{id}", handleGetRun(st))
		r.Get("/status", handleStatus(collector))
		r.Post("/datasets/{name}/run", handleTriggerRun(engine, reg))
	})

	return r
}

func handleListRuns(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 50
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		runs, err := st.ListRuns(r.Context(), store.RunFilter{
			Dataset: r.URL.Query().Get("dataset"),
			Status:  model.RunStatus(r.URL.Query().Get("status")),
			Limit:   limit,
		})
		if err != nil {
			zap.L().Error("api: list runs", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "list runs failed")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
	}
}

func handleGetRun(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		run, err := st.GetRun(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "run not found")
				return
			}
			zap.L().Error("api: get run", zap.String("run_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "get run failed")
			return
		}

		writeJSON(w, http.StatusOK, run)
	}
}

func handleStatus(collector *monitoring.Collector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := collector.Collect(r.Context())
		if err != nil {
			zap.L().Error("api: collect status", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "collect status failed")
			return
		}

		writeJSON(w, http.StatusOK, snap)
	}
}

func handleTriggerRun(engine *dataset.Engine, reg *dataset.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")

		ds, err := reg.Get(name)
		if err != nil {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}

		id, err := engine.RunAsync(r.Context(), ds)
		if err != nil {
			zap.L().Error("api: trigger run", zap.String("dataset", name), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "start run failed")
			return
		}

		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id":  id,
			"dataset": name,
			"status":  "accepted",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("api: encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs each request with its latency and response size.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		zap.L().Info("api request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

// startServer runs the HTTP server until ctx is cancelled, then shuts it
// down gracefully.
func startServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down api")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			zap.L().Error("api shutdown failed", zap.Error(err))
		}
	}()

	zap.L().Info("api listening", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return eris.Wrap(err, "serve: listen")
	}
	return nil
}
