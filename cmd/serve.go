package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/atelier-ops/orderdesk/internal/engine"
	"github.com/atelier-ops/orderdesk/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env.Engine),
		}

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})

		g.Go(func() error {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		if !cfg.Sync.DisableAuto {
			g.Go(func() error { return runFullRefreshLoop(ctx, env.Engine) })
			g.Go(func() error { return runQuickSyncLoop(ctx, env.Engine) })
		} else {
			zap.L().Info("automatic sync schedulers disabled")
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// runFullRefreshLoop performs a full refresh on startup and then on the
// configured interval.
func runFullRefreshLoop(ctx context.Context, eng *engine.Engine) error {
	if _, err := eng.RefreshFull(ctx); err != nil {
		zap.L().Warn("startup full refresh failed", zap.Error(err))
	}

	ticker := time.NewTicker(time.Duration(cfg.Sync.FullIntervalMins) * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := eng.RefreshFull(ctx); err != nil {
				zap.L().Warn("scheduled full refresh failed", zap.Error(err))
			}
		}
	}
}

// runQuickSyncLoop starts the latest-N quick sync after a short delay
// and repeats it on the configured interval.
func runQuickSyncLoop(ctx context.Context, eng *engine.Engine) error {
	select {
	case <-ctx.Done():
		return nil
	case <-time.After(time.Duration(cfg.Sync.QuickDelayMins) * time.Minute):
	}

	ticker := time.NewTicker(time.Duration(cfg.Sync.QuickIntervalMins) * time.Minute)
	defer ticker.Stop()
	for {
		if _, err := eng.SyncLatest(ctx); err != nil {
			zap.L().Warn("quick sync failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func newRouter(eng *engine.Engine) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Role"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, eng.Status())
		})

		r.Get("/orders", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, eng.BuildView())
		})

		r.Get("/dashboard/orders-stats", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, eng.Summarize(req.Context(), eng.BuildView()))
		})

		r.Post("/orders/refresh", func(w http.ResponseWriter, req *http.Request) {
			count, err := eng.Reset(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"status":          "success",
				"message":         "orders cache cleared and refreshed from sheet",
				"records_fetched": count,
			})
		})

		r.Post("/orders/refresh-cron", func(w http.ResponseWriter, req *http.Request) {
			if !isLoopback(req) {
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "cron refresh is local-only"})
				return
			}
			count, err := eng.Reset(req.Context())
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"status": "success", "records_fetched": count})
		})

		r.Post("/orders/sync", func(w http.ResponseWriter, req *http.Request) {
			mode := req.URL.Query().Get("mode")
			result, err := runSyncMode(req.Context(), eng, mode)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, result)
		})

		r.Put("/orders/{transaction}/edit", func(w http.ResponseWriter, req *http.Request) {
			var updates model.Order
			if err := json.NewDecoder(req.Body).Decode(&updates); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			transaction := chi.URLParam(req, "transaction")
			fields, err := eng.EditOrder(req.Context(), transaction, updates, isPrivileged(req))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"success":        true,
				"message":        fmt.Sprintf("transaction %s updated", transaction),
				"updated_fields": fields,
			})
		})

		r.Post("/orders/manual", func(w http.ResponseWriter, req *http.Request) {
			var payload model.Order
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			order, err := eng.CreateManual(req.Context(), payload)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, order)
		})

		r.Put("/orders/manual/{manualID}", func(w http.ResponseWriter, req *http.Request) {
			var updates model.Order
			if err := json.NewDecoder(req.Body).Decode(&updates); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
			order, err := eng.UpdateManual(req.Context(), chi.URLParam(req, "manualID"), updates)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, order)
		})

		r.Delete("/orders/manual/{manualID}", func(w http.ResponseWriter, req *http.Request) {
			err := eng.DeleteManual(req.Context(), chi.URLParam(req, "manualID"), isPrivileged(req))
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		})

		r.Get("/orders/sequence", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string][]string{"sequence": eng.Sequence()})
		})

		r.Put("/orders/sequence", func(w http.ResponseWriter, req *http.Request) {
			var payload struct {
				Sequence []string `json:"sequence"`
			}
			if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "sequence must be a list"})
				return
			}
			if err := eng.SetSequence(payload.Sequence, isPrivileged(req)); err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string][]string{"sequence": eng.Sequence()})
		})
	})

	return r
}

func runSyncMode(ctx context.Context, eng *engine.Engine, mode string) (map[string]any, error) {
	switch mode {
	case "full":
		count, err := eng.RefreshFull(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"mode": "full", "records": count}, nil
	case "incremental":
		changed, err := eng.RefreshIncremental(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"mode": "incremental", "changed": changed}, nil
	default:
		applied, err := eng.SyncLatest(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"mode": "quick", "applied": applied}, nil
	}
}

// isPrivileged reports whether the request carries the admin role.
// Authentication itself lives in front of this service; the header is
// the hook point for the privileged mutations.
func isPrivileged(req *http.Request) bool {
	return req.Header.Get("X-Role") == "admin"
}

// isLoopback restricts the cron endpoint to local callers.
func isLoopback(req *http.Request) bool {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		host = req.RemoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("response encode failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
	case errors.Is(err, engine.ErrPrivilege):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "admin privileges required"})
	case errors.Is(err, engine.ErrNoData):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "sheet feed returned no rows"})
	default:
		zap.L().Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
