package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/topbeat/reconcile-cli/internal/model"
	"github.com/topbeat/reconcile-cli/internal/reconcile"
	"github.com/topbeat/reconcile-cli/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only query API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
			Handler: newAPIRouter(env.Store),
		}

		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("query API listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func newAPIRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/orders", handleListOrders(st))
		r.Get("/orders/{key}", handleGetOrder(st))
		r.Get("/orders/{key}/decisions", handleOrderDecisions(st))
		r.Get("/orders/{key}/flags", handleOrderFlags(st))
		r.Get("/flags", handleListFlags(st))
		r.Post("/flags/{id}/resolve", handleResolveFlag(st))
		r.Get("/review", handleListReview(st))
		r.Get("/batches", handleListBatches(st))
		r.Get("/metrics", handleMetrics(st))
	})

	return r
}

func handleListOrders(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.UnifiedFilter{
			Stage:         model.Stage(q.Get("stage")),
			DeliveryClass: model.DeliveryClass(q.Get("delivery_class")),
			PaymentClass:  model.PaymentClass(q.Get("payment_class")),
			Revenue:       model.RevenueCategory(q.Get("revenue")),
			Phone:         q.Get("phone"),
			Email:         q.Get("email"),
			OrderedFrom:   queryTime(q.Get("ordered_from")),
			OrderedTo:     queryTime(q.Get("ordered_to")),
			Flagged:       queryBool(q.Get("flagged")),
			Limit:         queryInt(q.Get("limit"), 100),
			Offset:        queryInt(q.Get("offset"), 0),
		}

		orders, err := st.QueryUnified(r.Context(), filter)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"orders": orders, "count": len(orders)})
	}
}

func handleGetOrder(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		u, err := st.GetUnified(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, u)
	}
}

func handleOrderDecisions(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		decisions, err := st.ListDecisions(r.Context(), chi.URLParam(r, "key"))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"decisions": decisions})
	}
}

func handleOrderFlags(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		found, err := st.ListFlags(r.Context(), store.FlagFilter{OrderKey: chi.URLParam(r, "key")})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"flags": found})
	}
}

func handleListFlags(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := store.FlagFilter{
			Family:   model.FlagFamily(q.Get("family")),
			Severity: model.Severity(q.Get("severity")),
			Limit:    queryInt(q.Get("limit"), 100),
			Offset:   queryInt(q.Get("offset"), 0),
		}
		filter.Resolved = queryBool(q.Get("resolved"))

		found, err := st.ListFlags(r.Context(), filter)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"flags": found, "count": len(found)})
	}
}

func handleResolveFlag(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ResolvedBy string `json:"resolved_by"`
			Note       string `json:"note"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ResolvedBy == "" {
			respondJSON(w, http.StatusBadRequest, map[string]string{"error": "resolved_by is required"})
			return
		}

		if err := st.ResolveFlag(r.Context(), chi.URLParam(r, "id"), req.ResolvedBy, req.Note); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "resolved"})
	}
}

func handleListReview(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := st.ListReview(r.Context(), queryInt(r.URL.Query().Get("limit"), 100))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
	}
}

func handleListBatches(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		batches, err := st.ListBatches(r.Context(), queryInt(r.URL.Query().Get("limit"), 20))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"batches": batches})
	}
}

func handleMetrics(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unified, err := st.QueryUnified(r.Context(), store.UnifiedFilter{})
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, reconcile.Summarize(unified))
	}
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	zap.L().Error("request failed", zap.Error(err))
	respondJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

func queryBool(raw string) *bool {
	switch raw {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}

// queryTime accepts RFC3339 or a bare date; a bare date means midnight UTC.
func queryTime(raw string) *time.Time {
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
