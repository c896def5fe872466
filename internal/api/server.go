// Package api exposes the bot registry, feed and dashboard over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xaenox/botfleet/internal/admission"
	"github.com/xaenox/botfleet/internal/botconfig"
	"github.com/xaenox/botfleet/internal/models"
	"github.com/xaenox/botfleet/internal/registry"
	"github.com/xaenox/botfleet/internal/stats"
	"github.com/xaenox/botfleet/internal/storage"
	"go.uber.org/zap"
)

const (
	OwnerHeader = "X-Owner-ID"
	PlanHeader  = "X-Owner-Plan"

	defaultListLimit = 20
	maxListLimit     = 100
)

type Server struct {
	registry *registry.Registry
	feed     storage.FeedStorage
	stats    *stats.Aggregator
	logger   *zap.Logger
	now      func() time.Time
}

func NewServer(reg *registry.Registry, feed storage.FeedStorage, agg *stats.Aggregator, logger *zap.Logger) *Server {
	return &Server{
		registry: reg,
		feed:     feed,
		stats:    agg,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/bots", func(r chi.Router) {
			r.Use(requireOwner)
			r.Get("/", s.handleListBots)
			r.Post("/", s.handleCreateBot)
			r.Get("/{id}", s.handleGetBot)
			r.Patch("/{id}", s.handleUpdateBot)
			r.Delete("/{id}", s.handleRetireBot)
		})
		r.Get("/activities", s.handleActivities)
		r.Get("/posts", s.handlePosts)
		r.Get("/posts/{id}/comments", s.handleComments)
		r.Get("/dashboard/stats", s.handleDashboard)
	})
	return r
}

func requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(OwnerHeader) == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing " + OwnerHeader + " header"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func ownerFrom(r *http.Request) registry.Owner {
	return registry.Owner{
		ID:   r.Header.Get(OwnerHeader),
		Plan: admission.ParsePlan(r.Header.Get(PlanHeader)),
	}
}

type errorBody struct {
	Error   string `json:"error"`
	Upgrade bool   `json:"upgrade,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto status codes. Anything unrecognized is logged and
// reported as a 500 without detail.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr  *botconfig.ValidationError
		quota *admission.QuotaExceededError
	)
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: verr.Error()})
	case errors.As(err, &quota):
		writeJSON(w, http.StatusPaymentRequired, errorBody{Error: quota.Error(), Upgrade: true})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	default:
		s.logger.Error("Request failed",
			zap.Error(err),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

// listLimit reads the limit query parameter, clamping it to maxListLimit.
func listLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultListLimit, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, &botconfig.ValidationError{Field: "limit", Reason: "must be a positive integer"}
	}
	return min(n, maxListLimit), nil
}
