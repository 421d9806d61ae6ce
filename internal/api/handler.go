package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/opensource-finance/kestrel/internal/domain"
	"github.com/opensource-finance/kestrel/internal/intake"
	"github.com/opensource-finance/kestrel/internal/rules"
)

// RuleCacheInvalidator drops any cached active rule set. Every rule
// mutation goes through it so the next analysis sees the change.
type RuleCacheInvalidator interface {
	Invalidate(ctx context.Context) error
}

// Handler holds dependencies for API handlers.
type Handler struct {
	repo      domain.Repository
	intake    *intake.Service
	evaluator *rules.Evaluator
	ruleCache RuleCacheInvalidator
	cache     domain.Cache
	bus       domain.EventBus
	version   string
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, intakeSvc *intake.Service, evaluator *rules.Evaluator, ruleCache RuleCacheInvalidator, cache domain.Cache, bus domain.EventBus, version string) *Handler {
	return &Handler{
		repo:      repo,
		intake:    intakeSvc,
		evaluator: evaluator,
		ruleCache: ruleCache,
		cache:     cache,
		bus:       bus,
		version:   version,
	}
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	// Check repository health
	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check cache health
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	// Check bus health
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

// invalidateRules drops the cached rule set after a rule mutation.
func (h *Handler) invalidateRules(ctx context.Context) {
	if h.ruleCache == nil {
		return
	}
	if err := h.ruleCache.Invalidate(ctx); err != nil {
		slog.Error("failed to invalidate rule cache", "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
