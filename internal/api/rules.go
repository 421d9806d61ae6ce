package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// ListRules retrieves all fraud rules.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.ListRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"count": len(rules),
	})
}

// ListActiveRules retrieves only the active fraud rules.
func (h *Handler) ListActiveRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.ListActiveRules(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule retrieves a fraud rule by ID.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.repo.GetRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// CreateRule creates a new fraud rule. Expression rules are compiled up
// front so broken expressions never reach the evaluator.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var rule domain.FraudRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := rule.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if rule.RuleType == domain.RuleExpression {
		if err := h.evaluator.ValidateExpression(rule.Expression); err != nil {
			writeError(w, err)
			return
		}
	}

	now := time.Now().UTC()
	rule.ID = uuid.New().String()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := h.repo.SaveRule(r.Context(), &rule); err != nil {
		writeError(w, err)
		return
	}

	h.invalidateRules(r.Context())

	slog.Info("rule created", "rule_id", rule.ID, "rule_name", rule.RuleName, "rule_type", rule.RuleType)
	writeJSON(w, http.StatusCreated, rule)
}

// UpdateRule replaces an existing fraud rule.
func (h *Handler) UpdateRule(w http.ResponseWriter, r *http.Request) {
	existing, err := h.repo.GetRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	var rule domain.FraudRule
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if err := rule.Validate(); err != nil {
		writeError(w, err)
		return
	}
	if rule.RuleType == domain.RuleExpression {
		if err := h.evaluator.ValidateExpression(rule.Expression); err != nil {
			writeError(w, err)
			return
		}
	}

	rule.ID = existing.ID
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()

	if err := h.repo.SaveRule(r.Context(), &rule); err != nil {
		writeError(w, err)
		return
	}

	h.invalidateRules(r.Context())

	slog.Info("rule updated", "rule_id", rule.ID, "rule_name", rule.RuleName)
	writeJSON(w, http.StatusOK, rule)
}

// ToggleRule flips a rule's active flag.
func (h *Handler) ToggleRule(w http.ResponseWriter, r *http.Request) {
	rule, err := h.repo.GetRule(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	rule.Active = !rule.Active
	rule.UpdatedAt = time.Now().UTC()

	if err := h.repo.SaveRule(r.Context(), rule); err != nil {
		writeError(w, err)
		return
	}

	h.invalidateRules(r.Context())

	slog.Info("rule toggled", "rule_id", rule.ID, "rule_name", rule.RuleName, "active", rule.Active)
	writeJSON(w, http.StatusOK, rule)
}

// DeleteRule removes a fraud rule.
func (h *Handler) DeleteRule(w http.ResponseWriter, r *http.Request) {
	ruleID := chi.URLParam(r, "id")

	if err := h.repo.DeleteRule(r.Context(), ruleID); err != nil {
		writeError(w, err)
		return
	}

	h.invalidateRules(r.Context())

	slog.Info("rule deleted", "rule_id", ruleID)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "rule deleted",
	})
}
