package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// CreateTransaction handles POST /api/transactions: it persists the
// transaction and analyzes it in the same request.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	tx, err := h.intake.CreateAndAnalyze(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tx)
}

// GetTransaction retrieves a transaction by ID.
func (h *Handler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "id")

	tx, err := h.repo.GetTransaction(r.Context(), txID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// ReanalyzeTransaction handles POST /api/transactions/{id}/reanalyze:
// it re-runs analysis against the current rule set and overwrites the
// stored outcome.
func (h *Handler) ReanalyzeTransaction(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "id")

	tx, err := h.intake.Reanalyze(r.Context(), txID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}

// ListTransactionsByStatus retrieves transactions by fraud status.
func (h *Handler) ListTransactionsByStatus(w http.ResponseWriter, r *http.Request) {
	status := domain.FraudStatus(chi.URLParam(r, "status"))
	if !status.Valid() {
		writeError(w, fmt.Errorf("%w: unknown fraud status %q", domain.ErrValidation, status))
		return
	}

	transactions, err := h.repo.ListTransactionsByStatus(r.Context(), status)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// ListRecentTransactionsByUser retrieves a user's transactions from the
// trailing window given by the minutes query parameter (default 60).
func (h *Handler) ListRecentTransactionsByUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")

	minutes := 60
	if raw := r.URL.Query().Get("minutes"); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &minutes); err != nil || minutes <= 0 {
			writeError(w, fmt.Errorf("%w: minutes must be a positive integer", domain.ErrValidation))
			return
		}
	}

	since := time.Now().UTC().Add(-time.Duration(minutes) * time.Minute)
	transactions, err := h.repo.ListRecentTransactionsByUser(r.Context(), userID, since)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// statusOverrideRequest is the body for PUT /api/transactions/{id}/status.
type statusOverrideRequest struct {
	FraudStatus domain.FraudStatus `json:"fraudStatus"`
}

// OverrideTransactionStatus sets a transaction's fraud status directly,
// for manual review decisions.
func (h *Handler) OverrideTransactionStatus(w http.ResponseWriter, r *http.Request) {
	txID := chi.URLParam(r, "id")

	var req statusOverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	if !req.FraudStatus.Valid() {
		writeError(w, fmt.Errorf("%w: unknown fraud status %q", domain.ErrValidation, req.FraudStatus))
		return
	}

	if err := h.repo.UpdateTransactionStatus(r.Context(), txID, req.FraudStatus); err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.repo.GetTransaction(r.Context(), txID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tx)
}
