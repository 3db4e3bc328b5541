package handler

import (
	"encoding/json"
	"net/http"

	validator "github.com/avrebarra/minivalidator"
	"github.com/shopspring/decimal"

	"github.com/roda-fin/credit-service/internal/integrations/userdir"
	"github.com/roda-fin/credit-service/internal/middleware"
	"github.com/roda-fin/credit-service/internal/models"
)

// CreateCreditRequest is the body of POST /credits
type CreateCreditRequest struct {
	Amount       decimal.Decimal  `json:"amount" validate:"required"`
	InterestRate *decimal.Decimal `json:"interest_rate,omitempty"`
	TermMonths   int              `json:"term_months" validate:"required"`
}

// UpdateStatusRequest is the body of PUT /credits/{id}/status
type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type creditResponse struct {
	Credit   *models.Credit       `json:"credit"`
	Schedule []models.Installment `json:"payment_schedule,omitempty"`
}

// CreateCredit handles credit requests; the schedule is generated up front
func (h *Handler) CreateCredit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CreateCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := validator.Validate(req); err != nil {
		badRequest(w, err.Error())
		return
	}

	// A credit can only be opened for a user the directory knows.
	exists, err := h.users.Exists(r.Context(), userID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if !exists {
		h.respondError(w, userdir.ErrUserNotFound)
		return
	}

	credit, schedule, err := h.credits.Create(r.Context(), userID, req.Amount, req.InterestRate, req.TermMonths)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, creditResponse{Credit: credit, Schedule: schedule})
}

// GetCredits lists the caller's credits
func (h *Handler) GetCredits(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, offset := pagination(r)
	credits, err := h.credits.GetUserCredits(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if credits == nil {
		credits = []models.Credit{}
	}
	respondJSON(w, http.StatusOK, credits)
}

// GetCredit returns one credit with its schedule
func (h *Handler) GetCredit(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	creditID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid credit id")
		return
	}

	credit, schedule, err := h.credits.GetWithSchedule(r.Context(), creditID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if credit.UserID != userID && !h.isAdmin(r) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}
	respondJSON(w, http.StatusOK, creditResponse{Credit: credit, Schedule: schedule})
}

// UpdateCreditStatus is the administrative status override
func (h *Handler) UpdateCreditStatus(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "admin role required"})
		return
	}
	creditID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid credit id")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := validator.Validate(req); err != nil {
		badRequest(w, err.Error())
		return
	}

	credit, err := h.credits.UpdateStatus(r.Context(), creditID, req.Status)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, credit)
}

// ApproveCredit activates a pending credit
func (h *Handler) ApproveCredit(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "admin role required"})
		return
	}
	creditID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid credit id")
		return
	}

	credit, err := h.credits.Approve(r.Context(), creditID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, credit)
}

// RejectCredit declines a pending credit
func (h *Handler) RejectCredit(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "admin role required"})
		return
	}
	creditID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid credit id")
		return
	}

	credit, err := h.credits.Reject(r.Context(), creditID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, credit)
}

// CreditSummary returns the paid/pending/overdue breakdown of one credit
func (h *Handler) CreditSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	creditID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid credit id")
		return
	}

	credit, _, err := h.credits.GetWithSchedule(r.Context(), creditID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if credit.UserID != userID && !h.isAdmin(r) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	summary, err := h.credits.Summary(r.Context(), creditID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// CheckCreditStatus forces a re-evaluation of the credit's status
func (h *Handler) CheckCreditStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	creditID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid credit id")
		return
	}

	credit, _, err := h.credits.GetWithSchedule(r.Context(), creditID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if credit.UserID != userID && !h.isAdmin(r) {
		respondJSON(w, http.StatusForbidden, map[string]string{"error": "access denied"})
		return
	}

	status, err := h.credits.CheckStatus(r.Context(), creditID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"credit_id": creditID, "status": status})
}
