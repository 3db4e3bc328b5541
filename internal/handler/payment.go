package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	validator "github.com/avrebarra/minivalidator"
	"github.com/shopspring/decimal"

	"github.com/roda-fin/credit-service/internal/middleware"
	"github.com/roda-fin/credit-service/internal/models"
)

// PaymentRequest is the body of POST /payments
type PaymentRequest struct {
	CreditID      int64           `json:"credit_id" validate:"required"`
	Amount        decimal.Decimal `json:"amount" validate:"required"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description"`
}

// PayInstallmentRequest is the optional body of POST /installments/{id}/pay
type PayInstallmentRequest struct {
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// CreatePayment applies a payment to one of the caller's credits
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	if err := validator.Validate(req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = "manual"
	}

	payment, err := h.payments.CreatePayment(r.Context(), userID, req.CreditID, req.Amount, req.PaymentMethod, req.Description)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// GetCreditPayments lists payments applied to one credit
func (h *Handler) GetCreditPayments(w http.ResponseWriter, r *http.Request) {
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

	limit, offset := pagination(r)
	payments, err := h.payments.GetCreditPayments(r.Context(), userID, creditID, limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	respondJSON(w, http.StatusOK, payments)
}

// GetPayments lists payments across all of the caller's credits
func (h *Handler) GetPayments(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	limit, offset := pagination(r)
	payments, err := h.payments.GetUserPayments(r.Context(), userID, limit, offset)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	respondJSON(w, http.StatusOK, payments)
}

// PaymentSummary aggregates payment activity, optionally for one credit
func (h *Handler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var creditID *int64
	if raw := r.URL.Query().Get("credit_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(w, "invalid credit_id")
			return
		}
		creditID = &id
	}

	summary, err := h.payments.Summary(r.Context(), userID, creditID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// PayInstallment marks a schedule installment as paid
func (h *Handler) PayInstallment(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	installmentID, err := pathID(r, "id")
	if err != nil {
		badRequest(w, "invalid installment id")
		return
	}

	var req PayInstallmentRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}

	inst, err := h.payments.MarkInstallmentPaid(r.Context(), userID, installmentID, req.PaidAt)
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, inst)
}
