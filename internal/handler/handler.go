package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/roda-fin/credit-service/internal/amortization"
	"github.com/roda-fin/credit-service/internal/integrations/cbr"
	"github.com/roda-fin/credit-service/internal/integrations/userdir"
	"github.com/roda-fin/credit-service/internal/lifecycle"
	"github.com/roda-fin/credit-service/internal/middleware"
	"github.com/roda-fin/credit-service/internal/repository"
	"github.com/roda-fin/credit-service/internal/service"
)

// Handler exposes the credit engine over HTTP
type Handler struct {
	credits  *service.CreditService
	payments *service.PaymentService
	rates    *cbr.Client
	users    *userdir.Client
	log      *logrus.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	credits *service.CreditService,
	payments *service.PaymentService,
	rates *cbr.Client,
	users *userdir.Client,
	log *logrus.Logger,
) *Handler {
	return &Handler{
		credits:  credits,
		payments: payments,
		rates:    rates,
		users:    users,
		log:      log,
	}
}

// Health reports service liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// KeyRate returns the current key rate including the bank margin
func (h *Handler) KeyRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.GetKeyRate()
	if err != nil {
		h.respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{"key_rate": rate})
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// respondError maps domain errors to HTTP status codes
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repository.ErrCreditNotFound),
		errors.Is(err, repository.ErrInstallmentNotFound),
		errors.Is(err, userdir.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrNotOwner):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidState),
		errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, amortization.ErrInvalidInput),
		errors.Is(err, lifecycle.ErrUnknownStatus):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.log.WithError(err).Error("Request failed")
		respondJSON(w, status, map[string]string{"error": "internal server error"})
		return
	}
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func badRequest(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, map[string]string{"error": message})
}

// pathID extracts a numeric path variable
func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

// pagination reads limit/offset query parameters with sane bounds
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}
	if limit > 100 {
		limit = 100
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}

// isAdmin checks the token's role claim and falls back to the user directory
func (h *Handler) isAdmin(r *http.Request) bool {
	if middleware.Role(r.Context()) == "admin" {
		return true
	}
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		return false
	}
	user, err := h.users.GetUser(r.Context(), userID)
	if err != nil {
		h.log.WithError(err).Warnf("Could not verify role for user %s", userID)
		return false
	}
	return user.IsPrivileged()
}
