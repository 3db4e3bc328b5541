package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roda-fin/credit-service/internal/config"
	"github.com/roda-fin/credit-service/internal/integrations/userdir"
	"github.com/roda-fin/credit-service/internal/middleware"
	"github.com/roda-fin/credit-service/internal/models"
	"github.com/roda-fin/credit-service/internal/repository"
	"github.com/roda-fin/credit-service/internal/service"
)

type creditRepoStub struct {
	service.CreditRepository

	credit  *models.Credit
	created bool
}

func (s *creditRepoStub) GetByID(ctx context.Context, id int64) (*models.Credit, error) {
	if s.credit == nil {
		return nil, repository.ErrCreditNotFound
	}
	credit := *s.credit
	return &credit, nil
}

func (s *creditRepoStub) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Credit, error) {
	return s.GetByID(ctx, id)
}

func (s *creditRepoStub) Create(ctx context.Context, tx *sql.Tx, credit *models.Credit) error {
	credit.ID = 1
	credit.CreatedAt = time.Now()
	credit.UpdatedAt = credit.CreatedAt
	s.created = true
	return nil
}

func (s *creditRepoStub) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status models.CreditStatus, approvedAt *time.Time) error {
	return nil
}

type installmentRepoStub struct {
	service.InstallmentRepository
}

func (s *installmentRepoStub) GetByCredit(ctx context.Context, creditID int64) ([]models.Installment, error) {
	return nil, nil
}

func (s *installmentRepoStub) GetOverdue(ctx context.Context, tx *sql.Tx, creditID int64, now time.Time) ([]models.Installment, error) {
	return nil, nil
}

func (s *installmentRepoStub) Create(ctx context.Context, tx *sql.Tx, inst *models.Installment) error {
	return nil
}

func (s *installmentRepoStub) DeleteByCredit(ctx context.Context, tx *sql.Tx, creditID int64) error {
	return nil
}

type txRunnerStub struct{}

func (txRunnerStub) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type keyRateStub struct{}

func (keyRateStub) GetKeyRate() (float64, error) {
	return 17.5, nil
}

func signToken(t *testing.T, secret string, userID uuid.UUID, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

// newTestRouter wires real services over stub repositories behind the auth
// middleware, with the user directory faked by an httptest server.
func newTestRouter(t *testing.T, credit *models.Credit, directory http.HandlerFunc) (*mux.Router, *creditRepoStub, *config.Config) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	dir := httptest.NewServer(directory)
	t.Cleanup(dir.Close)

	cfg := &config.Config{
		JWTSecret:      "test-secret",
		UserServiceURL: dir.URL,
		ServiceToken:   "test-token",
	}

	credits := &creditRepoStub{credit: credit}
	installments := &installmentRepoStub{}
	creditSvc := service.NewCreditService(credits, installments, txRunnerStub{}, keyRateStub{}, log)
	paymentSvc := service.NewPaymentService(credits, installments, nil, txRunnerStub{}, nil, log)
	users := userdir.NewClient(cfg, log)
	h := NewHandler(creditSvc, paymentSvc, nil, users, log)

	r := mux.NewRouter()
	auth := r.PathPrefix("/").Subrouter()
	auth.Use(middleware.AuthMiddleware(cfg))
	auth.HandleFunc("/credits", h.CreateCredit).Methods("POST")
	auth.HandleFunc("/credits/{id:[0-9]+}/check-status", h.CheckCreditStatus).Methods("GET")
	return r, credits, cfg
}

func knownUser(id uuid.UUID, role string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]userdir.User{
			"data": {ID: id, Email: "holder@example.com", Role: role},
		})
	}
}

func unknownUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}
}

func TestCheckCreditStatusAccess(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	credit := &models.Credit{
		ID:               7,
		UserID:           owner,
		Status:           models.CreditStatusActive,
		RemainingBalance: decimal.NewFromInt(500),
	}

	t.Run("owner can trigger re-evaluation", func(t *testing.T) {
		router, _, cfg := newTestRouter(t, credit, knownUser(owner, "user"))

		req := httptest.NewRequest("GET", "/credits/7/check-status", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, cfg.JWTSecret, owner, "user"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, string(models.CreditStatusActive), body["status"])
	})

	t.Run("stranger is denied", func(t *testing.T) {
		router, _, cfg := newTestRouter(t, credit, knownUser(stranger, "user"))

		req := httptest.NewRequest("GET", "/credits/7/check-status", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, cfg.JWTSecret, stranger, "user"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin may act on another user's credit", func(t *testing.T) {
		router, _, cfg := newTestRouter(t, credit, knownUser(stranger, "admin"))

		req := httptest.NewRequest("GET", "/credits/7/check-status", nil)
		req.Header.Set("Authorization", "Bearer "+signToken(t, cfg.JWTSecret, stranger, "admin"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestCreateCreditRequiresKnownUser(t *testing.T) {
	userID := uuid.New()
	body := func() *bytes.Buffer {
		raw, _ := json.Marshal(CreateCreditRequest{
			Amount:     decimal.NewFromInt(12000),
			TermMonths: 12,
		})
		return bytes.NewBuffer(raw)
	}

	t.Run("rejects a user the directory does not know", func(t *testing.T) {
		router, credits, cfg := newTestRouter(t, nil, unknownUser())

		req := httptest.NewRequest("POST", "/credits", body())
		req.Header.Set("Authorization", "Bearer "+signToken(t, cfg.JWTSecret, userID, "user"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.False(t, credits.created, "no credit persisted for an unknown user")
	})

	t.Run("creates a credit for a known user", func(t *testing.T) {
		router, credits, cfg := newTestRouter(t, nil, knownUser(userID, "user"))

		req := httptest.NewRequest("POST", "/credits", body())
		req.Header.Set("Authorization", "Bearer "+signToken(t, cfg.JWTSecret, userID, "user"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.True(t, credits.created)
	})
}
