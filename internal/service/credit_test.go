package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roda-fin/credit-service/internal/amortization"
	"github.com/roda-fin/credit-service/internal/lifecycle"
	"github.com/roda-fin/credit-service/internal/models"
	"github.com/roda-fin/credit-service/internal/repository"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newCreditService(credits *creditRepoStub, installments *installmentRepoStub, rates KeyRateProvider) *CreditService {
	if rates == nil {
		rates = keyRateStub{rate: 20}
	}
	return NewCreditService(credits, installments, txRunnerStub{}, rates, testLogger())
}

func TestCreateCredit(t *testing.T) {
	userID := uuid.New()

	t.Run("creates pending credit with full schedule", func(t *testing.T) {
		credits := &creditRepoStub{}
		installments := &installmentRepoStub{}
		svc := newCreditService(credits, installments, nil)

		credit, schedule, err := svc.Create(context.Background(), userID, dec("12000"), decPtr("12"), 12)
		require.NoError(t, err)

		assert.Equal(t, models.CreditStatusPending, credit.Status)
		assert.Equal(t, userID, credit.UserID)
		assert.Equal(t, "1066.19", credit.MonthlyPayment.StringFixed(2))
		assert.Equal(t, "12000.00", credit.RemainingBalance.StringFixed(2))
		assert.Nil(t, credit.ApprovedAt)

		require.Len(t, schedule, 12)
		require.Len(t, installments.created, 12)
		assert.Equal(t, credit.ID, installments.deletedCredit, "prior schedule must be replaced")

		sum := decimal.Zero
		for i, inst := range schedule {
			assert.Equal(t, i+1, inst.Number)
			assert.Equal(t, credit.ID, inst.CreditID)
			sum = sum.Add(inst.PrincipalAmount)
		}
		assert.True(t, sum.Equal(dec("12000")))
	})

	t.Run("falls back to the key rate when no rate is supplied", func(t *testing.T) {
		credits := &creditRepoStub{}
		svc := newCreditService(credits, &installmentRepoStub{}, keyRateStub{rate: 17.5})

		credit, _, err := svc.Create(context.Background(), userID, dec("5000"), nil, 6)
		require.NoError(t, err)
		assert.Equal(t, "17.50", credit.InterestRate.StringFixed(2))
	})

	t.Run("rejects invalid amortization input", func(t *testing.T) {
		credits := &creditRepoStub{}
		installments := &installmentRepoStub{}
		svc := newCreditService(credits, installments, nil)

		_, _, err := svc.Create(context.Background(), userID, dec("-100"), decPtr("12"), 12)
		require.ErrorIs(t, err, amortization.ErrInvalidInput)
		assert.Nil(t, credits.created)
		assert.Empty(t, installments.created)
	})
}

func TestApproveCredit(t *testing.T) {
	t.Run("activates a pending credit and records approval time", func(t *testing.T) {
		credits := &creditRepoStub{credit: &models.Credit{ID: 1, Status: models.CreditStatusPending}}
		svc := newCreditService(credits, &installmentRepoStub{}, nil)

		credit, err := svc.Approve(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.CreditStatusActive, credit.Status)
		require.NotNil(t, credit.ApprovedAt)
		require.NotNil(t, credits.updatedStatus)
		assert.Equal(t, models.CreditStatusActive, *credits.updatedStatus)
		assert.NotNil(t, credits.approvedAt)
	})

	t.Run("fails for a non-pending credit", func(t *testing.T) {
		credits := &creditRepoStub{credit: &models.Credit{ID: 1, Status: models.CreditStatusActive}}
		svc := newCreditService(credits, &installmentRepoStub{}, nil)

		_, err := svc.Approve(context.Background(), 1)
		require.ErrorIs(t, err, ErrInvalidState)
		assert.Nil(t, credits.updatedStatus)
	})

	t.Run("fails for a missing credit", func(t *testing.T) {
		svc := newCreditService(&creditRepoStub{}, &installmentRepoStub{}, nil)

		_, err := svc.Approve(context.Background(), 404)
		require.ErrorIs(t, err, repository.ErrCreditNotFound)
	})
}

func TestRejectCredit(t *testing.T) {
	t.Run("rejects a pending credit", func(t *testing.T) {
		credits := &creditRepoStub{credit: &models.Credit{ID: 1, Status: models.CreditStatusPending}}
		svc := newCreditService(credits, &installmentRepoStub{}, nil)

		credit, err := svc.Reject(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.CreditStatusRejected, credit.Status)
		assert.Nil(t, credits.approvedAt)
	})

	t.Run("fails once the credit left pending", func(t *testing.T) {
		credits := &creditRepoStub{credit: &models.Credit{ID: 1, Status: models.CreditStatusRejected}}
		svc := newCreditService(credits, &installmentRepoStub{}, nil)

		_, err := svc.Reject(context.Background(), 1)
		require.ErrorIs(t, err, ErrInvalidState)
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("sets any enumerated value regardless of the transition graph", func(t *testing.T) {
		credits := &creditRepoStub{credit: &models.Credit{
			ID:               1,
			Status:           models.CreditStatusPaid,
			RemainingBalance: dec("100"),
		}}
		svc := newCreditService(credits, &installmentRepoStub{}, nil)

		credit, err := svc.UpdateStatus(context.Background(), 1, "active")
		require.NoError(t, err)
		assert.Equal(t, models.CreditStatusActive, credit.Status)
	})

	t.Run("rejects values outside the enum", func(t *testing.T) {
		credits := &creditRepoStub{credit: &models.Credit{ID: 1, Status: models.CreditStatusActive}}
		svc := newCreditService(credits, &installmentRepoStub{}, nil)

		_, err := svc.UpdateStatus(context.Background(), 1, "frozen")
		require.ErrorIs(t, err, lifecycle.ErrUnknownStatus)
		assert.Nil(t, credits.updatedStatus)
	})
}

func TestCheckStatus(t *testing.T) {
	now := time.Now()

	t.Run("active credit with an overdue installment becomes delinquent", func(t *testing.T) {
		credits := &creditRepoStub{credit: &models.Credit{
			ID:               1,
			Status:           models.CreditStatusActive,
			RemainingBalance: dec("500"),
		}}
		installments := &installmentRepoStub{overdue: []models.Installment{
			{ID: 1, CreditID: 1, DueDate: now.Add(-24 * time.Hour)},
		}}
		svc := newCreditService(credits, installments, nil)

		status, err := svc.CheckStatus(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.CreditStatusDelinquent, status)
		require.NotNil(t, credits.updatedStatus)
		assert.Equal(t, models.CreditStatusDelinquent, *credits.updatedStatus)
	})

	t.Run("delinquent credit without overdue installments recovers", func(t *testing.T) {
		credits := &creditRepoStub{credit: &models.Credit{
			ID:               1,
			Status:           models.CreditStatusDelinquent,
			RemainingBalance: dec("500"),
		}}
		svc := newCreditService(credits, &installmentRepoStub{}, nil)

		status, err := svc.CheckStatus(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.CreditStatusActive, status)
	})

	t.Run("active credit with zero balance becomes paid", func(t *testing.T) {
		credits := &creditRepoStub{credit: &models.Credit{
			ID:               1,
			Status:           models.CreditStatusActive,
			RemainingBalance: decimal.Zero,
		}}
		svc := newCreditService(credits, &installmentRepoStub{}, nil)

		status, err := svc.CheckStatus(context.Background(), 1)
		require.NoError(t, err)
		assert.Equal(t, models.CreditStatusPaid, status)
	})

	t.Run("pending and terminal credits are not re-evaluated", func(t *testing.T) {
		for _, s := range []models.CreditStatus{
			models.CreditStatusPending,
			models.CreditStatusPaid,
			models.CreditStatusRejected,
		} {
			credits := &creditRepoStub{credit: &models.Credit{ID: 1, Status: s, RemainingBalance: dec("500")}}
			svc := newCreditService(credits, &installmentRepoStub{}, nil)

			status, err := svc.CheckStatus(context.Background(), 1)
			require.NoError(t, err)
			assert.Equal(t, s, status)
			assert.Nil(t, credits.updatedStatus)
		}
	})
}
