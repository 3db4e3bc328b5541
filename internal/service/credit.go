package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/roda-fin/credit-service/internal/amortization"
	"github.com/roda-fin/credit-service/internal/lifecycle"
	"github.com/roda-fin/credit-service/internal/models"
)

// CreditService handles credit lifecycle business logic
type CreditService struct {
	credits      CreditRepository
	installments InstallmentRepository
	tx           TxRunner
	rates        KeyRateProvider
	log          *logrus.Logger
}

// NewCreditService initializes a new credit service
func NewCreditService(
	credits CreditRepository,
	installments InstallmentRepository,
	tx TxRunner,
	rates KeyRateProvider,
	log *logrus.Logger,
) *CreditService {
	return &CreditService{
		credits:      credits,
		installments: installments,
		tx:           tx,
		rates:        rates,
		log:          log,
	}
}

// Create registers a pending credit and generates its amortization schedule.
// When interestRate is nil the current key rate is used. The credit and its
// full schedule are persisted in one transaction; any existing schedule for
// the credit is replaced in the same step.
func (s *CreditService) Create(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, interestRate *decimal.Decimal, termMonths int) (*models.Credit, []models.Installment, error) {
	rate, err := s.resolveRate(interestRate)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now()
	monthlyPayment, entries, err := amortization.Schedule(amount, rate, termMonths, now)
	if err != nil {
		return nil, nil, err
	}

	credit := &models.Credit{
		UserID:           userID,
		Amount:           amount,
		InterestRate:     rate,
		TermMonths:       termMonths,
		Status:           models.CreditStatusPending,
		MonthlyPayment:   monthlyPayment,
		RemainingBalance: amount,
	}

	var schedule []models.Installment
	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		if err := s.credits.Create(ctx, tx, credit); err != nil {
			return err
		}
		if err := s.installments.DeleteByCredit(ctx, tx, credit.ID); err != nil {
			return err
		}
		for _, entry := range entries {
			inst := models.Installment{
				CreditID:        credit.ID,
				Number:          entry.Number,
				DueDate:         entry.DueDate,
				PrincipalAmount: entry.Principal,
				InterestAmount:  entry.Interest,
				TotalAmount:     entry.Total,
			}
			if err := s.installments.Create(ctx, tx, &inst); err != nil {
				return err
			}
			schedule = append(schedule, inst)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.log.Infof("Credit %d created for user %s: amount %s, rate %s%%, term %d months, monthly payment %s",
		credit.ID, userID, amount.StringFixed(2), rate.StringFixed(2), termMonths, monthlyPayment.StringFixed(2))
	return credit, schedule, nil
}

func (s *CreditService) resolveRate(interestRate *decimal.Decimal) (decimal.Decimal, error) {
	if interestRate != nil {
		return *interestRate, nil
	}
	keyRate, err := s.rates.GetKeyRate()
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to resolve key rate: %w", err)
	}
	rate := decimal.NewFromFloat(keyRate).Round(2)
	s.log.Infof("No rate supplied, using key rate %s%%", rate.StringFixed(2))
	return rate, nil
}

// Approve activates a pending credit and records the approval timestamp.
func (s *CreditService) Approve(ctx context.Context, creditID int64) (*models.Credit, error) {
	var credit *models.Credit
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		credit, err = s.credits.GetByIDForUpdate(ctx, tx, creditID)
		if err != nil {
			return err
		}
		if credit.Status != models.CreditStatusPending {
			return fmt.Errorf("%w: only pending credits can be approved, credit %d is %s",
				ErrInvalidState, creditID, credit.Status)
		}
		now := time.Now()
		if err := s.credits.UpdateStatus(ctx, tx, creditID, models.CreditStatusActive, &now); err != nil {
			return err
		}
		credit.Status = models.CreditStatusActive
		credit.ApprovedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Credit %d approved", creditID)
	return credit, nil
}

// Reject moves a pending credit to the terminal rejected status.
func (s *CreditService) Reject(ctx context.Context, creditID int64) (*models.Credit, error) {
	var credit *models.Credit
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		credit, err = s.credits.GetByIDForUpdate(ctx, tx, creditID)
		if err != nil {
			return err
		}
		if credit.Status != models.CreditStatusPending {
			return fmt.Errorf("%w: only pending credits can be rejected, credit %d is %s",
				ErrInvalidState, creditID, credit.Status)
		}
		if err := s.credits.UpdateStatus(ctx, tx, creditID, models.CreditStatusRejected, nil); err != nil {
			return err
		}
		credit.Status = models.CreditStatusRejected
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Credit %d rejected", creditID)
	return credit, nil
}

// UpdateStatus sets a credit's status directly. The value is validated only
// against the status enum, not the transition graph: this is the
// administrative escape hatch for manual correction.
func (s *CreditService) UpdateStatus(ctx context.Context, creditID int64, rawStatus string) (*models.Credit, error) {
	status, err := lifecycle.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	var credit *models.Credit
	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		credit, err = s.credits.GetByIDForUpdate(ctx, tx, creditID)
		if err != nil {
			return err
		}
		if err := s.credits.UpdateStatus(ctx, tx, creditID, status, nil); err != nil {
			return err
		}
		credit.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	if (status == models.CreditStatusActive || status == models.CreditStatusDelinquent) &&
		credit.RemainingBalance.LessThanOrEqual(decimal.Zero) {
		s.log.Warnf("Credit %d set to %s with zero balance by administrative override", creditID, status)
	}
	s.log.Infof("Credit %d status set to %s by administrative override", creditID, status)
	return credit, nil
}

// CheckStatus re-evaluates a credit's status from its balance and overdue
// installments and persists the result. Pending, approved and terminal
// credits are left untouched.
func (s *CreditService) CheckStatus(ctx context.Context, creditID int64) (models.CreditStatus, error) {
	var status models.CreditStatus
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		credit, err := s.credits.GetByIDForUpdate(ctx, tx, creditID)
		if err != nil {
			return err
		}
		status = credit.Status
		if credit.Status != models.CreditStatusActive && credit.Status != models.CreditStatusDelinquent {
			return nil
		}

		overdue, err := s.installments.GetOverdue(ctx, tx, creditID, time.Now())
		if err != nil {
			return err
		}
		next := lifecycle.Reevaluate(credit.Status, credit.RemainingBalance, len(overdue) > 0)
		if next != credit.Status {
			if err := s.credits.UpdateStatus(ctx, tx, creditID, next, nil); err != nil {
				return err
			}
			s.log.Infof("Credit %d status re-evaluated: %s -> %s", creditID, credit.Status, next)
		}
		status = next
		return nil
	})
	if err != nil {
		return "", err
	}
	return status, nil
}

// GetWithSchedule returns a credit together with its ordered schedule.
func (s *CreditService) GetWithSchedule(ctx context.Context, creditID int64) (*models.Credit, []models.Installment, error) {
	credit, err := s.credits.GetByID(ctx, creditID)
	if err != nil {
		return nil, nil, err
	}
	schedule, err := s.installments.GetByCredit(ctx, creditID)
	if err != nil {
		return nil, nil, err
	}
	return credit, schedule, nil
}

// GetUserCredits returns a user's credits with pagination.
func (s *CreditService) GetUserCredits(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Credit, error) {
	credits, err := s.credits.GetByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get user credits: %w", err)
	}
	return credits, nil
}

// Summary aggregates the paid/pending/overdue state of one credit's schedule.
func (s *CreditService) Summary(ctx context.Context, creditID int64) (*models.CreditSummary, error) {
	credit, err := s.credits.GetByID(ctx, creditID)
	if err != nil {
		return nil, err
	}
	schedule, err := s.installments.GetByCredit(ctx, creditID)
	if err != nil {
		return nil, err
	}
	summary := lifecycle.Summarize(credit, schedule, time.Now())
	return &summary, nil
}
