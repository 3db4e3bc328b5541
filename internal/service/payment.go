package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/roda-fin/credit-service/internal/lifecycle"
	"github.com/roda-fin/credit-service/internal/models"
	"github.com/roda-fin/credit-service/internal/repository"
)

// PaymentService applies payments against credits and their schedules
type PaymentService struct {
	credits      CreditRepository
	installments InstallmentRepository
	payments     PaymentRepository
	tx           TxRunner
	notifier     PaymentNotifier
	log          *logrus.Logger
}

// NewPaymentService initializes a new payment service. notifier may be nil.
func NewPaymentService(
	credits CreditRepository,
	installments InstallmentRepository,
	payments PaymentRepository,
	tx TxRunner,
	notifier PaymentNotifier,
	log *logrus.Logger,
) *PaymentService {
	return &PaymentService{
		credits:      credits,
		installments: installments,
		payments:     payments,
		tx:           tx,
		notifier:     notifier,
		log:          log,
	}
}

// CreatePayment applies a payment against a credit: it records the payment,
// decrements the remaining balance and re-evaluates the credit's status, all
// inside one transaction with the credit row locked.
func (s *PaymentService) CreatePayment(ctx context.Context, userID uuid.UUID, creditID int64, amount decimal.Decimal, method, description string) (*models.Payment, error) {
	var (
		payment *models.Payment
		credit  *models.Credit
	)
	err := s.tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		credit, err = s.credits.GetByIDForUpdate(ctx, tx, creditID)
		if err != nil {
			return err
		}
		if credit.UserID != userID {
			return ErrNotOwner
		}
		if credit.Status != models.CreditStatusActive && credit.Status != models.CreditStatusDelinquent {
			return fmt.Errorf("%w: payments are not accepted while credit %d is %s",
				ErrInvalidState, creditID, credit.Status)
		}
		if amount.LessThanOrEqual(decimal.Zero) {
			return fmt.Errorf("%w: amount must be positive", ErrInvalidAmount)
		}
		if amount.GreaterThan(credit.RemainingBalance) {
			return fmt.Errorf("%w: amount exceeds outstanding balance", ErrInvalidAmount)
		}

		payment = &models.Payment{
			CreditID:      creditID,
			Amount:        amount,
			PaymentMethod: method,
			Description:   description,
			PaymentDate:   time.Now(),
			Status:        models.PaymentStatusPaid,
		}
		if err := s.payments.Create(ctx, tx, payment); err != nil {
			return err
		}

		// Balance must be updated before re-evaluation: the payoff decision
		// inspects the post-payment balance.
		return s.settleBalance(ctx, tx, credit, amount)
	})
	if err != nil {
		return nil, err
	}

	s.log.Infof("Payment %d of %s applied to credit %d (balance now %s, status %s)",
		payment.ID, amount.StringFixed(2), creditID, credit.RemainingBalance.StringFixed(2), credit.Status)
	s.notify(credit, payment)
	return payment, nil
}

// settleBalance decrements the locked credit's balance by amount, clamping at
// zero, then re-evaluates and persists its status. Mutates credit in place.
func (s *PaymentService) settleBalance(ctx context.Context, tx *sql.Tx, credit *models.Credit, amount decimal.Decimal) error {
	balance := credit.RemainingBalance.Sub(amount).Round(2)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	if err := s.credits.UpdateBalance(ctx, tx, credit.ID, balance); err != nil {
		return err
	}
	credit.RemainingBalance = balance

	return s.reevaluate(ctx, tx, credit)
}

// reevaluate recomputes the locked credit's status and persists any change.
func (s *PaymentService) reevaluate(ctx context.Context, tx *sql.Tx, credit *models.Credit) error {
	overdue, err := s.installments.GetOverdue(ctx, tx, credit.ID, time.Now())
	if err != nil {
		return err
	}
	next := lifecycle.Reevaluate(credit.Status, credit.RemainingBalance, len(overdue) > 0)
	if next == credit.Status {
		return nil
	}
	if err := s.credits.UpdateStatus(ctx, tx, credit.ID, next, nil); err != nil {
		return err
	}
	s.log.Infof("Credit %d status re-evaluated: %s -> %s", credit.ID, credit.Status, next)
	credit.Status = next
	return nil
}

// MarkInstallmentPaid sets an installment's paid flag and timestamp and
// re-evaluates the owning credit's status. Re-marking a paid installment
// overwrites the timestamp.
func (s *PaymentService) MarkInstallmentPaid(ctx context.Context, userID uuid.UUID, installmentID int64, paidAt *time.Time) (*models.Installment, error) {
	inst, err := s.installments.GetByID(ctx, nil, installmentID)
	if err != nil {
		return nil, err
	}

	when := time.Now()
	if paidAt != nil {
		when = *paidAt
	}

	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		credit, err := s.credits.GetByIDForUpdate(ctx, tx, inst.CreditID)
		if err != nil {
			return err
		}
		if credit.UserID != userID {
			return ErrNotOwner
		}
		if err := s.installments.MarkPaid(ctx, tx, installmentID, when); err != nil {
			return err
		}
		return s.reevaluate(ctx, tx, credit)
	})
	if err != nil {
		return nil, err
	}

	inst.IsPaid = true
	inst.PaidDate = &when
	s.log.Infof("Installment %d of credit %d marked paid", installmentID, inst.CreditID)
	return inst, nil
}

// ProcessAutomaticPayment settles one overdue, unpaid installment by
// synthesizing an auto-debit payment for exactly its total amount. Returns
// false without error when the installment is missing or already paid; that
// is a reported outcome, not a failure.
func (s *PaymentService) ProcessAutomaticPayment(ctx context.Context, installmentID int64) (bool, error) {
	inst, err := s.installments.GetByID(ctx, nil, installmentID)
	if errors.Is(err, repository.ErrInstallmentNotFound) {
		s.log.Infof("Automatic payment skipped: installment %d not found", installmentID)
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if inst.IsPaid {
		s.log.Infof("Automatic payment skipped: installment %d already paid", installmentID)
		return false, nil
	}

	var (
		payment *models.Payment
		credit  *models.Credit
		settled bool
	)
	err = s.tx.InTx(ctx, func(tx *sql.Tx) error {
		var err error
		credit, err = s.credits.GetByIDForUpdate(ctx, tx, inst.CreditID)
		if err != nil {
			return err
		}

		// Re-read under the credit lock: a concurrent settlement may have
		// paid the installment between the initial read and lock acquisition.
		inst, err = s.installments.GetByID(ctx, tx, installmentID)
		if err != nil {
			return err
		}
		if inst.IsPaid {
			settled = true
			return nil
		}

		now := time.Now()
		payment = &models.Payment{
			CreditID:      inst.CreditID,
			Amount:        inst.TotalAmount,
			PaymentMethod: models.PaymentMethodAutoDebit,
			Description:   fmt.Sprintf("Automatic payment for installment #%d", inst.Number),
			PaymentDate:   now,
			Status:        models.PaymentStatusPaid,
		}
		if err := s.payments.Create(ctx, tx, payment); err != nil {
			return err
		}
		if err := s.installments.MarkPaid(ctx, tx, installmentID, now); err != nil {
			return err
		}
		return s.settleBalance(ctx, tx, credit, inst.TotalAmount)
	})
	if err != nil {
		return false, err
	}
	if settled {
		s.log.Infof("Automatic payment skipped: installment %d settled concurrently", installmentID)
		return false, nil
	}

	s.log.Infof("Automatic payment of %s applied to credit %d for installment #%d",
		inst.TotalAmount.StringFixed(2), inst.CreditID, inst.Number)
	s.notify(credit, payment)
	return true, nil
}

// ProcessDuePayments sweeps all overdue unpaid installments and attempts an
// automatic payment for each. Individual failures are logged and skipped.
func (s *PaymentService) ProcessDuePayments(ctx context.Context) error {
	overdue, err := s.installments.GetOverdue(ctx, nil, 0, time.Now())
	if err != nil {
		return fmt.Errorf("failed to get overdue installments: %w", err)
	}

	s.log.Infof("Processing %d overdue installments", len(overdue))
	processed := 0
	for _, inst := range overdue {
		ok, err := s.ProcessAutomaticPayment(ctx, inst.ID)
		if err != nil {
			s.log.WithError(err).Errorf("Automatic payment failed for installment %d", inst.ID)
			continue
		}
		if ok {
			processed++
		}
	}
	s.log.Infof("Automatic payment sweep finished: %d of %d settled", processed, len(overdue))
	return nil
}

// NotifyDelinquents sends an overdue notice for the earliest unpaid overdue
// installment of every credit still delinquent after the automatic sweep.
func (s *PaymentService) NotifyDelinquents(ctx context.Context) error {
	if s.notifier == nil {
		return nil
	}
	credits, err := s.credits.GetByStatus(ctx, models.CreditStatusDelinquent, 1000, 0)
	if err != nil {
		return fmt.Errorf("failed to get delinquent credits: %w", err)
	}

	now := time.Now()
	notified := 0
	for i := range credits {
		credit := credits[i]
		overdue, err := s.installments.GetOverdue(ctx, nil, credit.ID, now)
		if err != nil {
			s.log.WithError(err).Errorf("Could not load overdue installments for credit %d", credit.ID)
			continue
		}
		if len(overdue) == 0 {
			continue
		}
		s.notifier.NotifyOverdue(&credit, &overdue[0])
		notified++
	}
	s.log.Infof("Overdue notices queued for %d delinquent credits", notified)
	return nil
}

// GetCreditPayments returns a credit's payments after verifying ownership.
func (s *PaymentService) GetCreditPayments(ctx context.Context, userID uuid.UUID, creditID int64, limit, offset int) ([]models.Payment, error) {
	credit, err := s.credits.GetByID(ctx, creditID)
	if err != nil {
		return nil, err
	}
	if credit.UserID != userID {
		return nil, ErrNotOwner
	}
	return s.payments.GetByCredit(ctx, creditID, limit, offset)
}

// GetUserPayments returns payments across all of a user's credits.
func (s *PaymentService) GetUserPayments(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, error) {
	payments, err := s.collectUserPayments(ctx, userID)
	if err != nil {
		return nil, err
	}
	if offset >= len(payments) {
		return nil, nil
	}
	payments = payments[offset:]
	if limit > 0 && limit < len(payments) {
		payments = payments[:limit]
	}
	return payments, nil
}

func (s *PaymentService) collectUserPayments(ctx context.Context, userID uuid.UUID) ([]models.Payment, error) {
	credits, err := s.credits.GetByUser(ctx, userID, 1000, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get user credits: %w", err)
	}
	if len(credits) == 0 {
		return nil, nil
	}
	creditIDs := make([]int64, 0, len(credits))
	for _, credit := range credits {
		creditIDs = append(creditIDs, credit.ID)
	}
	return s.payments.GetByCreditIDs(ctx, creditIDs)
}

// Summary aggregates payment activity for one credit, or across all of the
// user's credits when creditID is nil.
func (s *PaymentService) Summary(ctx context.Context, userID uuid.UUID, creditID *int64) (*models.PaymentSummary, error) {
	var (
		payments []models.Payment
		schedule []models.Installment
	)

	if creditID != nil {
		credit, err := s.credits.GetByID(ctx, *creditID)
		if err != nil {
			return nil, err
		}
		if credit.UserID != userID {
			return nil, ErrNotOwner
		}
		if payments, err = s.payments.GetByCredit(ctx, *creditID, 1000, 0); err != nil {
			return nil, err
		}
		if schedule, err = s.installments.GetByCredit(ctx, *creditID); err != nil {
			return nil, err
		}
	} else {
		credits, err := s.credits.GetByUser(ctx, userID, 1000, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to get user credits: %w", err)
		}
		creditIDs := make([]int64, 0, len(credits))
		for _, credit := range credits {
			creditIDs = append(creditIDs, credit.ID)
		}
		if payments, err = s.payments.GetByCreditIDs(ctx, creditIDs); err != nil {
			return nil, err
		}
		for _, id := range creditIDs {
			entries, err := s.installments.GetByCredit(ctx, id)
			if err != nil {
				return nil, err
			}
			schedule = append(schedule, entries...)
		}
	}

	summary := lifecycle.SummarizePayments(payments, schedule, time.Now())
	return &summary, nil
}

func (s *PaymentService) notify(credit *models.Credit, payment *models.Payment) {
	if s.notifier == nil {
		return
	}
	go s.notifier.NotifyPayment(credit, payment)
}
