package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/roda-fin/credit-service/internal/models"
	"github.com/roda-fin/credit-service/internal/repository"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type txRunnerStub struct{}

func (txRunnerStub) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	return fn(nil)
}

type keyRateStub struct {
	rate float64
	err  error
}

func (s keyRateStub) GetKeyRate() (float64, error) {
	return s.rate, s.err
}

type creditRepoStub struct {
	CreditRepository

	credit  *models.Credit
	credits []models.Credit

	created        *models.Credit
	updatedStatus  *models.CreditStatus
	approvedAt     *time.Time
	updatedBalance *decimal.Decimal
}

func (s *creditRepoStub) getCopy() (*models.Credit, error) {
	if s.credit == nil {
		return nil, repository.ErrCreditNotFound
	}
	credit := *s.credit
	return &credit, nil
}

func (s *creditRepoStub) GetByID(ctx context.Context, id int64) (*models.Credit, error) {
	return s.getCopy()
}

func (s *creditRepoStub) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Credit, error) {
	return s.getCopy()
}

func (s *creditRepoStub) GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Credit, error) {
	return s.credits, nil
}

func (s *creditRepoStub) GetByStatus(ctx context.Context, status models.CreditStatus, limit, offset int) ([]models.Credit, error) {
	var out []models.Credit
	for _, credit := range s.credits {
		if credit.Status == status {
			out = append(out, credit)
		}
	}
	return out, nil
}

func (s *creditRepoStub) Create(ctx context.Context, tx *sql.Tx, credit *models.Credit) error {
	credit.ID = 1
	credit.CreatedAt = time.Now()
	credit.UpdatedAt = credit.CreatedAt
	s.created = credit
	return nil
}

func (s *creditRepoStub) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status models.CreditStatus, approvedAt *time.Time) error {
	s.updatedStatus = &status
	s.approvedAt = approvedAt
	return nil
}

func (s *creditRepoStub) UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error {
	s.updatedBalance = &balance
	return nil
}

type installmentRepoStub struct {
	InstallmentRepository

	installments map[int64]*models.Installment
	overdue      []models.Installment

	created       []models.Installment
	deletedCredit int64
	markedPaidID  int64
	markedPaidAt  time.Time
}

func (s *installmentRepoStub) GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.Installment, error) {
	inst, ok := s.installments[id]
	if !ok {
		return nil, repository.ErrInstallmentNotFound
	}
	copied := *inst
	return &copied, nil
}

func (s *installmentRepoStub) GetByCredit(ctx context.Context, creditID int64) ([]models.Installment, error) {
	var out []models.Installment
	for _, inst := range s.installments {
		if inst.CreditID == creditID {
			out = append(out, *inst)
		}
	}
	return out, nil
}

func (s *installmentRepoStub) GetOverdue(ctx context.Context, tx *sql.Tx, creditID int64, now time.Time) ([]models.Installment, error) {
	return s.overdue, nil
}

func (s *installmentRepoStub) Create(ctx context.Context, tx *sql.Tx, inst *models.Installment) error {
	inst.ID = int64(len(s.created) + 1)
	s.created = append(s.created, *inst)
	return nil
}

func (s *installmentRepoStub) DeleteByCredit(ctx context.Context, tx *sql.Tx, creditID int64) error {
	s.deletedCredit = creditID
	return nil
}

func (s *installmentRepoStub) MarkPaid(ctx context.Context, tx *sql.Tx, id int64, paidAt time.Time) error {
	s.markedPaidID = id
	s.markedPaidAt = paidAt
	if inst, ok := s.installments[id]; ok {
		inst.IsPaid = true
		inst.PaidDate = &paidAt
	}
	return nil
}

type notifierStub struct {
	payments []models.Payment
	overdue  []models.Installment
}

func (s *notifierStub) NotifyPayment(credit *models.Credit, payment *models.Payment) {
	s.payments = append(s.payments, *payment)
}

func (s *notifierStub) NotifyOverdue(credit *models.Credit, inst *models.Installment) {
	s.overdue = append(s.overdue, *inst)
}

type paymentRepoStub struct {
	PaymentRepository

	created  []models.Payment
	payments []models.Payment
}

func (s *paymentRepoStub) Create(ctx context.Context, tx *sql.Tx, payment *models.Payment) error {
	payment.ID = int64(len(s.created) + 1)
	payment.CreatedAt = time.Now()
	s.created = append(s.created, *payment)
	return nil
}

func (s *paymentRepoStub) GetByCredit(ctx context.Context, creditID int64, limit, offset int) ([]models.Payment, error) {
	return s.payments, nil
}

func (s *paymentRepoStub) GetByCreditIDs(ctx context.Context, creditIDs []int64) ([]models.Payment, error) {
	return s.payments, nil
}
