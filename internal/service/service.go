// Package service implements the credit lifecycle engine: credit creation
// with schedule generation, approval and rejection, payment application,
// status re-evaluation and reporting.
package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roda-fin/credit-service/internal/models"
)

// Business rule errors surfaced by the services. Not-found conditions are
// reported with the repository sentinels.
var (
	ErrNotOwner      = errors.New("credit does not belong to user")
	ErrInvalidState  = errors.New("operation not allowed for credit status")
	ErrInvalidAmount = errors.New("invalid payment amount")
)

// CreditRepository is the persistence capability for credits. Mutations take
// the enclosing transaction so compound operations commit atomically.
type CreditRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Credit, error)
	GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Credit, error)
	GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Credit, error)
	GetByStatus(ctx context.Context, status models.CreditStatus, limit, offset int) ([]models.Credit, error)
	Create(ctx context.Context, tx *sql.Tx, credit *models.Credit) error
	UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status models.CreditStatus, approvedAt *time.Time) error
	UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error
}

// InstallmentRepository is the persistence capability for schedule entries.
type InstallmentRepository interface {
	GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.Installment, error)
	GetByCredit(ctx context.Context, creditID int64) ([]models.Installment, error)
	GetOverdue(ctx context.Context, tx *sql.Tx, creditID int64, now time.Time) ([]models.Installment, error)
	Create(ctx context.Context, tx *sql.Tx, inst *models.Installment) error
	DeleteByCredit(ctx context.Context, tx *sql.Tx, creditID int64) error
	MarkPaid(ctx context.Context, tx *sql.Tx, id int64, paidAt time.Time) error
}

// PaymentRepository is the persistence capability for payment records.
type PaymentRepository interface {
	Create(ctx context.Context, tx *sql.Tx, payment *models.Payment) error
	GetByCredit(ctx context.Context, creditID int64, limit, offset int) ([]models.Payment, error)
	GetByCreditIDs(ctx context.Context, creditIDs []int64) ([]models.Payment, error)
}

// TxRunner executes a function inside a single transaction scope.
type TxRunner interface {
	InTx(ctx context.Context, fn func(tx *sql.Tx) error) error
}

// KeyRateProvider supplies the reference annual rate used when a credit
// request does not carry one.
type KeyRateProvider interface {
	GetKeyRate() (float64, error)
}

// PaymentNotifier is told about successfully applied payments and about
// credits that remain delinquent. Notification happens after commit and never
// affects the payment outcome.
type PaymentNotifier interface {
	NotifyPayment(credit *models.Credit, payment *models.Payment)
	NotifyOverdue(credit *models.Credit, inst *models.Installment)
}
