package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreditStatus represents the lifecycle state of a credit.
type CreditStatus string

const (
	CreditStatusPending    CreditStatus = "pending"
	CreditStatusApproved   CreditStatus = "approved"
	CreditStatusActive     CreditStatus = "active"
	CreditStatusDelinquent CreditStatus = "delinquent"
	CreditStatusPaid       CreditStatus = "paid"
	CreditStatusRejected   CreditStatus = "rejected"
)

// Credit represents an installment credit in the system
type Credit struct {
	ID               int64           `json:"id"`
	UserID           uuid.UUID       `json:"user_id"`
	Amount           decimal.Decimal `json:"amount"`
	InterestRate     decimal.Decimal `json:"interest_rate"`
	TermMonths       int             `json:"term_months"`
	Status           CreditStatus    `json:"status"`
	MonthlyPayment   decimal.Decimal `json:"monthly_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	ApprovedAt       *time.Time      `json:"approved_at,omitempty"`
}
