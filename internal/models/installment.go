package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment represents one entry of a credit's amortization schedule
type Installment struct {
	ID              int64           `json:"id"`
	CreditID        int64           `json:"credit_id"`
	Number          int             `json:"installment_number"`
	DueDate         time.Time       `json:"due_date"`
	PrincipalAmount decimal.Decimal `json:"principal_amount"`
	InterestAmount  decimal.Decimal `json:"interest_amount"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	IsPaid          bool            `json:"is_paid"`
	PaidDate        *time.Time      `json:"paid_date,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
