package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus represents the state of a recorded payment.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusOverdue PaymentStatus = "overdue"
)

// PaymentMethodAutoDebit is the method recorded for system-initiated payments.
const PaymentMethodAutoDebit = "auto_debit"

// Payment represents a single immutable payment event against a credit
type Payment struct {
	ID            int64           `json:"id"`
	CreditID      int64           `json:"credit_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Description   string          `json:"description,omitempty"`
	PaymentDate   time.Time       `json:"payment_date"`
	Status        PaymentStatus   `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}
