package models

import "github.com/shopspring/decimal"

// CreditSummary aggregates the paid/pending/overdue state of one credit's schedule
type CreditSummary struct {
	CreditID            int64           `json:"credit_id"`
	TotalCredit         decimal.Decimal `json:"total_credit"`
	RemainingBalance    decimal.Decimal `json:"remaining_balance"`
	TotalPaid           decimal.Decimal `json:"total_paid"`
	TotalPending        decimal.Decimal `json:"total_pending"`
	TotalOverdue        decimal.Decimal `json:"total_overdue"`
	PaidInstallments    int             `json:"paid_installments"`
	PendingInstallments int             `json:"pending_installments"`
	OverdueInstallments int             `json:"overdue_installments"`
	TotalInstallments   int             `json:"total_installments"`
}

// PaymentSummary aggregates payment activity across one or more credits
type PaymentSummary struct {
	TotalPayments       int             `json:"total_payments"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	TotalInstallments   int             `json:"total_installments"`
	PaidInstallments    int             `json:"paid_installments"`
	PendingInstallments int             `json:"pending_installments"`
	OverdueInstallments int             `json:"overdue_installments"`
	OverdueAmount       decimal.Decimal `json:"overdue_amount"`
}
