// Package lifecycle contains the pure status decision logic for credits:
// automatic status re-evaluation, overdue detection and schedule summaries.
package lifecycle

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/roda-fin/credit-service/internal/models"
)

// ErrUnknownStatus is returned when an administrative status update names a
// value outside the credit status enum.
var ErrUnknownStatus = errors.New("unknown credit status")

var validStatuses = map[models.CreditStatus]struct{}{
	models.CreditStatusPending:    {},
	models.CreditStatusApproved:   {},
	models.CreditStatusActive:     {},
	models.CreditStatusDelinquent: {},
	models.CreditStatusPaid:       {},
	models.CreditStatusRejected:   {},
}

// ParseStatus validates a raw status value against the enum. The transition
// graph is deliberately not consulted here: administrative overrides may set
// any enumerated value directly.
func ParseStatus(raw string) (models.CreditStatus, error) {
	status := models.CreditStatus(raw)
	if _, ok := validStatuses[status]; !ok {
		return "", ErrUnknownStatus
	}
	return status, nil
}

// Reevaluate maps a credit's current status, remaining balance and overdue
// presence to its next status. Only active and delinquent credits are
// re-evaluated; every other status is returned unchanged.
func Reevaluate(status models.CreditStatus, balance decimal.Decimal, hasOverdue bool) models.CreditStatus {
	if status != models.CreditStatusActive && status != models.CreditStatusDelinquent {
		return status
	}
	if balance.LessThanOrEqual(decimal.Zero) {
		return models.CreditStatusPaid
	}
	if hasOverdue {
		return models.CreditStatusDelinquent
	}
	return models.CreditStatusActive
}

// IsOverdue reports whether an installment is unpaid and past due.
func IsOverdue(inst models.Installment, now time.Time) bool {
	return !inst.IsPaid && inst.DueDate.Before(now)
}

// FindOverdue returns the unpaid, past-due subset of a schedule. A creditID
// of zero applies no credit filter.
func FindOverdue(schedule []models.Installment, now time.Time, creditID int64) []models.Installment {
	var overdue []models.Installment
	for _, inst := range schedule {
		if creditID != 0 && inst.CreditID != creditID {
			continue
		}
		if IsOverdue(inst, now) {
			overdue = append(overdue, inst)
		}
	}
	return overdue
}

// DaysOverdue returns the whole days elapsed since the due date, or zero if
// the due date has not passed.
func DaysOverdue(dueDate, now time.Time) int {
	if !dueDate.Before(now) {
		return 0
	}
	return int(now.Sub(dueDate).Hours() / 24)
}

// Summarize partitions a credit's schedule into paid, pending and overdue
// installments and totals their amounts. Pure aggregation, no mutation.
func Summarize(credit *models.Credit, schedule []models.Installment, now time.Time) models.CreditSummary {
	summary := models.CreditSummary{
		CreditID:          credit.ID,
		TotalCredit:       credit.Amount,
		RemainingBalance:  credit.RemainingBalance,
		TotalPaid:         decimal.Zero,
		TotalPending:      decimal.Zero,
		TotalOverdue:      decimal.Zero,
		TotalInstallments: len(schedule),
	}

	for _, inst := range schedule {
		if inst.IsPaid {
			summary.PaidInstallments++
			summary.TotalPaid = summary.TotalPaid.Add(inst.TotalAmount)
			continue
		}
		summary.PendingInstallments++
		summary.TotalPending = summary.TotalPending.Add(inst.TotalAmount)
		if inst.DueDate.Before(now) {
			summary.OverdueInstallments++
			summary.TotalOverdue = summary.TotalOverdue.Add(inst.TotalAmount)
		}
	}

	return summary
}

// SummarizePayments aggregates payment records and schedule state across one
// or more credits into a per-user view.
func SummarizePayments(payments []models.Payment, schedule []models.Installment, now time.Time) models.PaymentSummary {
	summary := models.PaymentSummary{
		TotalPayments:     len(payments),
		TotalAmount:       decimal.Zero,
		TotalInstallments: len(schedule),
		OverdueAmount:     decimal.Zero,
	}

	for _, p := range payments {
		summary.TotalAmount = summary.TotalAmount.Add(p.Amount)
	}
	for _, inst := range schedule {
		if inst.IsPaid {
			summary.PaidInstallments++
			continue
		}
		summary.PendingInstallments++
		if inst.DueDate.Before(now) {
			summary.OverdueInstallments++
			summary.OverdueAmount = summary.OverdueAmount.Add(inst.TotalAmount)
		}
	}

	return summary
}
