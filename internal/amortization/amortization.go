// Package amortization computes fixed monthly payments and installment
// schedules for annuity credits. All functions are pure.
package amortization

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput is returned for malformed numeric input.
var ErrInvalidInput = errors.New("invalid amortization input")

// Installment due dates are spaced 30 days apart from the anchor date.
const dueDateInterval = 30 * 24 * time.Hour

var (
	one            = decimal.NewFromInt(1)
	monthsDivisor  = decimal.NewFromInt(12)
	percentDivisor = decimal.NewFromInt(100)
	maxAnnualRate  = decimal.NewFromInt(100)
)

// Entry is one row of a generated amortization schedule.
type Entry struct {
	Number    int
	DueDate   time.Time
	Principal decimal.Decimal
	Interest  decimal.Decimal
	Total     decimal.Decimal
}

func validate(principal, annualRate decimal.Decimal, termMonths int) error {
	if principal.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("%w: principal must be positive", ErrInvalidInput)
	}
	if termMonths <= 0 {
		return fmt.Errorf("%w: term must be at least one month", ErrInvalidInput)
	}
	if annualRate.IsNegative() || annualRate.GreaterThan(maxAnnualRate) {
		return fmt.Errorf("%w: annual rate must be between 0 and 100", ErrInvalidInput)
	}
	return nil
}

// MonthlyPayment computes the fixed annuity payment for the given principal,
// annual percentage rate and term, rounded to cents.
func MonthlyPayment(principal, annualRate decimal.Decimal, termMonths int) (decimal.Decimal, error) {
	if err := validate(principal, annualRate, termMonths); err != nil {
		return decimal.Zero, err
	}

	if annualRate.IsZero() {
		return principal.Div(decimal.NewFromInt(int64(termMonths))).Round(2), nil
	}

	monthlyRate := annualRate.Div(percentDivisor).Div(monthsDivisor)
	power := one.Add(monthlyRate).Pow(decimal.NewFromInt(int64(termMonths)))
	payment := principal.Mul(monthlyRate).Mul(power).Div(power.Sub(one))

	return payment.Round(2), nil
}

// Schedule generates the full installment schedule for a credit. The final
// installment's principal portion is set to the exact remaining balance so
// that the principal portions sum to the original principal and the balance
// after the last installment is exactly zero. Due date k is anchor + 30*k days.
func Schedule(principal, annualRate decimal.Decimal, termMonths int, anchor time.Time) (decimal.Decimal, []Entry, error) {
	payment, err := MonthlyPayment(principal, annualRate, termMonths)
	if err != nil {
		return decimal.Zero, nil, err
	}

	monthlyRate := decimal.Zero
	if !annualRate.IsZero() {
		monthlyRate = annualRate.Div(percentDivisor).Div(monthsDivisor)
	}

	balance := principal
	entries := make([]Entry, 0, termMonths)

	for number := 1; number <= termMonths; number++ {
		interest := balance.Mul(monthlyRate).Round(2)
		principalPortion := payment.Sub(interest).Round(2)
		if number == termMonths {
			// Last installment absorbs all rounding drift.
			principalPortion = balance
		}
		balance = balance.Sub(principalPortion).Round(2)

		entries = append(entries, Entry{
			Number:    number,
			DueDate:   anchor.Add(time.Duration(number) * dueDateInterval),
			Principal: principalPortion,
			Interest:  interest,
			Total:     principalPortion.Add(interest).Round(2),
		})
	}

	return payment, entries, nil
}
