package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/roda-fin/credit-service/internal/models"
)

const paymentColumns = `id, credit_id, amount, payment_method, description,
		payment_date, status, created_at`

// PaymentRepository provides database operations for payment records
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository initializes a new payment repository
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create inserts an immutable payment record inside tx
func (r *PaymentRepository) Create(ctx context.Context, tx *sql.Tx, payment *models.Payment) error {
	query := `
		INSERT INTO payments (credit_id, amount, payment_method, description,
			payment_date, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := tx.QueryRowContext(ctx, query,
		payment.CreditID,
		payment.Amount,
		payment.PaymentMethod,
		nullableString(payment.Description),
		payment.PaymentDate,
		payment.Status,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "foreign_key_violation" {
			return ErrCreditNotFound
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByCredit retrieves a credit's payments with pagination
func (r *PaymentRepository) GetByCredit(ctx context.Context, creditID int64, limit, offset int) ([]models.Payment, error) {
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE credit_id = $1
		ORDER BY payment_date DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, creditID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query credit payments: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

// GetByCreditIDs retrieves payments for a batch of credits in one query
func (r *PaymentRepository) GetByCreditIDs(ctx context.Context, creditIDs []int64) ([]models.Payment, error) {
	if len(creditIDs) == 0 {
		return nil, nil
	}
	query := `SELECT ` + paymentColumns + `
		FROM payments
		WHERE credit_id = ANY($1)
		ORDER BY payment_date DESC`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(creditIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query payments batch: %w", err)
	}
	defer rows.Close()
	return collectPayments(rows)
}

// nullableString stores empty strings as NULL, matching the nullable columns
// the read path scans with sql.NullString.
func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func collectPayments(rows *sql.Rows) ([]models.Payment, error) {
	var payments []models.Payment
	for rows.Next() {
		var payment models.Payment
		var description sql.NullString
		if err := rows.Scan(
			&payment.ID,
			&payment.CreditID,
			&payment.Amount,
			&payment.PaymentMethod,
			&description,
			&payment.PaymentDate,
			&payment.Status,
			&payment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payment.Description = description.String
		payments = append(payments, payment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate payments: %w", err)
	}
	return payments, nil
}
