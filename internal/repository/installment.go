package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roda-fin/credit-service/internal/models"
)

const installmentColumns = `id, credit_id, installment_number, due_date,
		principal_amount, interest_amount, total_amount, is_paid, paid_date, created_at`

// InstallmentRepository provides database operations for schedule entries
type InstallmentRepository struct {
	db *sql.DB
}

// NewInstallmentRepository initializes a new installment repository
func NewInstallmentRepository(db *sql.DB) *InstallmentRepository {
	return &InstallmentRepository{db: db}
}

// on returns tx when inside a transaction scope, otherwise the shared handle.
func (r *InstallmentRepository) on(tx *sql.Tx) queryer {
	if tx != nil {
		return tx
	}
	return r.db
}

// GetByID retrieves a schedule entry by its id. Passing the enclosing tx makes
// the read consistent with uncommitted writes in that transaction.
func (r *InstallmentRepository) GetByID(ctx context.Context, tx *sql.Tx, id int64) (*models.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM payment_schedule WHERE id = $1`
	inst := &models.Installment{}
	err := r.on(tx).QueryRowContext(ctx, query, id).Scan(
		&inst.ID,
		&inst.CreditID,
		&inst.Number,
		&inst.DueDate,
		&inst.PrincipalAmount,
		&inst.InterestAmount,
		&inst.TotalAmount,
		&inst.IsPaid,
		&inst.PaidDate,
		&inst.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrInstallmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get installment: %w", err)
	}
	return inst, nil
}

// GetByCredit retrieves a credit's schedule ordered by installment number
func (r *InstallmentRepository) GetByCredit(ctx context.Context, creditID int64) ([]models.Installment, error) {
	query := `SELECT ` + installmentColumns + `
		FROM payment_schedule
		WHERE credit_id = $1
		ORDER BY installment_number`
	rows, err := r.db.QueryContext(ctx, query, creditID)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()
	return collectInstallments(rows)
}

// GetOverdue retrieves unpaid installments whose due date is strictly before
// now. A creditID of zero applies no credit filter. Passing the enclosing tx
// makes uncommitted paid-flag writes visible to the query.
func (r *InstallmentRepository) GetOverdue(ctx context.Context, tx *sql.Tx, creditID int64, now time.Time) ([]models.Installment, error) {
	query := `SELECT ` + installmentColumns + `
		FROM payment_schedule
		WHERE is_paid = FALSE AND due_date < $1`
	args := []any{now}
	if creditID != 0 {
		query += ` AND credit_id = $2`
		args = append(args, creditID)
	}
	query += ` ORDER BY due_date`

	rows, err := r.on(tx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query overdue installments: %w", err)
	}
	defer rows.Close()
	return collectInstallments(rows)
}

func collectInstallments(rows *sql.Rows) ([]models.Installment, error) {
	var installments []models.Installment
	for rows.Next() {
		var inst models.Installment
		if err := rows.Scan(
			&inst.ID,
			&inst.CreditID,
			&inst.Number,
			&inst.DueDate,
			&inst.PrincipalAmount,
			&inst.InterestAmount,
			&inst.TotalAmount,
			&inst.IsPaid,
			&inst.PaidDate,
			&inst.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan installment: %w", err)
		}
		installments = append(installments, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installments: %w", err)
	}
	return installments, nil
}

// Create inserts a new schedule entry inside tx
func (r *InstallmentRepository) Create(ctx context.Context, tx *sql.Tx, inst *models.Installment) error {
	query := `
		INSERT INTO payment_schedule (credit_id, installment_number, due_date,
			principal_amount, interest_amount, total_amount, is_paid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, FALSE, CURRENT_TIMESTAMP)
		RETURNING id, created_at`
	err := tx.QueryRowContext(ctx, query,
		inst.CreditID,
		inst.Number,
		inst.DueDate,
		inst.PrincipalAmount,
		inst.InterestAmount,
		inst.TotalAmount,
	).Scan(&inst.ID, &inst.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create installment: %w", err)
	}
	return nil
}

// DeleteByCredit removes a credit's entire schedule inside tx. Regeneration
// replaces the schedule in the same transaction to avoid transient duplicates.
func (r *InstallmentRepository) DeleteByCredit(ctx context.Context, tx *sql.Tx, creditID int64) error {
	query := `DELETE FROM payment_schedule WHERE credit_id = $1`
	if _, err := tx.ExecContext(ctx, query, creditID); err != nil {
		return fmt.Errorf("failed to delete schedule: %w", err)
	}
	return nil
}

// MarkPaid sets the paid flag and paid timestamp inside tx. Re-marking an
// already paid entry simply overwrites the timestamp.
func (r *InstallmentRepository) MarkPaid(ctx context.Context, tx *sql.Tx, id int64, paidAt time.Time) error {
	query := `UPDATE payment_schedule SET is_paid = TRUE, paid_date = $1 WHERE id = $2`
	result, err := tx.ExecContext(ctx, query, paidAt, id)
	if err != nil {
		return fmt.Errorf("failed to mark installment paid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrInstallmentNotFound
	}
	return nil
}
