package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/roda-fin/credit-service/internal/models"
)

const creditColumns = `id, user_id, amount, interest_rate, term_months, status,
		monthly_payment, remaining_balance, created_at, updated_at, approved_at`

// CreditRepository provides database operations for credits
type CreditRepository struct {
	db *sql.DB
}

// NewCreditRepository initializes a new credit repository
func NewCreditRepository(db *sql.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

func scanCredit(row *sql.Row) (*models.Credit, error) {
	credit := &models.Credit{}
	err := row.Scan(
		&credit.ID,
		&credit.UserID,
		&credit.Amount,
		&credit.InterestRate,
		&credit.TermMonths,
		&credit.Status,
		&credit.MonthlyPayment,
		&credit.RemainingBalance,
		&credit.CreatedAt,
		&credit.UpdatedAt,
		&credit.ApprovedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrCreditNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan credit: %w", err)
	}
	return credit, nil
}

// GetByID retrieves a credit by its id
func (r *CreditRepository) GetByID(ctx context.Context, id int64) (*models.Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE id = $1`
	return scanCredit(r.db.QueryRowContext(ctx, query, id))
}

// GetByIDForUpdate retrieves a credit inside tx, locking its row so that
// concurrent mutations of the same credit serialize.
func (r *CreditRepository) GetByIDForUpdate(ctx context.Context, tx *sql.Tx, id int64) (*models.Credit, error) {
	query := `SELECT ` + creditColumns + ` FROM credits WHERE id = $1 FOR UPDATE`
	return scanCredit(tx.QueryRowContext(ctx, query, id))
}

// GetByUser retrieves a user's credits with pagination
func (r *CreditRepository) GetByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Credit, error) {
	query := `SELECT ` + creditColumns + `
		FROM credits
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query user credits: %w", err)
	}
	defer rows.Close()
	return collectCredits(rows)
}

// GetByStatus retrieves credits in the given status with pagination
func (r *CreditRepository) GetByStatus(ctx context.Context, status models.CreditStatus, limit, offset int) ([]models.Credit, error) {
	query := `SELECT ` + creditColumns + `
		FROM credits
		WHERE status = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`
	rows, err := r.db.QueryContext(ctx, query, status, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query credits by status: %w", err)
	}
	defer rows.Close()
	return collectCredits(rows)
}

func collectCredits(rows *sql.Rows) ([]models.Credit, error) {
	var credits []models.Credit
	for rows.Next() {
		var credit models.Credit
		if err := rows.Scan(
			&credit.ID,
			&credit.UserID,
			&credit.Amount,
			&credit.InterestRate,
			&credit.TermMonths,
			&credit.Status,
			&credit.MonthlyPayment,
			&credit.RemainingBalance,
			&credit.CreatedAt,
			&credit.UpdatedAt,
			&credit.ApprovedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan credit: %w", err)
		}
		credits = append(credits, credit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate credits: %w", err)
	}
	return credits, nil
}

// Create inserts a new credit inside tx
func (r *CreditRepository) Create(ctx context.Context, tx *sql.Tx, credit *models.Credit) error {
	query := `
		INSERT INTO credits (user_id, amount, interest_rate, term_months, status,
			monthly_payment, remaining_balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		RETURNING id, created_at, updated_at`
	err := tx.QueryRowContext(ctx, query,
		credit.UserID,
		credit.Amount,
		credit.InterestRate,
		credit.TermMonths,
		credit.Status,
		credit.MonthlyPayment,
		credit.RemainingBalance,
	).Scan(&credit.ID, &credit.CreatedAt, &credit.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create credit: %w", err)
	}
	return nil
}

// UpdateStatus updates a credit's status inside tx. A non-nil approvedAt also
// records the approval timestamp; it is never overwritten once set.
func (r *CreditRepository) UpdateStatus(ctx context.Context, tx *sql.Tx, id int64, status models.CreditStatus, approvedAt *time.Time) error {
	query := `
		UPDATE credits
		SET status = $1,
			approved_at = COALESCE(approved_at, $2),
			updated_at = CURRENT_TIMESTAMP
		WHERE id = $3`
	result, err := tx.ExecContext(ctx, query, status, approvedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update credit status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrCreditNotFound
	}
	return nil
}

// UpdateBalance updates a credit's remaining balance inside tx
func (r *CreditRepository) UpdateBalance(ctx context.Context, tx *sql.Tx, id int64, balance decimal.Decimal) error {
	query := `
		UPDATE credits
		SET remaining_balance = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2`
	result, err := tx.ExecContext(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("failed to update credit balance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrCreditNotFound
	}
	return nil
}
