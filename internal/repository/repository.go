// Package repository provides PostgreSQL persistence for credits,
// installments and payments.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Not-found sentinels surfaced by the repositories.
var (
	ErrCreditNotFound      = errors.New("credit not found")
	ErrInstallmentNotFound = errors.New("installment not found")
)

// queryer is satisfied by both *sql.DB and *sql.Tx so read queries can run
// inside or outside a transaction scope.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// TxManager runs a function inside a single database transaction, rolling
// back on any failure.
type TxManager struct {
	db *sql.DB
}

// NewTxManager initializes a transaction manager
func NewTxManager(db *sql.DB) *TxManager {
	return &TxManager{db: db}
}

// InTx begins a transaction, runs fn and commits. Any error from fn aborts
// the whole transaction so compound operations never apply partially.
func (m *TxManager) InTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
