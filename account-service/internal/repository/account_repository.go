package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

// AccountWriteRepository handles all state-mutating operations for accounts.
// It operates exclusively against the PostgreSQL write store (source of truth).
type AccountWriteRepository struct {
	db *sql.DB
}

func NewAccountWriteRepository(db *sql.DB) *AccountWriteRepository {
	return &AccountWriteRepository{db: db}
}

const accountColumns = `id, user_id, name, account_type, balance, currency, created_at, updated_at, version`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	var a models.Account
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.AccountType, &a.Balance, &a.Currency, &a.CreatedAt, &a.UpdatedAt, &a.Version)
	return &a, err
}

func (r *AccountWriteRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
	`
	_, err := r.db.ExecContext(ctx, query,
		account.ID, account.UserID, account.Name, account.AccountType,
		account.Balance, account.Currency, account.CreatedAt, account.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

// GetByID fetches the full write model including UserID for ownership checks.
func (r *AccountWriteRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND deleted_at IS NULL`
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return a, nil
}

// Update writes name and type and returns the row as committed, balance
// included.
func (r *AccountWriteRepository) Update(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET name = $2, account_type = $3, updated_at = $4, version = version + 1
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + accountColumns
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, account.ID, account.Name, account.AccountType, account.UpdatedAt))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update account: %w", err)
	}
	return a, nil
}

// ApplyDelta adds delta to the balance in a single statement and returns the
// updated account.
func (r *AccountWriteRepository) ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (*models.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2, updated_at = NOW(), version = version + 1
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + accountColumns
	a, err := scanAccount(r.db.QueryRowContext(ctx, query, id, delta))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update balance: %w", err)
	}
	return a, nil
}

func (r *AccountWriteRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE accounts SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return expectOneRow(result)
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return errs.ErrAccountNotFound
	}
	return nil
}
