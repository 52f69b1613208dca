package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

// RecordWriteRepository handles all state-mutating operations for records.
type RecordWriteRepository struct {
	db *sql.DB
}

func NewRecordWriteRepository(db *sql.DB) *RecordWriteRepository {
	return &RecordWriteRepository{db: db}
}

const recordColumns = `id, account_id, user_id, amount, type, category, description, occurred_at, created_at, updated_at`

func (r *RecordWriteRepository) Create(ctx context.Context, rec *models.TransactionRecord) error {
	query := `
		INSERT INTO records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.AccountID, rec.UserID, rec.Amount, rec.Type, rec.Category,
		rec.Description, rec.OccurredAt, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create record: %w", err)
	}
	return nil
}

func (r *RecordWriteRepository) GetByID(ctx context.Context, id string) (*models.TransactionRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return rec, nil
}

func (r *RecordWriteRepository) Update(ctx context.Context, rec *models.TransactionRecord) error {
	query := `
		UPDATE records
		SET amount = $2, type = $3, category = $4, description = $5, occurred_at = $6, updated_at = $7
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Amount, rec.Type, rec.Category, rec.Description, rec.OccurredAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update record: %w", err)
	}
	return expectOneRow(result)
}

func (r *RecordWriteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return expectOneRow(result)
}

func scanRecord(row interface{ Scan(...any) error }) (*models.TransactionRecord, error) {
	var rec models.TransactionRecord
	err := row.Scan(
		&rec.ID, &rec.AccountID, &rec.UserID, &rec.Amount, &rec.Type, &rec.Category,
		&rec.Description, &rec.OccurredAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	return &rec, err
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return errs.ErrRecordNotFound
	}
	return nil
}
