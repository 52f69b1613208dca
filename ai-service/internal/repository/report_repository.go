package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

const reportColumns = `id, user_id, period_start, period_end, content, created_at`

func scanReport(row interface{ Scan(...any) error }) (*models.FinancialReport, error) {
	var rp models.FinancialReport
	err := row.Scan(&rp.ID, &rp.UserID, &rp.PeriodStart, &rp.PeriodEnd, &rp.Content, &rp.CreatedAt)
	return &rp, err
}

func (r *ReportRepository) Create(ctx context.Context, rp *models.FinancialReport) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO financial_reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rp.ID, rp.UserID, rp.PeriodStart, rp.PeriodEnd, rp.Content, rp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	return nil
}

func (r *ReportRepository) GetByID(ctx context.Context, id string) (*models.FinancialReport, error) {
	rp, err := scanReport(r.db.QueryRowContext(ctx,
		`SELECT `+reportColumns+` FROM financial_reports WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	return rp, nil
}

// ListByUser returns reports newest period first.
func (r *ReportRepository) ListByUser(ctx context.Context, userID string) ([]models.FinancialReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+reportColumns+` FROM financial_reports
		WHERE user_id = $1
		ORDER BY period_start DESC, created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	reports := []models.FinancialReport{}
	for rows.Next() {
		rp, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		reports = append(reports, *rp)
	}
	return reports, rows.Err()
}

func (r *ReportRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM financial_reports WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if n == 0 {
		return errs.ErrReportNotFound
	}
	return nil
}
