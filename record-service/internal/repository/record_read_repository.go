package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
	sharedredis "github.com/pennywise/finance/shared/redis"
)

const (
	recordViewKeyPrefix = "record:view:"
	recordViewTTL       = 24 * time.Hour
)

// RecordReadRepository serves record reads. Single records come from Redis
// first; lists and summaries always hit PostgreSQL.
type RecordReadRepository struct {
	db    *sql.DB
	cache *sharedredis.ViewCache[models.RecordView]
}

func NewRecordReadRepository(db *sql.DB, redisClient *goredis.Client) *RecordReadRepository {
	return &RecordReadRepository{
		db:    db,
		cache: sharedredis.NewViewCache[models.RecordView](redisClient, recordViewTTL),
	}
}

func scanView(row interface{ Scan(...any) error }) (*models.RecordView, error) {
	var v models.RecordView
	err := row.Scan(
		&v.ID, &v.AccountID, &v.UserID, &v.Amount, &v.Type, &v.Category,
		&v.Description, &v.OccurredAt, &v.CreatedAt, &v.UpdatedAt,
	)
	return &v, err
}

func (r *RecordReadRepository) GetByID(ctx context.Context, id string) (*models.RecordView, error) {
	if view, ok := r.cache.Get(ctx, recordViewKeyPrefix+id); ok {
		return view, nil
	}

	query := `SELECT ` + recordColumns + ` FROM records WHERE id = $1`
	view, err := scanView(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}

	r.CacheRecordView(ctx, view)
	return view, nil
}

func (r *RecordReadRepository) List(ctx context.Context, q cqrs.ListRecordsQuery) ([]models.RecordView, error) {
	query, args := buildListQuery(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	views := make([]models.RecordView, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		views = append(views, *view)
	}
	return views, rows.Err()
}

// Summary totals the user's records per type and category in [from, to).
func (r *RecordReadRepository) Summary(ctx context.Context, q cqrs.SummarizeRecordsQuery) ([]models.CategorySummary, error) {
	query, args := buildSummaryQuery(q)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise records: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.CategorySummary, 0)
	for rows.Next() {
		var s models.CategorySummary
		if err := rows.Scan(&s.Type, &s.Category, &s.Total, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *RecordReadRepository) CacheRecordView(ctx context.Context, view *models.RecordView) {
	r.cache.Set(ctx, recordViewKeyPrefix+view.ID, view)
}

func (r *RecordReadRepository) InvalidateRecordView(ctx context.Context, recordID string) {
	r.cache.Delete(ctx, recordViewKeyPrefix+recordID)
}

// whereBuilder accumulates AND-ed conditions with numbered placeholders.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(w.args))))
}

func (w *whereBuilder) String() string {
	return strings.Join(w.conds, " AND ")
}

func buildListQuery(q cqrs.ListRecordsQuery) (string, []any) {
	var w whereBuilder
	w.add("user_id = ?", q.UserID)
	if q.AccountID != "" {
		w.add("account_id = ?", q.AccountID)
	}
	if q.Category != "" {
		w.add("category = ?", q.Category)
	}
	if q.Type != "" {
		w.add("type = ?", q.Type)
	}
	if !q.From.IsZero() {
		w.add("occurred_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		w.add("occurred_at < ?", q.To)
	}
	query := `SELECT ` + recordColumns + ` FROM records WHERE ` + w.String() +
		fmt.Sprintf(` ORDER BY occurred_at DESC, id LIMIT $%d OFFSET $%d`, len(w.args)+1, len(w.args)+2)
	return query, append(w.args, q.Limit, q.Offset)
}

func buildSummaryQuery(q cqrs.SummarizeRecordsQuery) (string, []any) {
	var w whereBuilder
	w.add("user_id = ?", q.UserID)
	if !q.From.IsZero() {
		w.add("occurred_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		w.add("occurred_at < ?", q.To)
	}
	query := `SELECT type, category, SUM(amount), COUNT(*) FROM records WHERE ` + w.String() +
		` GROUP BY type, category ORDER BY type, SUM(amount) DESC`
	return query, w.args
}
