package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/models"
	sharedredis "github.com/pennywise/finance/shared/redis"
)

// AccountReadRepository handles all read operations for accounts.
// It treats Redis as the primary read store (the CQRS read model) and falls
// back to PostgreSQL transparently, warming the cache on every cold read.
// Cache entries are AccountSnapshots so record-service can check ownership
// from the same keys.
type AccountReadRepository struct {
	db     *sql.DB
	redis  *goredis.Client
	cache  *sharedredis.ViewCache[models.AccountSnapshot]
	dedupe *sharedredis.Deduper
}

func NewAccountReadRepository(db *sql.DB, redisClient *goredis.Client) *AccountReadRepository {
	return &AccountReadRepository{
		db:     db,
		redis:  redisClient,
		cache:  sharedredis.NewViewCache[models.AccountSnapshot](redisClient, 0),
		dedupe: sharedredis.NewDeduper(redisClient, "account-service"),
	}
}

const viewColumns = `id, user_id, name, account_type, balance, currency, created_at, updated_at, version`

func scanView(row interface{ Scan(...any) error }) (*models.AccountView, error) {
	var v models.AccountView
	err := row.Scan(&v.ID, &v.UserID, &v.Name, &v.AccountType, &v.Balance, &v.Currency, &v.CreatedAt, &v.UpdatedAt, &v.Version)
	return &v, err
}

// GetByID returns an AccountView, trying Redis first then PostgreSQL.
func (r *AccountReadRepository) GetByID(ctx context.Context, id string) (*models.AccountView, error) {
	if snap, ok := r.cache.Get(ctx, models.AccountSnapshotKeyPrefix+id); ok {
		return snap.View(), nil
	}

	query := `SELECT ` + viewColumns + ` FROM accounts WHERE id = $1 AND deleted_at IS NULL`
	view, err := scanView(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	// Warm the cache
	r.CacheAccountView(ctx, view)
	return view, nil
}

// ListByUserID returns all AccountViews for the given user from PostgreSQL.
func (r *AccountReadRepository) ListByUserID(ctx context.Context, userID string) ([]models.AccountView, error) {
	query := `
		SELECT ` + viewColumns + `
		FROM accounts
		WHERE user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	views := make([]models.AccountView, 0)
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		views = append(views, *view)
	}
	return views, rows.Err()
}

// SummaryByUserID totals the user's balances per currency.
func (r *AccountReadRepository) SummaryByUserID(ctx context.Context, userID string) ([]models.BalanceSummary, error) {
	query := `
		SELECT currency, COALESCE(SUM(balance), 0), COUNT(*)
		FROM accounts
		WHERE user_id = $1 AND deleted_at IS NULL
		GROUP BY currency
		ORDER BY currency
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarise accounts: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.BalanceSummary, 0)
	for rows.Next() {
		var s models.BalanceSummary
		if err := rows.Scan(&s.Currency, &s.Total, &s.AccountCount); err != nil {
			return nil, fmt.Errorf("failed to scan summary: %w", err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// WarmCache writes a snapshot for every active account and rebuilds the
// per-user account sets. Run at startup so other services can resolve
// ownership and open-account checks after a Redis flush.
func (r *AccountReadRepository) WarmCache(ctx context.Context) (int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+viewColumns+` FROM accounts WHERE deleted_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("failed to load accounts: %w", err)
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		view, err := scanView(rows)
		if err != nil {
			return n, fmt.Errorf("failed to scan account: %w", err)
		}
		r.CacheAccountView(ctx, view)
		n++
	}
	return n, rows.Err()
}

// CacheAccountView stores or refreshes the Redis read model for an account.
// A view older than the cached snapshot is discarded, so concurrent writers
// cannot roll a balance back.
func (r *AccountReadRepository) CacheAccountView(ctx context.Context, view *models.AccountView) {
	r.cache.SetNewer(ctx, models.AccountSnapshotKeyPrefix+view.ID, models.SnapshotOf(view), view.Version)
	if err := r.redis.SAdd(ctx, models.AccountsByUserKey(view.UserID), view.ID).Err(); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("account", view.ID).Msg("failed to index account under user")
	}
}

// InvalidateAccountView removes the Redis read model entries for a deleted account.
func (r *AccountReadRepository) InvalidateAccountView(ctx context.Context, userID, accountID string) {
	r.cache.Delete(ctx, models.AccountSnapshotKeyPrefix+accountID)
	if err := r.redis.SRem(ctx, models.AccountsByUserKey(userID), accountID).Err(); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("account", accountID).Msg("failed to unindex account")
	}
}

// EventProcessed returns true if this record event has already been applied
// to a balance. Guards against duplicate delivery under at-least-once
// Redis Streams semantics.
func (r *AccountReadRepository) EventProcessed(ctx context.Context, eventID string) bool {
	return r.dedupe.Processed(ctx, eventID)
}

func (r *AccountReadRepository) MarkEventProcessed(ctx context.Context, eventID string) {
	r.dedupe.MarkProcessed(ctx, eventID)
}
