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

const (
	userViewKeyPrefix     = "user:view:"
	accountCountKeyPrefix = "user:accounts:"
)

// UserReadRepository handles all read operations for users.
// It uses Redis as the primary read store, falling back to PostgreSQL on a miss.
// It also owns the per-user account counter projected from account events.
type UserReadRepository struct {
	db     *sql.DB
	redis  *goredis.Client
	cache  *sharedredis.ViewCache[models.UserView]
	dedupe *sharedredis.Deduper
}

func NewUserReadRepository(db *sql.DB, redisClient *goredis.Client) *UserReadRepository {
	return &UserReadRepository{
		db:     db,
		redis:  redisClient,
		cache:  sharedredis.NewViewCache[models.UserView](redisClient, 0),
		dedupe: sharedredis.NewDeduper(redisClient, "user-service"),
	}
}

// GetByID returns a UserView from Redis first, then PostgreSQL.
func (r *UserReadRepository) GetByID(ctx context.Context, id string) (*models.UserView, error) {
	cacheKey := userViewKeyPrefix + id

	view, ok := r.cache.Get(ctx, cacheKey)
	if !ok {
		query := `
			SELECT id, username, email, display_name, role, created_at, updated_at
			FROM users
			WHERE id = $1 AND deleted_at IS NULL
		`
		view = &models.UserView{}
		err := r.db.QueryRowContext(ctx, query, id).Scan(
			&view.ID, &view.Username, &view.Email, &view.DisplayName, &view.Role,
			&view.CreatedAt, &view.UpdatedAt,
		)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errs.ErrUserNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get user: %w", err)
		}
		r.CacheUserView(ctx, view)
	}

	count, err := r.AccountCount(ctx, id)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("account count unavailable")
	}
	view.AccountCount = count
	return view, nil
}

// List returns users ordered by creation time. It always reads PostgreSQL.
func (r *UserReadRepository) List(ctx context.Context, limit, offset int) ([]*models.UserView, error) {
	query := `
		SELECT id, username, email, display_name, role, created_at, updated_at
		FROM users
		WHERE deleted_at IS NULL
		ORDER BY created_at
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	views := make([]*models.UserView, 0)
	for rows.Next() {
		var v models.UserView
		if err := rows.Scan(&v.ID, &v.Username, &v.Email, &v.DisplayName, &v.Role, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		views = append(views, &v)
	}
	return views, rows.Err()
}

// CacheUserView stores or refreshes the Redis read model for a user.
// Called by the command service after every mutation.
func (r *UserReadRepository) CacheUserView(ctx context.Context, view *models.UserView) {
	r.cache.Set(ctx, userViewKeyPrefix+view.ID, view)
}

// InvalidateUserView removes the Redis read model entry for a deleted user.
func (r *UserReadRepository) InvalidateUserView(ctx context.Context, userID string) {
	r.cache.Delete(ctx, userViewKeyPrefix+userID)
}

// AccountCount is the larger of the counter projected from account events
// and the size of account-service's open-account set for the user. The set
// is written before the event is published and rebuilt when account-service
// starts, so it covers a lagging consumer or a flushed counter.
func (r *UserReadRepository) AccountCount(ctx context.Context, userID string) (int64, error) {
	var counter *goredis.StringCmd
	var indexed *goredis.IntCmd
	_, err := r.redis.Pipelined(ctx, func(p goredis.Pipeliner) error {
		counter = p.Get(ctx, accountCountKeyPrefix+userID)
		indexed = p.SCard(ctx, models.AccountsByUserKey(userID))
		return nil
	})
	if err != nil && !errors.Is(err, goredis.Nil) {
		return 0, err
	}
	if err := indexed.Err(); err != nil {
		return 0, err
	}
	n, err := counter.Int64()
	if err != nil && !errors.Is(err, goredis.Nil) {
		return 0, err
	}
	return max(n, indexed.Val()), nil
}

// HasActiveAccounts reports whether the user has any open account.
func (r *UserReadRepository) HasActiveAccounts(ctx context.Context, userID string) (bool, error) {
	n, err := r.AccountCount(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to read account count: %w", err)
	}
	return n > 0, nil
}

func (r *UserReadRepository) IncrAccountCount(ctx context.Context, userID string) error {
	return r.redis.Incr(ctx, accountCountKeyPrefix+userID).Err()
}

// DecrAccountCount never takes the counter below zero.
func (r *UserReadRepository) DecrAccountCount(ctx context.Context, userID string) error {
	n, err := r.redis.Decr(ctx, accountCountKeyPrefix+userID).Result()
	if err != nil {
		return err
	}
	if n < 0 {
		return r.redis.Set(ctx, accountCountKeyPrefix+userID, 0, 0).Err()
	}
	return nil
}

func (r *UserReadRepository) EventProcessed(ctx context.Context, eventID string) bool {
	return r.dedupe.Processed(ctx, eventID)
}

func (r *UserReadRepository) MarkEventProcessed(ctx context.Context, eventID string) {
	r.dedupe.MarkProcessed(ctx, eventID)
}
