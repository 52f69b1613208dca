package repository

import (
	"context"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
	sharedredis "github.com/pennywise/finance/shared/redis"
)

// AccountSnapshotRepository reads the account snapshots account-service
// writes to Redis. It is the only view record-service has of accounts.
type AccountSnapshotRepository struct {
	cache *sharedredis.ViewCache[models.AccountSnapshot]
}

func NewAccountSnapshotRepository(redisClient *goredis.Client) *AccountSnapshotRepository {
	return &AccountSnapshotRepository{
		cache: sharedredis.NewViewCache[models.AccountSnapshot](redisClient, 0),
	}
}

// GetAccount returns the snapshot, or ErrAccountNotFound if account-service
// has not published one (unknown or deleted account).
func (r *AccountSnapshotRepository) GetAccount(ctx context.Context, accountID string) (*models.AccountSnapshot, error) {
	snap, ok := r.cache.Get(ctx, models.AccountSnapshotKeyPrefix+accountID)
	if !ok {
		return nil, errs.ErrAccountNotFound
	}
	return snap, nil
}
