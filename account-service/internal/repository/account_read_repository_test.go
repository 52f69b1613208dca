package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/pennywise/finance/shared/models"
)

func newReadRepo(t *testing.T) *AccountReadRepository {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAccountReadRepository(nil, client)
}

func TestCacheAccountViewDropsStaleVersion(t *testing.T) {
	repo := newReadRepo(t)
	ctx := context.Background()

	base := models.AccountView{ID: "acc-1", UserID: "usr-1", Name: "Cash", Currency: "USD"}

	fresh := base
	fresh.Balance = decimal.NewFromInt(-10)
	fresh.Version = 2
	repo.CacheAccountView(ctx, &fresh)

	stale := base
	stale.Name = "Wallet"
	stale.Version = 1
	repo.CacheAccountView(ctx, &stale)

	got, err := repo.GetByID(ctx, "acc-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !got.Balance.Equal(decimal.NewFromInt(-10)) || got.Name != "Cash" || got.Version != 2 {
		t.Errorf("cached view = %+v, want version 2 with balance -10", got)
	}
	if got.UserID != "usr-1" {
		t.Errorf("UserID = %q", got.UserID)
	}
}

func TestAccountViewsIndexedByUser(t *testing.T) {
	repo := newReadRepo(t)
	ctx := context.Background()
	key := models.AccountsByUserKey("usr-1")

	repo.CacheAccountView(ctx, &models.AccountView{ID: "acc-1", UserID: "usr-1", Version: 1})
	repo.CacheAccountView(ctx, &models.AccountView{ID: "acc-2", UserID: "usr-1", Version: 1})
	if n := repo.redis.SCard(ctx, key).Val(); n != 2 {
		t.Fatalf("indexed accounts = %d, want 2", n)
	}

	repo.InvalidateAccountView(ctx, "usr-1", "acc-1")
	if ids := repo.redis.SMembers(ctx, key).Val(); len(ids) != 1 || ids[0] != "acc-2" {
		t.Errorf("indexed accounts = %v, want [acc-2]", ids)
	}
	if _, err := repo.GetByID(ctx, "acc-2"); err != nil {
		t.Errorf("GetByID(acc-2): %v", err)
	}
}
