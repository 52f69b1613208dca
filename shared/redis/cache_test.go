package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
)

type testView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newTestClient(t *testing.T) (*miniredis.Miniredis, *goredis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestViewCacheRoundTrip(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewViewCache[testView](client, 0)
	ctx := context.Background()

	if _, ok := cache.Get(ctx, "view:1"); ok {
		t.Fatal("expected miss on empty cache")
	}

	cache.Set(ctx, "view:1", &testView{ID: "1", Name: "groceries"})
	got, ok := cache.Get(ctx, "view:1")
	if !ok {
		t.Fatal("expected hit after Set")
	}
	if got.Name != "groceries" {
		t.Errorf("Name = %q, want groceries", got.Name)
	}

	cache.Delete(ctx, "view:1")
	if _, ok := cache.Get(ctx, "view:1"); ok {
		t.Error("expected miss after Delete")
	}
}

func TestViewCacheTTL(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewViewCache[testView](client, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "view:ttl", &testView{ID: "ttl"})
	if ttl := mr.TTL("view:ttl"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
	mr.FastForward(2 * time.Minute)
	if _, ok := cache.Get(ctx, "view:ttl"); ok {
		t.Error("expected entry to expire")
	}
}

func TestViewCacheCorruptEntry(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewViewCache[testView](client, 0)

	if err := mr.Set("view:bad", "{not json"); err != nil {
		t.Fatal(err)
	}
	if _, ok := cache.Get(context.Background(), "view:bad"); ok {
		t.Error("corrupt entry should be reported as a miss")
	}
}

func TestDeduper(t *testing.T) {
	mr, client := newTestClient(t)
	d := NewDeduper(client, "account-service")
	ctx := context.Background()

	if d.Processed(ctx, "evt-1") {
		t.Fatal("fresh id reported as processed")
	}
	d.MarkProcessed(ctx, "evt-1")
	if !d.Processed(ctx, "evt-1") {
		t.Fatal("marked id not reported as processed")
	}
	if ttl := mr.TTL("processed:account-service:evt-1"); ttl != 72*time.Hour {
		t.Errorf("marker TTL = %v, want 72h", ttl)
	}
	if NewDeduper(client, "user-service").Processed(ctx, "evt-1") {
		t.Error("markers must be scoped per consumer")
	}
}

type versionedView struct {
	ID      string `json:"id"`
	Balance string `json:"balance"`
	Version int64  `json:"version"`
}

func TestViewCacheSetNewer(t *testing.T) {
	_, client := newTestClient(t)
	cache := NewViewCache[versionedView](client, 0)
	ctx := context.Background()

	if !cache.SetNewer(ctx, "acct:1", &versionedView{ID: "1", Balance: "0", Version: 1}, 1) {
		t.Fatal("first write skipped")
	}
	if !cache.SetNewer(ctx, "acct:1", &versionedView{ID: "1", Balance: "-10", Version: 3}, 3) {
		t.Fatal("newer write skipped")
	}
	// A writer that read version 2 finishes late.
	if cache.SetNewer(ctx, "acct:1", &versionedView{ID: "1", Balance: "0", Version: 2}, 2) {
		t.Error("stale write applied")
	}
	got, ok := cache.Get(ctx, "acct:1")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Balance != "-10" || got.Version != 3 {
		t.Errorf("cached = %+v, want balance -10 at version 3", got)
	}

	if !cache.SetNewer(ctx, "acct:1", &versionedView{ID: "1", Balance: "-10", Version: 3}, 3) {
		t.Error("same-version rewrite skipped")
	}
}

func TestViewCacheSetNewerKeepsTTL(t *testing.T) {
	mr, client := newTestClient(t)
	cache := NewViewCache[versionedView](client, time.Minute)
	ctx := context.Background()

	cache.SetNewer(ctx, "acct:ttl", &versionedView{ID: "ttl", Version: 1}, 1)
	if ttl := mr.TTL("acct:ttl"); ttl != time.Minute {
		t.Errorf("TTL = %v, want 1m", ttl)
	}
}
