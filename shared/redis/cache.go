package redis

import (
	"context"
	"errors"
	"time"

	"github.com/goccy/go-json"
	goredis "github.com/redis/go-redis/v9"

	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/metrics"
)

// ViewCache is a generic JSON-backed Redis cache for read model projections.
// Bind it to a specific view type T; each instance holds a Redis client and an
// optional TTL (pass 0 for keys that should not expire).
type ViewCache[T any] struct {
	client *goredis.Client
	ttl    time.Duration
}

// NewViewCache creates a ViewCache backed by the provided Redis client.
func NewViewCache[T any](client *goredis.Client, ttl time.Duration) *ViewCache[T] {
	return &ViewCache[T]{client: client, ttl: ttl}
}

// Get retrieves and unmarshals a value from Redis.
// Returns (nil, false) on any miss or deserialisation error.
func (c *ViewCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("view cache read failed")
		}
		metrics.RecordCacheLookup(false)
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("view cache entry is corrupt")
		metrics.RecordCacheLookup(false)
		return nil, false
	}
	metrics.RecordCacheLookup(true)
	return &v, true
}

// Set marshals value and stores it in Redis under key.
// Errors are logged rather than returned; a failed cache write is non-fatal.
func (c *ViewCache[T]) Set(ctx context.Context, key string, value *T) {
	data, err := json.Marshal(value)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("view cache marshal failed")
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("view cache write failed")
	}
}

// Delete removes a key from Redis.
func (c *ViewCache[T]) Delete(ctx context.Context, key string) {
	if err := c.client.Del(ctx, key).Err(); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("view cache delete failed")
	}
}

// setNewerScript writes ARGV[1] unless the stored JSON document carries a
// "version" greater than ARGV[2].
var setNewerScript = goredis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if cur then
	local ok, doc = pcall(cjson.decode, cur)
	if ok and type(doc) == 'table' then
		local v = tonumber(doc['version'])
		if v and v > tonumber(ARGV[2]) then
			return 0
		end
	end
end
if tonumber(ARGV[3]) > 0 then
	redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
else
	redis.call('SET', KEYS[1], ARGV[1])
end
return 1
`)

// SetNewer stores value unless the cached entry has a higher version. T must
// serialise version under the "version" key. It reports whether value was
// written.
func (c *ViewCache[T]) SetNewer(ctx context.Context, key string, value *T, version int64) bool {
	data, err := json.Marshal(value)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("view cache marshal failed")
		return false
	}
	written, err := setNewerScript.Run(ctx, c.client, []string{key}, data, version, c.ttl.Milliseconds()).Int()
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("key", key).Msg("view cache write failed")
		return false
	}
	if written == 0 {
		logging.Ctx(ctx).Debug().Str("key", key).Int64("version", version).Msg("stale view cache write skipped")
	}
	return written == 1
}
