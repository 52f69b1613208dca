package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pennywise/finance/shared/logging"
)

const processedTTL = 72 * time.Hour

// Deduper remembers which event IDs a consumer has already applied so that
// redelivered stream messages are skipped. Markers expire after 72h.
type Deduper struct {
	client *goredis.Client
	prefix string
}

// NewDeduper scopes markers under "processed:<scope>:".
func NewDeduper(client *goredis.Client, scope string) *Deduper {
	return &Deduper{client: client, prefix: "processed:" + scope + ":"}
}

// Processed reports whether id was marked. Redis errors count as "not
// processed" so the caller retries rather than silently skipping.
func (d *Deduper) Processed(ctx context.Context, id string) bool {
	n, err := d.client.Exists(ctx, d.prefix+id).Result()
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("event_id", id).Msg("dedupe lookup failed")
		return false
	}
	return n > 0
}

func (d *Deduper) MarkProcessed(ctx context.Context, id string) {
	if err := d.client.Set(ctx, d.prefix+id, "1", processedTTL).Err(); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("event_id", id).Msg("failed to mark event processed")
	}
}
