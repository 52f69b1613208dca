package repository

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
	sharedredis "github.com/pennywise/finance/shared/redis"
)

const analysisKeyPrefix = "analysis:"

// AnalysisRepository stores the latest analysis per record. Analyses live
// only in Redis and expire after the configured TTL.
type AnalysisRepository struct {
	cache *sharedredis.ViewCache[models.RecordAnalysis]
}

func NewAnalysisRepository(client *goredis.Client, ttl time.Duration) *AnalysisRepository {
	return &AnalysisRepository{cache: sharedredis.NewViewCache[models.RecordAnalysis](client, ttl)}
}

func (r *AnalysisRepository) Save(ctx context.Context, analysis *models.RecordAnalysis) {
	r.cache.Set(ctx, analysisKeyPrefix+analysis.RecordID, analysis)
}

func (r *AnalysisRepository) Get(ctx context.Context, recordID string) (*models.RecordAnalysis, error) {
	analysis, ok := r.cache.Get(ctx, analysisKeyPrefix+recordID)
	if !ok {
		return nil, errs.ErrAnalysisNotFound
	}
	return analysis, nil
}
