package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/pennywise/finance/shared/models"
	sharedredis "github.com/pennywise/finance/shared/redis"
)

const (
	spendKeyPrefix = "spend:"
	spendTTL       = 400 * 24 * time.Hour

	// Totals are stored as integers in units of 10^-amountScale so that
	// HINCRBY stays exact.
	amountScale = 4
	countMarker = "#"
	fieldSep    = "|"
)

// SpendChange is one adjustment to a month's per-category totals.
type SpendChange struct {
	Month    time.Time
	Type     string
	Category string
	Amount   decimal.Decimal
	Count    int64
}

// SpendRepository keeps month-to-date totals per type and category in Redis
// hashes keyed spend:{userId}:{YYYY-MM}.
type SpendRepository struct {
	client *goredis.Client
	dedupe *sharedredis.Deduper
}

func NewSpendRepository(client *goredis.Client) *SpendRepository {
	return &SpendRepository{
		client: client,
		dedupe: sharedredis.NewDeduper(client, "ai-service-spend"),
	}
}

func SpendKey(userID string, month time.Time) string {
	return spendKeyPrefix + userID + ":" + month.UTC().Format("2006-01")
}

func amountField(recordType, category string) string {
	return recordType + fieldSep + category
}

// Apply writes all changes in one MULTI/EXEC.
func (r *SpendRepository) Apply(ctx context.Context, userID string, changes []SpendChange) error {
	if len(changes) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		touched := map[string]bool{}
		for _, ch := range changes {
			key := SpendKey(userID, ch.Month)
			field := amountField(ch.Type, ch.Category)
			pipe.HIncrBy(ctx, key, field, ch.Amount.Shift(amountScale).IntPart())
			pipe.HIncrBy(ctx, key, countMarker+field, ch.Count)
			touched[key] = true
		}
		for key := range touched {
			pipe.Expire(ctx, key, spendTTL)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to update spend totals: %w", err)
	}
	return nil
}

// Month returns the totals for the month containing month, expenses first
// and largest first within each type. Categories netted back to zero are
// omitted.
func (r *SpendRepository) Month(ctx context.Context, userID string, month time.Time) ([]models.CategorySummary, error) {
	fields, err := r.client.HGetAll(ctx, SpendKey(userID, month)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read spend totals: %w", err)
	}
	return parseSpend(fields), nil
}

func parseSpend(fields map[string]string) []models.CategorySummary {
	summaries := make([]models.CategorySummary, 0, len(fields)/2)
	for field, raw := range fields {
		if strings.HasPrefix(field, countMarker) {
			continue
		}
		recordType, category, ok := strings.Cut(field, fieldSep)
		if !ok {
			continue
		}
		units, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || units == 0 {
			continue
		}
		count, _ := strconv.Atoi(fields[countMarker+field])
		summaries = append(summaries, models.CategorySummary{
			Category: category,
			Type:     recordType,
			Total:    decimal.New(units, -amountScale),
			Count:    count,
		})
	}
	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Type != summaries[j].Type {
			return summaries[i].Type == models.RecordTypeExpense
		}
		if c := summaries[i].Total.Cmp(summaries[j].Total); c != 0 {
			return c > 0
		}
		return summaries[i].Category < summaries[j].Category
	})
	return summaries
}

func (r *SpendRepository) EventProcessed(ctx context.Context, eventID string) bool {
	return r.dedupe.Processed(ctx, eventID)
}

func (r *SpendRepository) MarkEventProcessed(ctx context.Context, eventID string) {
	r.dedupe.MarkProcessed(ctx, eventID)
}
