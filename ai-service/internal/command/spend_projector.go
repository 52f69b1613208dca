package command

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/pennywise/finance/ai-service/internal/repository"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/logging"
)

// SpendProjector folds record events into the per-month spend totals.
type SpendProjector struct {
	store SpendStore
}

func NewSpendProjector(store SpendStore) *SpendProjector {
	return &SpendProjector{store: store}
}

func (p *SpendProjector) HandleRecordEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.RecordCreated, events.RecordUpdated, events.RecordDeleted:
	default:
		return nil
	}
	if p.store.EventProcessed(ctx, event.ID) {
		logging.Ctx(ctx).Debug().Str("event_id", event.ID).Msg("record event already projected")
		return nil
	}

	var data events.RecordEvent
	if err := event.Decode(&data); err != nil {
		return err
	}

	changes := spendChanges(event.Type, data)
	if len(changes) == 0 {
		logging.Ctx(ctx).Warn().Str("record_id", data.RecordID).Str("type", event.Type).
			Msg("record event carries no usable state, skipped")
	}
	if err := p.store.Apply(ctx, data.UserID, changes); err != nil {
		return err
	}
	p.store.MarkEventProcessed(ctx, event.ID)
	return nil
}

func spendChanges(eventType string, e events.RecordEvent) []repository.SpendChange {
	switch eventType {
	case events.RecordCreated:
		return []repository.SpendChange{spendChange(e.Record, 1)}
	case events.RecordUpdated:
		if e.Previous == nil {
			return nil
		}
		return []repository.SpendChange{spendChange(*e.Previous, -1), spendChange(e.Record, 1)}
	case events.RecordDeleted:
		return []repository.SpendChange{spendChange(e.Record, -1)}
	}
	return nil
}

func spendChange(s events.RecordState, sign int64) repository.SpendChange {
	return repository.SpendChange{
		Month:    s.OccurredAt,
		Type:     s.Type,
		Category: s.Category,
		Amount:   s.Amount.Mul(decimal.NewFromInt(sign)),
		Count:    sign,
	}
}
