package command

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/models"
	"github.com/pennywise/finance/shared/utils"
)

// RecordStore is the PostgreSQL write model.
type RecordStore interface {
	Create(ctx context.Context, rec *models.TransactionRecord) error
	GetByID(ctx context.Context, id string) (*models.TransactionRecord, error)
	Update(ctx context.Context, rec *models.TransactionRecord) error
	Delete(ctx context.Context, id string) error
}

// RecordViews is the Redis read model.
type RecordViews interface {
	CacheRecordView(ctx context.Context, view *models.RecordView)
	InvalidateRecordView(ctx context.Context, recordID string)
}

// AccountLookup resolves account ownership from account-service snapshots.
type AccountLookup interface {
	GetAccount(ctx context.Context, accountID string) (*models.AccountSnapshot, error)
}

// SearchIndexer keeps the search copy of records current.
type SearchIndexer interface {
	Index(ctx context.Context, doc *models.RecordDocument) error
	Delete(ctx context.Context, id string) error
}

type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) (string, error)
}

// RecordCommandService writes records to PostgreSQL, then mirrors them to
// Redis and the search index and announces the change. Mirror and publish
// failures are logged; the database write is what the caller sees.
type RecordCommandService struct {
	writeRepo RecordStore
	readRepo  RecordViews
	accounts  AccountLookup
	index     SearchIndexer
	publisher Publisher
}

func NewRecordCommandService(
	writeRepo RecordStore,
	readRepo RecordViews,
	accounts AccountLookup,
	index SearchIndexer,
	publisher Publisher,
) *RecordCommandService {
	return &RecordCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		accounts:  accounts,
		index:     index,
		publisher: publisher,
	}
}

// Amounts are stored as NUMERIC(19,4).
const amountScale = 4

var maxAmount = decimal.New(1, 15)

func validAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.LessThan(maxAmount) && d.Equal(d.Truncate(amountScale))
}

func (s *RecordCommandService) CreateRecord(ctx context.Context, cmd cqrs.CreateRecordCommand) (*models.RecordView, error) {
	if !validAmount(cmd.Amount) {
		return nil, errs.ErrInvalidAmount
	}
	category := strings.TrimSpace(cmd.Category)
	if category == "" {
		return nil, errs.ErrInvalidCategory
	}
	account, err := s.accounts.GetAccount(ctx, cmd.AccountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != cmd.UserID {
		return nil, errs.ErrForbidden
	}

	now := time.Now().UTC()
	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = now
	}
	rec := &models.TransactionRecord{
		ID:          utils.GenerateID(utils.PrefixRecord),
		AccountID:   cmd.AccountID,
		UserID:      cmd.UserID,
		Amount:      cmd.Amount,
		Type:        cmd.Type,
		Category:    category,
		Description: strings.TrimSpace(cmd.Description),
		OccurredAt:  occurredAt.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.writeRepo.Create(ctx, rec); err != nil {
		return nil, err
	}
	view := recordToView(rec)
	s.mirror(ctx, rec, view)

	s.publish(ctx, events.RecordEventsStream, events.RecordCreated, events.RecordEvent{
		RecordID:  rec.ID,
		AccountID: rec.AccountID,
		UserID:    rec.UserID,
		Record:    stateOf(rec),
		Delta:     rec.SignedAmount(),
	})
	s.publish(ctx, events.AnalysisQueue, events.AnalysisRequested, events.AnalysisRequest{
		RecordID:    rec.ID,
		AccountID:   rec.AccountID,
		UserID:      rec.UserID,
		Amount:      rec.Amount,
		Type:        rec.Type,
		Category:    rec.Category,
		Description: rec.Description,
		OccurredAt:  rec.OccurredAt,
	})
	return view, nil
}

// UpdateRecord applies a partial update. The account a record belongs to
// cannot change.
func (s *RecordCommandService) UpdateRecord(ctx context.Context, cmd cqrs.UpdateRecordCommand) (*models.RecordView, error) {
	rec, err := s.ownedRecord(ctx, cmd.RecordID, cmd.RequestingUserID)
	if err != nil {
		return nil, err
	}
	previous := stateOf(rec)
	oldSigned := rec.SignedAmount()

	if cmd.Amount != nil {
		if !validAmount(*cmd.Amount) {
			return nil, errs.ErrInvalidAmount
		}
		rec.Amount = *cmd.Amount
	}
	if cmd.Type != nil {
		rec.Type = *cmd.Type
	}
	if cmd.Category != nil {
		category := strings.TrimSpace(*cmd.Category)
		if category == "" {
			return nil, errs.ErrInvalidCategory
		}
		rec.Category = category
	}
	if cmd.Description != nil {
		rec.Description = strings.TrimSpace(*cmd.Description)
	}
	if cmd.OccurredAt != nil {
		rec.OccurredAt = cmd.OccurredAt.UTC()
	}
	rec.UpdatedAt = time.Now().UTC()

	if err := s.writeRepo.Update(ctx, rec); err != nil {
		return nil, err
	}
	view := recordToView(rec)
	s.mirror(ctx, rec, view)

	s.publish(ctx, events.RecordEventsStream, events.RecordUpdated, events.RecordEvent{
		RecordID:  rec.ID,
		AccountID: rec.AccountID,
		UserID:    rec.UserID,
		Record:    stateOf(rec),
		Previous:  &previous,
		Delta:     rec.SignedAmount().Sub(oldSigned),
	})
	return view, nil
}

func (s *RecordCommandService) DeleteRecord(ctx context.Context, cmd cqrs.DeleteRecordCommand) error {
	rec, err := s.ownedRecord(ctx, cmd.RecordID, cmd.RequestingUserID)
	if err != nil {
		return err
	}
	if err := s.writeRepo.Delete(ctx, rec.ID); err != nil {
		return err
	}
	s.readRepo.InvalidateRecordView(ctx, rec.ID)
	if err := s.index.Delete(ctx, rec.ID); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("record", rec.ID).Msg("failed to remove record from search index")
	}

	s.publish(ctx, events.RecordEventsStream, events.RecordDeleted, events.RecordEvent{
		RecordID:  rec.ID,
		AccountID: rec.AccountID,
		UserID:    rec.UserID,
		Record:    stateOf(rec),
		Delta:     rec.SignedAmount().Neg(),
	})
	return nil
}

func (s *RecordCommandService) ownedRecord(ctx context.Context, recordID, userID string) (*models.TransactionRecord, error) {
	rec, err := s.writeRepo.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		return nil, errs.ErrForbidden
	}
	return rec, nil
}

// mirror refreshes the Redis view and the search document.
func (s *RecordCommandService) mirror(ctx context.Context, rec *models.TransactionRecord, view *models.RecordView) {
	s.readRepo.CacheRecordView(ctx, view)
	if err := s.index.Index(ctx, DocumentOf(rec)); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("record", rec.ID).Msg("failed to index record")
	}
}

func (s *RecordCommandService) publish(ctx context.Context, stream, eventType string, data any) {
	if _, err := s.publisher.Publish(ctx, stream, eventType, data); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("stream", stream).Str("type", eventType).Msg("failed to publish record event")
	}
}

func stateOf(rec *models.TransactionRecord) events.RecordState {
	return events.RecordState{
		Amount:     rec.Amount,
		Type:       rec.Type,
		Category:   rec.Category,
		OccurredAt: rec.OccurredAt,
	}
}

func recordToView(r *models.TransactionRecord) *models.RecordView {
	return &models.RecordView{
		ID:          r.ID,
		AccountID:   r.AccountID,
		UserID:      r.UserID,
		Amount:      r.Amount,
		Type:        r.Type,
		Category:    r.Category,
		Description: r.Description,
		OccurredAt:  r.OccurredAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// DocumentOf builds the search document for a record.
func DocumentOf(r *models.TransactionRecord) *models.RecordDocument {
	amount, _ := r.Amount.Float64()
	return &models.RecordDocument{
		ID:          r.ID,
		AccountID:   r.AccountID,
		UserID:      r.UserID,
		Amount:      amount,
		Type:        r.Type,
		Category:    r.Category,
		Description: r.Description,
		OccurredAt:  r.OccurredAt,
	}
}
