package command

import (
	"context"
	"errors"
	"fmt"
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

const DefaultCurrency = "USD"

// AccountStore is the PostgreSQL write model.
type AccountStore interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
	ApplyDelta(ctx context.Context, id string, delta decimal.Decimal) (*models.Account, error)
	Delete(ctx context.Context, id string) error
}

// AccountViews is the Redis read model.
type AccountViews interface {
	CacheAccountView(ctx context.Context, view *models.AccountView)
	InvalidateAccountView(ctx context.Context, userID, accountID string)
	EventProcessed(ctx context.Context, eventID string) bool
	MarkEventProcessed(ctx context.Context, eventID string)
}

type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) (string, error)
}

// AccountCommandService writes account state and keeps the read model in sync.
type AccountCommandService struct {
	writeRepo AccountStore
	readRepo  AccountViews
	publisher Publisher
}

func NewAccountCommandService(writeRepo AccountStore, readRepo AccountViews, publisher Publisher) *AccountCommandService {
	return &AccountCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		publisher: publisher,
	}
}

func (s *AccountCommandService) CreateAccount(ctx context.Context, cmd cqrs.CreateAccountCommand) (*models.AccountView, error) {
	currency := strings.ToUpper(cmd.Currency)
	if currency == "" {
		currency = DefaultCurrency
	}
	now := time.Now().UTC()
	account := &models.Account{
		ID:          utils.GenerateID(utils.PrefixAccount),
		UserID:      cmd.UserID,
		Name:        cmd.Name,
		AccountType: cmd.AccountType,
		Balance:     decimal.Zero,
		Currency:    currency,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	if err := s.writeRepo.Create(ctx, account); err != nil {
		return nil, err
	}
	view := accountToView(account)
	s.readRepo.CacheAccountView(ctx, view)
	s.publish(ctx, events.AccountCreated, events.AccountCreatedEvent{
		AccountID:   account.ID,
		UserID:      account.UserID,
		Name:        account.Name,
		AccountType: account.AccountType,
		Currency:    account.Currency,
	})
	return view, nil
}

func (s *AccountCommandService) UpdateAccount(ctx context.Context, cmd cqrs.UpdateAccountCommand) (*models.AccountView, error) {
	account, err := s.ownedAccount(ctx, cmd.AccountID, cmd.RequestingUserID)
	if err != nil {
		return nil, err
	}
	if cmd.Name != "" {
		account.Name = cmd.Name
	}
	if cmd.AccountType != "" {
		account.AccountType = cmd.AccountType
	}
	account.UpdatedAt = time.Now().UTC()
	// The balance read above may already be stale; cache the committed row.
	account, err = s.writeRepo.Update(ctx, account)
	if err != nil {
		return nil, err
	}
	view := accountToView(account)
	s.readRepo.CacheAccountView(ctx, view)
	s.publish(ctx, events.AccountUpdated, events.AccountUpdatedEvent{
		AccountID:   account.ID,
		UserID:      account.UserID,
		Name:        account.Name,
		AccountType: account.AccountType,
	})
	return view, nil
}

// DeleteAccount soft-deletes the account. Its records are left in place.
func (s *AccountCommandService) DeleteAccount(ctx context.Context, cmd cqrs.DeleteAccountCommand) error {
	account, err := s.ownedAccount(ctx, cmd.AccountID, cmd.RequestingUserID)
	if err != nil {
		return err
	}
	if err := s.writeRepo.Delete(ctx, account.ID); err != nil {
		return err
	}
	s.readRepo.InvalidateAccountView(ctx, account.UserID, account.ID)
	s.publish(ctx, events.AccountDeleted, events.AccountDeletedEvent{
		AccountID: account.ID,
		UserID:    account.UserID,
	})
	return nil
}

// HandleRecordEvent is the Redis stream subscriber handler for record.events.
// Each event's signed delta is applied to the balance at most once.
func (s *AccountCommandService) HandleRecordEvent(ctx context.Context, event events.Event) error {
	switch event.Type {
	case events.RecordCreated, events.RecordUpdated, events.RecordDeleted:
	default:
		return nil
	}
	var data events.RecordEvent
	if err := event.Decode(&data); err != nil {
		return err
	}
	log := logging.Ctx(ctx).With().Str("type", event.Type).Str("account", data.AccountID).Logger()

	if s.readRepo.EventProcessed(ctx, event.ID) {
		log.Debug().Msg("duplicate record event skipped")
		return nil
	}
	if data.Delta.IsZero() {
		s.readRepo.MarkEventProcessed(ctx, event.ID)
		return nil
	}

	account, err := s.writeRepo.ApplyDelta(ctx, data.AccountID, data.Delta)
	if errors.Is(err, errs.ErrAccountNotFound) {
		// Account was deleted after the record was written; nothing to update.
		log.Warn().Str("record", data.RecordID).Msg("record event for unknown account skipped")
		s.readRepo.MarkEventProcessed(ctx, event.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to apply %s to %s: %w", event.Type, data.AccountID, err)
	}
	s.readRepo.MarkEventProcessed(ctx, event.ID)
	s.readRepo.CacheAccountView(ctx, accountToView(account))

	s.publish(ctx, events.BalanceUpdated, events.BalanceUpdatedEvent{
		AccountID:  account.ID,
		UserID:     account.UserID,
		NewBalance: account.Balance,
		Change:     data.Delta,
	})
	log.Info().Str("balance", account.Balance.StringFixed(2)).Msg("balance updated")
	return nil
}

func (s *AccountCommandService) ownedAccount(ctx context.Context, accountID, userID string) (*models.Account, error) {
	account, err := s.writeRepo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if account.UserID != userID {
		return nil, errs.ErrForbidden
	}
	return account, nil
}

func (s *AccountCommandService) publish(ctx context.Context, eventType string, data any) {
	if _, err := s.publisher.Publish(ctx, events.AccountEventsStream, eventType, data); err != nil {
		logging.Ctx(ctx).Error().Err(err).Str("type", eventType).Msg("failed to publish account event")
	}
}

func accountToView(a *models.Account) *models.AccountView {
	return &models.AccountView{
		ID:          a.ID,
		UserID:      a.UserID,
		Name:        a.Name,
		AccountType: a.AccountType,
		Balance:     a.Balance,
		Currency:    a.Currency,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
		Version:     a.Version,
	}
}
