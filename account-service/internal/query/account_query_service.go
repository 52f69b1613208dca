package query

import (
	"context"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

type AccountReader interface {
	GetByID(ctx context.Context, id string) (*models.AccountView, error)
	ListByUserID(ctx context.Context, userID string) ([]models.AccountView, error)
	SummaryByUserID(ctx context.Context, userID string) ([]models.BalanceSummary, error)
}

type AccountQueryService struct {
	readRepo AccountReader
}

func NewAccountQueryService(readRepo AccountReader) *AccountQueryService {
	return &AccountQueryService{readRepo: readRepo}
}

// GetAccount fetches a single account view and enforces ownership.
func (s *AccountQueryService) GetAccount(ctx context.Context, q cqrs.GetAccountQuery) (*models.AccountView, error) {
	view, err := s.readRepo.GetByID(ctx, q.AccountID)
	if err != nil {
		return nil, err
	}
	// The AccountView carries UserID (json:"-") for this purpose.
	if view.UserID != q.RequestingUserID {
		return nil, errs.ErrForbidden
	}
	return view, nil
}

func (s *AccountQueryService) ListAccounts(ctx context.Context, q cqrs.ListAccountsQuery) ([]models.AccountView, error) {
	return s.readRepo.ListByUserID(ctx, q.UserID)
}

func (s *AccountQueryService) Summary(ctx context.Context, q cqrs.SummarizeAccountsQuery) ([]models.BalanceSummary, error) {
	return s.readRepo.SummaryByUserID(ctx, q.UserID)
}
