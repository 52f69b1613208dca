package query

import (
	"context"
	"time"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type RecordReader interface {
	GetByID(ctx context.Context, id string) (*models.RecordView, error)
	List(ctx context.Context, q cqrs.ListRecordsQuery) ([]models.RecordView, error)
	Summary(ctx context.Context, q cqrs.SummarizeRecordsQuery) ([]models.CategorySummary, error)
}

type RecordSearcher interface {
	Search(ctx context.Context, q cqrs.SearchRecordsQuery) ([]models.RecordDocument, error)
}

type RecordQueryService struct {
	readRepo RecordReader
	search   RecordSearcher
}

func NewRecordQueryService(readRepo RecordReader, search RecordSearcher) *RecordQueryService {
	return &RecordQueryService{readRepo: readRepo, search: search}
}

func (s *RecordQueryService) GetRecord(ctx context.Context, q cqrs.GetRecordQuery) (*models.RecordView, error) {
	view, err := s.readRepo.GetByID(ctx, q.RecordID)
	if err != nil {
		return nil, err
	}
	if view.UserID != q.RequestingUserID {
		return nil, errs.ErrForbidden
	}
	return view, nil
}

func (s *RecordQueryService) ListRecords(ctx context.Context, q cqrs.ListRecordsQuery) ([]models.RecordView, error) {
	if invalidRange(q.From, q.To) {
		return nil, errs.ErrInvalidPeriod
	}
	if q.Limit <= 0 {
		q.Limit = defaultListLimit
	}
	if q.Limit > maxListLimit {
		q.Limit = maxListLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	return s.readRepo.List(ctx, q)
}

func (s *RecordQueryService) SearchRecords(ctx context.Context, q cqrs.SearchRecordsQuery) ([]models.RecordDocument, error) {
	if invalidRange(q.From, q.To) {
		return nil, errs.ErrInvalidPeriod
	}
	return s.search.Search(ctx, q)
}

func (s *RecordQueryService) Summarize(ctx context.Context, q cqrs.SummarizeRecordsQuery) ([]models.CategorySummary, error) {
	if invalidRange(q.From, q.To) {
		return nil, errs.ErrInvalidPeriod
	}
	return s.readRepo.Summary(ctx, q)
}

// invalidRange reports a window whose end is not after its start. Open-ended
// windows are fine.
func invalidRange(from, to time.Time) bool {
	return !from.IsZero() && !to.IsZero() && !to.After(from)
}
