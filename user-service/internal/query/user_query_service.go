package query

import (
	"context"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

type UserReader interface {
	GetByID(ctx context.Context, id string) (*models.UserView, error)
	List(ctx context.Context, limit, offset int) ([]*models.UserView, error)
}

// UserQueryService reads user views from the Redis cache (with a Postgres fallback).
type UserQueryService struct {
	readRepo UserReader
}

func NewUserQueryService(readRepo UserReader) *UserQueryService {
	return &UserQueryService{readRepo: readRepo}
}

func (s *UserQueryService) GetUser(ctx context.Context, q cqrs.GetUserQuery) (*models.UserView, error) {
	if q.UserID != q.RequestingUserID && q.RequestingRole != models.RoleAdmin {
		return nil, errs.ErrForbidden
	}
	return s.readRepo.GetByID(ctx, q.UserID)
}

func (s *UserQueryService) ListUsers(ctx context.Context, q cqrs.ListUsersQuery) ([]*models.UserView, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	return s.readRepo.List(ctx, limit, offset)
}
