package query

import (
	"context"
	"errors"
	"fmt"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
	"github.com/pennywise/finance/shared/models"
	"github.com/pennywise/finance/shared/utils"
)

// UserFinder is the subset of the user repository needed to authenticate.
type UserFinder interface {
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// AuthQueryService handles login and token refresh. There's no CommandService
// for auth because these operations don't mutate application state.
type AuthQueryService struct {
	users UserFinder
}

func NewAuthQueryService(users UserFinder) *AuthQueryService {
	return &AuthQueryService{users: users}
}

func (s *AuthQueryService) Login(ctx context.Context, cmd cqrs.LoginCommand) (string, error) {
	user, err := s.users.GetByUsername(ctx, cmd.Username)
	if err != nil {
		if !errors.Is(err, errs.ErrUserNotFound) {
			return "", err
		}
		// Same answer as a wrong password so usernames can't be probed.
		return "", errs.ErrInvalidCredentials
	}
	if !utils.CheckPassword(cmd.Password, user.PasswordHash) {
		logging.Ctx(ctx).Info().Str("username", cmd.Username).Msg("login rejected")
		return "", errs.ErrInvalidCredentials
	}
	return middleware.GenerateToken(user.ID, user.Username, user.Role)
}

// RefreshToken issues a fresh token for a still-valid one. The role is
// re-read so promotions and demotions take effect on refresh.
func (s *AuthQueryService) RefreshToken(ctx context.Context, cmd cqrs.RefreshTokenCommand) (string, error) {
	claims, err := middleware.ParseToken(cmd.Token)
	if err != nil {
		return "", err
	}
	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return "", errs.ErrInvalidToken
		}
		return "", fmt.Errorf("failed to load user for refresh: %w", err)
	}
	return middleware.GenerateToken(user.ID, user.Username, user.Role)
}
