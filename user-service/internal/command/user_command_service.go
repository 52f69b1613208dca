package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/pennywise/finance/shared/cqrs"
	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/events"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/models"
	"github.com/pennywise/finance/shared/utils"
)

// UserStore is the PostgreSQL write model.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	Delete(ctx context.Context, id string) error
}

// UserViews is the Redis read model plus the account-count projection.
type UserViews interface {
	CacheUserView(ctx context.Context, view *models.UserView)
	InvalidateUserView(ctx context.Context, userID string)
	HasActiveAccounts(ctx context.Context, userID string) (bool, error)
	IncrAccountCount(ctx context.Context, userID string) error
	DecrAccountCount(ctx context.Context, userID string) error
	EventProcessed(ctx context.Context, eventID string) bool
	MarkEventProcessed(ctx context.Context, eventID string)
}

type Publisher interface {
	Publish(ctx context.Context, stream, eventType string, data any) (string, error)
}

// UserCommandService writes user state to PostgreSQL and keeps the Redis
// read model up to date.
type UserCommandService struct {
	writeRepo UserStore
	readRepo  UserViews
	publisher Publisher
}

func NewUserCommandService(writeRepo UserStore, readRepo UserViews, publisher Publisher) *UserCommandService {
	return &UserCommandService{
		writeRepo: writeRepo,
		readRepo:  readRepo,
		publisher: publisher,
	}
}

func (s *UserCommandService) CreateUser(ctx context.Context, cmd cqrs.CreateUserCommand) (*models.User, error) {
	passwordHash, err := utils.HashPassword(cmd.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	displayName := cmd.DisplayName
	if displayName == "" {
		displayName = cmd.Username
	}
	now := time.Now().UTC()
	user := &models.User{
		ID:           utils.GenerateID(utils.PrefixUser),
		Username:     cmd.Username,
		Email:        strings.ToLower(cmd.Email),
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		Role:         models.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.writeRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.readRepo.CacheUserView(ctx, userToView(user))
	if _, err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserCreated, events.UserCreatedEvent{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to publish user.created event")
	}
	return user, nil
}

func (s *UserCommandService) UpdateUser(ctx context.Context, cmd cqrs.UpdateUserCommand) (*models.UserView, error) {
	user, err := s.writeRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return nil, err
	}
	if cmd.Email != "" {
		user.Email = strings.ToLower(cmd.Email)
	}
	if cmd.DisplayName != "" {
		user.DisplayName = cmd.DisplayName
	}
	user.UpdatedAt = time.Now().UTC()
	if err := s.writeRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	view := userToView(user)
	s.readRepo.CacheUserView(ctx, view)
	if _, err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserUpdated, events.UserUpdatedEvent{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
	}); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to publish user.updated event")
	}
	return view, nil
}

func (s *UserCommandService) ChangePassword(ctx context.Context, cmd cqrs.ChangePasswordCommand) error {
	user, err := s.writeRepo.GetByID(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(cmd.CurrentPassword, user.PasswordHash) {
		return errs.ErrInvalidCredentials
	}
	hash, err := utils.HashPassword(cmd.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.writeRepo.UpdatePassword(ctx, cmd.UserID, hash)
}

// DeleteUser rejects the operation if the user still has open accounts.
// Admins may delete anyone; other users only themselves.
func (s *UserCommandService) DeleteUser(ctx context.Context, cmd cqrs.DeleteUserCommand) error {
	if cmd.UserID != cmd.RequestingUserID && cmd.RequestingRole != models.RoleAdmin {
		return errs.ErrForbidden
	}
	hasAccounts, err := s.readRepo.HasActiveAccounts(ctx, cmd.UserID)
	if err != nil {
		return err
	}
	if hasAccounts {
		return errs.ErrUserHasAccounts
	}
	if err := s.writeRepo.Delete(ctx, cmd.UserID); err != nil {
		return err
	}
	s.readRepo.InvalidateUserView(ctx, cmd.UserID)
	if _, err := s.publisher.Publish(ctx, events.UserEventsStream, events.UserDeleted, events.UserDeletedEvent{
		UserID: cmd.UserID,
	}); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to publish user.deleted event")
	}
	return nil
}

// HandleAccountEvent is the Redis stream subscriber handler.
// It keeps the per-user account count in step with account.created and
// account.deleted; each event is applied at most once.
func (s *UserCommandService) HandleAccountEvent(ctx context.Context, event events.Event) error {
	var userID string
	var apply func(context.Context, string) error
	switch event.Type {
	case events.AccountCreated:
		var data events.AccountCreatedEvent
		if err := event.Decode(&data); err != nil {
			return err
		}
		userID, apply = data.UserID, s.readRepo.IncrAccountCount
	case events.AccountDeleted:
		var data events.AccountDeletedEvent
		if err := event.Decode(&data); err != nil {
			return err
		}
		userID, apply = data.UserID, s.readRepo.DecrAccountCount
	default:
		return nil
	}

	if s.readRepo.EventProcessed(ctx, event.ID) {
		logging.Ctx(ctx).Debug().Str("type", event.Type).Msg("duplicate account event skipped")
		return nil
	}
	if err := apply(ctx, userID); err != nil {
		return fmt.Errorf("failed to apply %s for %s: %w", event.Type, userID, err)
	}
	s.readRepo.MarkEventProcessed(ctx, event.ID)
	logging.Ctx(ctx).Info().Str("type", event.Type).Str("owner", userID).Msg("account count updated")
	return nil
}

func userToView(u *models.User) *models.UserView {
	return &models.UserView{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		Role:        u.Role,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
