package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/models"
)

// UserRepository reads credentials from the users table owned by
// user-service. auth-service never writes to it.
type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const selectUser = `
	SELECT id, username, email, display_name, password_hash, role, created_at, updated_at
	FROM users
`

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE username = $1 AND deleted_at IS NULL`, username)
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getOne(ctx, selectUser+` WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID, &user.Username, &user.Email, &user.DisplayName, &user.PasswordHash, &user.Role,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
