package cqrs

import (
	"time"

	"github.com/shopspring/decimal"
)

type CreateUserCommand struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

type UpdateUserCommand struct {
	UserID      string
	Email       string
	DisplayName string
}

type ChangePasswordCommand struct {
	UserID          string
	CurrentPassword string
	NewPassword     string
}

type DeleteUserCommand struct {
	UserID           string
	RequestingUserID string
	RequestingRole   string
}

type CreateAccountCommand struct {
	UserID      string
	Name        string
	AccountType string
	Currency    string
}

type UpdateAccountCommand struct {
	AccountID        string
	RequestingUserID string
	Name             string
	AccountType      string
}

type DeleteAccountCommand struct {
	AccountID        string
	RequestingUserID string
}

type CreateRecordCommand struct {
	UserID      string
	AccountID   string
	Amount      decimal.Decimal
	Type        string
	Category    string
	Description string
	OccurredAt  time.Time
}

// UpdateRecordCommand carries a partial update; nil fields are left as is.
type UpdateRecordCommand struct {
	RecordID         string
	RequestingUserID string
	Amount           *decimal.Decimal
	Type             *string
	Category         *string
	Description      *string
	OccurredAt       *time.Time
}

type DeleteRecordCommand struct {
	RecordID         string
	RequestingUserID string
}

type CreateSessionCommand struct {
	UserID string
	Title  string
}

type DeleteSessionCommand struct {
	SessionID        string
	RequestingUserID string
}

type SendMessageCommand struct {
	SessionID        string
	RequestingUserID string
	Content          string
}

type GenerateReportCommand struct {
	UserID string
	Month  string // YYYY-MM
}

type DeleteReportCommand struct {
	ReportID         string
	RequestingUserID string
}

type LoginCommand struct {
	Username string
	Password string
}

type RefreshTokenCommand struct {
	Token string
}
