package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshotKeyPrefix is the Redis key prefix under which account-service
// publishes account snapshots. record-service reads the same keys to check
// ownership without calling account-service.
const AccountSnapshotKeyPrefix = "account:view:"

// AccountsByUserKeyPrefix keys the Redis set of a user's open account IDs,
// kept by account-service next to the snapshots. user-service reads it to
// refuse deleting a user who still has accounts.
const AccountsByUserKeyPrefix = "account:user:"

func AccountsByUserKey(userID string) string {
	return AccountsByUserKeyPrefix + userID
}

// UserView is the read-optimised projection of a user. It never exposes
// PasswordHash.
type UserView struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	Role         string    `json:"role"`
	AccountCount int64     `json:"accountCount"`
	CreatedAt    time.Time `json:"createdTimestamp"`
	UpdatedAt    time.Time `json:"updatedTimestamp"`
}

// AccountView is the read-optimised projection of an account.
// UserID is populated for ownership checks but never serialised to the API response.
type AccountView struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	Name        string          `json:"name"`
	AccountType string          `json:"accountType"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"createdTimestamp"`
	UpdatedAt   time.Time       `json:"updatedTimestamp"`
	Version     int64           `json:"-"`
}

// AccountSnapshot is the Redis representation of an account. Unlike
// AccountView it serialises UserID so other services can check ownership,
// and Version so a stale write never replaces a newer snapshot.
type AccountSnapshot struct {
	ID          string          `json:"id"`
	UserID      string          `json:"userId"`
	Name        string          `json:"name"`
	AccountType string          `json:"accountType"`
	Balance     decimal.Decimal `json:"balance"`
	Currency    string          `json:"currency"`
	CreatedAt   time.Time       `json:"createdTimestamp"`
	UpdatedAt   time.Time       `json:"updatedTimestamp"`
	Version     int64           `json:"version"`
}

func (s *AccountSnapshot) View() *AccountView {
	return &AccountView{
		ID:          s.ID,
		UserID:      s.UserID,
		Name:        s.Name,
		AccountType: s.AccountType,
		Balance:     s.Balance,
		Currency:    s.Currency,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		Version:     s.Version,
	}
}

func SnapshotOf(v *AccountView) *AccountSnapshot {
	return &AccountSnapshot{
		ID:          v.ID,
		UserID:      v.UserID,
		Name:        v.Name,
		AccountType: v.AccountType,
		Balance:     v.Balance,
		Currency:    v.Currency,
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
		Version:     v.Version,
	}
}

// BalanceSummary is the total balance of a user's accounts in one currency.
type BalanceSummary struct {
	Currency     string          `json:"currency"`
	Total        decimal.Decimal `json:"total"`
	AccountCount int             `json:"accountCount"`
}

// RecordView is the read-optimised projection of a transaction record.
type RecordView struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"accountId"`
	UserID      string          `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
	OccurredAt  time.Time       `json:"occurredAt"`
	CreatedAt   time.Time       `json:"createdTimestamp"`
	UpdatedAt   time.Time       `json:"updatedTimestamp"`
}

// RecordDocument is the shape of a record in the search index. UserID is kept
// so searches can be restricted to the caller.
type RecordDocument struct {
	ID          string    `json:"id"`
	AccountID   string    `json:"accountId"`
	UserID      string    `json:"userId"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Category    string    `json:"category"`
	Description string    `json:"description"`
	OccurredAt  time.Time `json:"occurredAt"`
}

// CategorySummary aggregates records of one type and category.
type CategorySummary struct {
	Category string          `json:"category"`
	Type     string          `json:"type"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// SessionView is a chat session together with its messages.
type SessionView struct {
	AiSession
	Messages []AiMessage `json:"messages"`
}
