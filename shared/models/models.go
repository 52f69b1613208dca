package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

const (
	RecordTypeIncome  = "income"
	RecordTypeExpense = "expense"
)

const (
	MessageRoleUser      = "user"
	MessageRoleAssistant = "assistant"
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"createdTimestamp"`
	UpdatedAt    time.Time `json:"updatedTimestamp"`
}

type Account struct {
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

// TransactionRecord is a single income or expense entry against an account.
// Amount is always positive; Type carries the direction.
type TransactionRecord struct {
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

// SignedAmount returns the record's effect on its account balance.
func (r *TransactionRecord) SignedAmount() decimal.Decimal {
	return SignedAmount(r.Type, r.Amount)
}

func SignedAmount(recordType string, amount decimal.Decimal) decimal.Decimal {
	if recordType == RecordTypeExpense {
		return amount.Neg()
	}
	return amount
}

type FinancialReport struct {
	ID          string    `json:"id"`
	UserID      string    `json:"-"`
	PeriodStart time.Time `json:"periodStart"`
	PeriodEnd   time.Time `json:"periodEnd"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"createdTimestamp"`
}

type AiSession struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdTimestamp"`
	UpdatedAt time.Time `json:"updatedTimestamp"`
}

type AiMessage struct {
	ID        string    `json:"id"`
	SessionID string    `json:"sessionId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdTimestamp"`
}

// RecordAnalysis is the LLM commentary produced for a newly created record.
type RecordAnalysis struct {
	RecordID  string    `json:"recordId"`
	UserID    string    `json:"userId"`
	Analysis  string    `json:"analysis"`
	CreatedAt time.Time `json:"createdTimestamp"`
}
