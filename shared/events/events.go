package events

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"
)

// Event types
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"

	AccountCreated = "account.created"
	AccountUpdated = "account.updated"
	AccountDeleted = "account.deleted"
	BalanceUpdated = "balance.updated"

	RecordCreated = "record.created"
	RecordUpdated = "record.updated"
	RecordDeleted = "record.deleted"

	AnalysisRequested = "analysis.requested"
)

// Stream names
const (
	UserEventsStream    = "user.events"
	AccountEventsStream = "account.events"
	RecordEventsStream  = "record.events"

	// AnalysisQueue carries one message per newly created record for the
	// AI analyser. Unlike the event streams its consumer never retries.
	AnalysisQueue = "new.record.to.ai.analyser"
)

// Event is the envelope written to every stream. ID is unique per publish and
// is what consumers key idempotency on.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", e.Type, err)
	}
	return nil
}

// User events
type UserCreatedEvent struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type UserUpdatedEvent struct {
	UserID      string `json:"userId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

type UserDeletedEvent struct {
	UserID string `json:"userId"`
}

// Account events
type AccountCreatedEvent struct {
	AccountID   string `json:"accountId"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	AccountType string `json:"accountType"`
	Currency    string `json:"currency"`
}

type AccountUpdatedEvent struct {
	AccountID   string `json:"accountId"`
	UserID      string `json:"userId"`
	Name        string `json:"name"`
	AccountType string `json:"accountType"`
}

type AccountDeletedEvent struct {
	AccountID string `json:"accountId"`
	UserID    string `json:"userId"`
}

type BalanceUpdatedEvent struct {
	AccountID  string          `json:"accountId"`
	UserID     string          `json:"userId"`
	NewBalance decimal.Decimal `json:"newBalance"`
	Change     decimal.Decimal `json:"change"`
}

// RecordState is the part of a record that affects balances and spend totals.
type RecordState struct {
	Amount     decimal.Decimal `json:"amount"`
	Type       string          `json:"type"`
	Category   string          `json:"category"`
	OccurredAt time.Time       `json:"occurredAt"`
}

// RecordEvent is published for record.created, record.updated and
// record.deleted. Record is the state after the change (for deletes, the state
// that was removed). Previous is only set on updates. Delta is the signed
// change to the account balance.
type RecordEvent struct {
	RecordID  string          `json:"recordId"`
	AccountID string          `json:"accountId"`
	UserID    string          `json:"userId"`
	Record    RecordState     `json:"record"`
	Previous  *RecordState    `json:"previous,omitempty"`
	Delta     decimal.Decimal `json:"delta"`
}

// AnalysisRequest is the message placed on AnalysisQueue.
type AnalysisRequest struct {
	RecordID    string          `json:"recordId"`
	AccountID   string          `json:"accountId"`
	UserID      string          `json:"userId"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	OccurredAt  time.Time       `json:"occurredAt"`
}
