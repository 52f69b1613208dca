package cqrs

import "time"

// ---------- User queries ----------

// GetUserQuery fetches a single user by ID. Admins may read any user.
type GetUserQuery struct {
	UserID           string
	RequestingUserID string
	RequestingRole   string
}

type ListUsersQuery struct {
	Limit  int
	Offset int
}

// ---------- Account queries ----------

type GetAccountQuery struct {
	AccountID        string
	RequestingUserID string
}

// ListAccountsQuery fetches all accounts belonging to a user.
type ListAccountsQuery struct {
	UserID string
}

// SummarizeAccountsQuery totals a user's balances per currency.
type SummarizeAccountsQuery struct {
	UserID string
}

// ---------- Record queries ----------

type GetRecordQuery struct {
	RecordID         string
	RequestingUserID string
}

// ListRecordsQuery filters a user's records. Zero values mean "no filter".
type ListRecordsQuery struct {
	UserID    string
	AccountID string
	Category  string
	Type      string
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

// SearchRecordsQuery is a full-text query over a user's records.
type SearchRecordsQuery struct {
	UserID   string
	Text     string
	Category string
	From     time.Time
	To       time.Time
	Limit    int
}

type SummarizeRecordsQuery struct {
	UserID string
	From   time.Time
	To     time.Time
}

// ---------- AI queries ----------

type GetAnalysisQuery struct {
	RecordID         string
	RequestingUserID string
}

type GetSessionQuery struct {
	SessionID        string
	RequestingUserID string
}

type GetReportQuery struct {
	ReportID         string
	RequestingUserID string
}

type ListSessionsQuery struct {
	UserID string
}

type ListReportsQuery struct {
	UserID string
}

type MonthSpendQuery struct {
	UserID string
	Month  string // YYYY-MM
}
