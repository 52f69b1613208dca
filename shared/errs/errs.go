// Package errs holds the domain errors shared by all services. Repositories
// and services return (or wrap) these; handlers map them to HTTP status codes
// with errors.Is.
package errs

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAccountNotFound  = errors.New("account not found")
	ErrRecordNotFound   = errors.New("record not found")
	ErrSessionNotFound  = errors.New("session not found")
	ErrReportNotFound   = errors.New("report not found")
	ErrAnalysisNotFound = errors.New("analysis not found")

	ErrForbidden = errors.New("forbidden")

	ErrUsernameTaken   = errors.New("username already exists")
	ErrEmailTaken      = errors.New("email already exists")
	ErrUserHasAccounts = errors.New("user has active accounts")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidAmount      = errors.New("amount must be positive, below 1e15, with at most 4 decimal places")
	ErrInvalidCategory    = errors.New("category must not be blank")
	ErrInvalidPeriod      = errors.New("invalid period")

	ErrAIUnavailable = errors.New("ai model unavailable")
)

var domain = []error{
	ErrUserNotFound, ErrAccountNotFound, ErrRecordNotFound,
	ErrSessionNotFound, ErrReportNotFound, ErrAnalysisNotFound,
	ErrForbidden,
	ErrUsernameTaken, ErrEmailTaken, ErrUserHasAccounts,
	ErrInvalidCredentials, ErrInvalidToken, ErrInvalidAmount, ErrInvalidCategory, ErrInvalidPeriod,
	ErrAIUnavailable,
}

// Sentinel returns the domain error err wraps, or nil if it wraps none.
// Joined and multi-%w errors are searched too.
func Sentinel(err error) error {
	for _, d := range domain {
		if errors.Is(err, d) {
			return d
		}
	}
	return nil
}

// IsNotFound reports whether err is any of the not-found errors.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrAccountNotFound) ||
		errors.Is(err, ErrRecordNotFound) ||
		errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrReportNotFound) ||
		errors.Is(err, ErrAnalysisNotFound)
}

// IsConflict reports whether err violates a uniqueness or dependency rule.
func IsConflict(err error) bool {
	return errors.Is(err, ErrUsernameTaken) ||
		errors.Is(err, ErrEmailTaken) ||
		errors.Is(err, ErrUserHasAccounts)
}
