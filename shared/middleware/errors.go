package middleware

import (
	"errors"
	"net/http"
	"unicode"

	"github.com/gin-gonic/gin"

	"github.com/pennywise/finance/shared/errs"
	"github.com/pennywise/finance/shared/logging"
)

// StatusFor maps a domain error to its HTTP status. Unknown errors are 500.
func StatusFor(err error) int {
	switch {
	case errs.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errs.IsConflict(err):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidCredentials), errors.Is(err, errs.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrInvalidAmount), errors.Is(err, errs.ErrInvalidCategory), errors.Is(err, errs.ErrInvalidPeriod):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrAIUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondWithDomainError writes the error envelope for err. Internal errors
// are logged and replaced by fallback so details never leak to clients.
func RespondWithDomainError(c *gin.Context, err error, fallback string) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logging.Ctx(c.Request.Context()).Error().Err(err).Str("path", c.FullPath()).Msg(fallback)
		RespondWithError(c, status, fallback)
		return
	}
	RespondWithError(c, status, sentence(clientMessage(err)))
}

// clientMessage is the text of the domain error err wraps. Anything else
// wrapped around it, upstream error text included, stays server side.
func clientMessage(err error) string {
	if d := errs.Sentinel(err); d != nil {
		return d.Error()
	}
	return err.Error()
}

func sentence(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
