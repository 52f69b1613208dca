package middleware

import (
	_ "embed"
	"fmt"
	"net/http"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	stringadapter "github.com/casbin/casbin/v2/persist/string-adapter"
	"github.com/gin-gonic/gin"

	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/models"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// Enforcer decides whether a role may call a route, using an RBAC model in
// which admin inherits every user permission.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

func NewEnforcer() (*Enforcer, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m, stringadapter.NewAdapter(embeddedPolicy))
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	return &Enforcer{enforcer: e}, nil
}

// Allowed reports whether role may perform method on path.
func (e *Enforcer) Allowed(role, path, method string) (bool, error) {
	if role == "" {
		role = models.RoleUser
	}
	return e.enforcer.Enforce(role, path, method)
}

// Authorize must run after AuthMiddleware. It rejects the request with 403
// when the caller's role has no policy for the route.
func Authorize(e *Enforcer) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := GetRole(c)
		allowed, err := e.Allowed(role, c.Request.URL.Path, c.Request.Method)
		if err != nil {
			logging.Ctx(c.Request.Context()).Error().Err(err).Msg("authorization check failed")
			RespondWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
			c.Abort()
			return
		}
		if !allowed {
			RespondWithError(c, http.StatusForbidden, "Forbidden")
			c.Abort()
			return
		}
		c.Next()
	}
}
