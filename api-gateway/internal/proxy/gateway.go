// Package proxy routes public API traffic to the backing services. Tokens are
// verified here once; upstream services receive the caller as X-User-ID in
// addition to the original Authorization header.
package proxy

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"

	"github.com/pennywise/finance/shared/config"
	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
)

const HeaderUserID = "X-User-ID"

const (
	serviceAuth    = "auth-service"
	serviceUser    = "user-service"
	serviceAccount = "account-service"
	serviceRecord  = "record-service"
	serviceAI      = "ai-service"
)

type route struct {
	method  string
	path    string
	service string
	public  bool
}

var routes = []route{
	{http.MethodPost, "/v1/auth/login", serviceAuth, true},
	{http.MethodPost, "/v1/auth/refresh", serviceAuth, true},

	{http.MethodPost, "/v1/users", serviceUser, true},
	{http.MethodGet, "/v1/users", serviceUser, false},
	{http.MethodGet, "/v1/users/:userId", serviceUser, false},
	{http.MethodPatch, "/v1/users/:userId", serviceUser, false},
	{http.MethodPut, "/v1/users/:userId/password", serviceUser, false},
	{http.MethodDelete, "/v1/users/:userId", serviceUser, false},

	{http.MethodPost, "/v1/account", serviceAccount, false},
	{http.MethodGet, "/v1/account", serviceAccount, false},
	{http.MethodGet, "/v1/account/summary", serviceAccount, false},
	{http.MethodGet, "/v1/account/:accountId", serviceAccount, false},
	{http.MethodPatch, "/v1/account/:accountId", serviceAccount, false},
	{http.MethodDelete, "/v1/account/:accountId", serviceAccount, false},

	{http.MethodPost, "/v1/records", serviceRecord, false},
	{http.MethodGet, "/v1/records", serviceRecord, false},
	{http.MethodGet, "/v1/records/search", serviceRecord, false},
	{http.MethodGet, "/v1/records/summary", serviceRecord, false},
	{http.MethodGet, "/v1/records/:recordId", serviceRecord, false},
	{http.MethodPatch, "/v1/records/:recordId", serviceRecord, false},
	{http.MethodDelete, "/v1/records/:recordId", serviceRecord, false},

	{http.MethodGet, "/v1/ai/analyses/:recordId", serviceAI, false},
	{http.MethodGet, "/v1/ai/spend", serviceAI, false},
	{http.MethodPost, "/v1/ai/sessions", serviceAI, false},
	{http.MethodGet, "/v1/ai/sessions", serviceAI, false},
	{http.MethodGet, "/v1/ai/sessions/:sessionId", serviceAI, false},
	{http.MethodDelete, "/v1/ai/sessions/:sessionId", serviceAI, false},
	{http.MethodPost, "/v1/ai/sessions/:sessionId/messages", serviceAI, false},
	{http.MethodPost, "/v1/ai/reports", serviceAI, false},
	{http.MethodGet, "/v1/ai/reports", serviceAI, false},
	{http.MethodGet, "/v1/ai/reports/:reportId", serviceAI, false},
	{http.MethodDelete, "/v1/ai/reports/:reportId", serviceAI, false},
}

type Gateway struct {
	proxies map[string]*httputil.ReverseProxy
}

func NewGateway(cfg config.GatewayConfig) (*Gateway, error) {
	targets := map[string]string{
		serviceAuth:    cfg.AuthServiceURL,
		serviceUser:    cfg.UserServiceURL,
		serviceAccount: cfg.AccountServiceURL,
		serviceRecord:  cfg.RecordServiceURL,
		serviceAI:      cfg.AIServiceURL,
	}
	g := &Gateway{proxies: make(map[string]*httputil.ReverseProxy, len(targets))}
	for name, raw := range targets {
		target, err := url.Parse(strings.TrimSuffix(raw, "/"))
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("invalid %s url %q", name, raw)
		}
		g.proxies[name] = newReverseProxy(name, target)
	}
	return g, nil
}

func newReverseProxy(name string, target *url.URL) *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			logging.Ctx(r.Context()).Error().Err(err).Str("upstream", name).Msg("proxy request failed")
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusBadGateway)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Service unavailable"})
		},
	}
}

// RegisterRoutes mounts every public route on router. /ws goes to the ai
// service with the connection upgrade passed through.
func (g *Gateway) RegisterRoutes(router *gin.Engine) {
	for _, r := range routes {
		handlers := []gin.HandlerFunc{}
		if !r.public {
			handlers = append(handlers, middleware.AuthMiddleware())
		}
		handlers = append(handlers, g.forward(r.service))
		router.Handle(r.method, r.path, handlers...)
	}
	router.GET("/ws", WebSocketAuth(), g.forward(serviceAI))
}

func (g *Gateway) forward(service string) gin.HandlerFunc {
	p := g.proxies[service]
	return func(c *gin.Context) {
		// Never trust a caller-supplied identity.
		c.Request.Header.Del(HeaderUserID)
		if userID, ok := middleware.GetUserID(c); ok {
			c.Request.Header.Set(HeaderUserID, userID)
		}
		if id := logging.RequestIDFromContext(c.Request.Context()); id != "" {
			c.Request.Header.Set(middleware.RequestIDHeader, id)
		}
		p.ServeHTTP(c.Writer, c.Request)
	}
}

// WebSocketAuth verifies the handshake token, which browsers can only send as
// a query parameter.
func WebSocketAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
		}
		if token == "" {
			middleware.RespondWithError(c, http.StatusUnauthorized, "Authorization token required")
			c.Abort()
			return
		}
		claims, err := middleware.ParseToken(token)
		if err != nil {
			middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}
		c.Set(middleware.ContextUserID, claims.UserID)
		c.Next()
	}
}
