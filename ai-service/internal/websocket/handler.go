package websocket

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/pennywise/finance/shared/logging"
	"github.com/pennywise/finance/shared/middleware"
)

// Handler upgrades authenticated requests on /ws.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewHandler builds the /ws handler. An allowedOrigins entry of "*" accepts
// any Origin.
func NewHandler(hub *Hub, allowedOrigins []string) *Handler {
	return &Handler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || slices.Contains(allowedOrigins, "*") || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

// ServeWS authenticates the handshake with a token query parameter or an
// Authorization bearer header, then hands the connection to the hub.
func (h *Handler) ServeWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		token, _ = middleware.BearerToken(c.GetHeader("Authorization"))
	}
	if token == "" {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Token required")
		return
	}
	claims, err := middleware.ParseToken(token)
	if err != nil {
		middleware.RespondWithError(c, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		logging.Ctx(c.Request.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	if !NewClient(h.hub, conn, claims.UserID).Start() {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
	}
}
