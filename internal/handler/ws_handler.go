package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/quocanhngo/airguard/internal/ws"
	"github.com/quocanhngo/airguard/pkg/auth"
)

// WSHandler streams device status to dashboards
type WSHandler struct {
	hub        *ws.Hub
	jwtManager *auth.JWTManager
	upgrader   websocket.Upgrader
}

// NewWSHandler accepts connections whose Origin is in origins. Requests
// without an Origin header (non-browser clients) are always accepted.
func NewWSHandler(hub *ws.Hub, jwtManager *auth.JWTManager, origins []string) *WSHandler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &WSHandler{
		hub:        hub,
		jwtManager: jwtManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// HandleWebSocket upgrades HTTP to WebSocket.
// Client connects with: ws://host/ws?token=<jwt>&device=<uid>&device=<uid>
func (h *WSHandler) HandleWebSocket(c *gin.Context) {
	// WebSocket can't use the Authorization header from browsers
	tokenString := c.Query("token")
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Token required"})
		return
	}
	claims, err := h.jwtManager.ValidateToken(tokenString)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := ws.NewClient(h.hub, conn, c.QueryArray("device")...)
	h.hub.Register(client)
	log.Printf("✅ WS Connected: %s following %v", claims.Username, c.QueryArray("device"))

	go client.WritePump()
	go client.ReadPump()
}
