package handler

import (
	"net/http"

	"echospace/backend/internal/lobbyhub"
	"echospace/backend/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Allows connections from any origin. Tighten for production.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeWebSocket upgrades the HTTP connection to a WebSocket and registers
// the resulting client with the hub.
func (h *Handler) ServeWebSocket(c *gin.Context) {
	profileID, err := authProfileID(c)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token or expired"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to upgrade connection"})
		return
	}

	client := &lobbyhub.WebSocketClient{
		Hub:       h.Hub,
		ProfileID: profileID,
		Conn:      conn,
		Send:      make(chan models.ServerEvent, 256),
	}

	h.Hub.RegisterCh <- client
	client.Run()
}
