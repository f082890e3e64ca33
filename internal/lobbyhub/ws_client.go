package lobbyhub

import (
	"encoding/json"
	"log"
	"time"

	"echospace/backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// WebSocketClient implements the lobbyhub.Client interface over a browser
// WebSocket connection.
type WebSocketClient struct {
	ProfileID string
	Conn      *websocket.Conn
	Hub       *ManagerService
	Send      chan models.ServerEvent
}

func (c *WebSocketClient) GetProfileID() string                      { return c.ProfileID }
func (c *WebSocketClient) GetSendChannel() chan<- models.ServerEvent { return c.Send }

// Run starts the pumps for the WebSocket.
func (c *WebSocketClient) Run() {
	go c.writePump()
	go c.readPump()
}

// Close closes the Send channel (which stops writePump). readPump stops on
// its own once Conn.Close fires in its defer.
func (c *WebSocketClient) Close() {
	close(c.Send)
}

// readPump decodes client commands and hands them to the hub.
func (c *WebSocketClient) readPump() {
	defer func() {
		c.Hub.UnregisterCh <- c
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("error reading message: %v", err)
			}
			break
		}

		var cmd models.ClientCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			log.Printf("Error decoding JSON from client %s: %v", c.ProfileID, err)
			continue
		}

		// The participant identity comes from the authenticated connection,
		// never from the wire.
		cmd.ProfileID = c.ProfileID

		c.Hub.IncomingCh <- cmd
	}
}

// writePump reads envelopes from the Send channel and writes them to the
// WebSocket.
func (c *WebSocketClient) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed by the hub; close the WS connection.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			dataToWrite, err := json.Marshal(event)
			if err != nil {
				log.Printf("Error encoding JSON for client %s: %v", c.ProfileID, err)
				continue
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(dataToWrite)

			// Flush anything else already queued while we hold the writer.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				nextEvent := <-c.Send
				extraData, _ := json.Marshal(nextEvent)
				w.Write(extraData)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			// Ping to keep the connection alive.
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
