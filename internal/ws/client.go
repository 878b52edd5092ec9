package ws

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quocanhngo/airguard/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024
)

// Inbound control messages
const (
	eventSubscribe   = "subscribe"
	eventUnsubscribe = "unsubscribe"
)

// Client is one dashboard connection. With no followed devices it receives
// every device's status.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu      sync.RWMutex
	devices map[string]bool
}

// NewClient creates a client following the given devices
func NewClient(hub *Hub, conn *websocket.Conn, devices ...string) *Client {
	c := &Client{
		hub:     hub,
		conn:    conn,
		send:    make(chan []byte, 256),
		devices: make(map[string]bool),
	}
	for _, uid := range devices {
		if uid != "" {
			c.devices[uid] = true
		}
	}
	return c
}

// Follows reports whether status for uid should reach this client
func (c *Client) Follows(uid string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.devices) == 0 || c.devices[uid]
}

type subscription struct {
	DeviceUID string `json:"device_uid"`
}

func (c *Client) handle(event model.WSEvent) {
	raw, err := json.Marshal(event.Payload)
	if err != nil {
		return
	}
	var sub subscription
	if err := json.Unmarshal(raw, &sub); err != nil || sub.DeviceUID == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	switch event.Type {
	case eventSubscribe:
		c.devices[sub.DeviceUID] = true
	case eventUnsubscribe:
		delete(c.devices, sub.DeviceUID)
	}
}

// ReadPump reads subscription changes until the connection closes.
// Runs in a per-client goroutine.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var event model.WSEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("Error parsing WebSocket message: %v", err)
			continue
		}
		c.handle(event)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection.
// Runs in a per-client goroutine.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
