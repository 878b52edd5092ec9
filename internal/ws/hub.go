package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/quocanhngo/airguard/internal/model"
	"github.com/redis/go-redis/v9"
)

const redisChannel = "airguard:status"

// Hub fans device status events out to dashboard connections.
// With redis, events published on any instance reach clients on all of them.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex

	// Channels for registering/unregistering clients
	register   chan *Client
	unregister chan *Client

	// Events for local clients when redis is not used
	broadcast chan *model.StatusEvent

	// Redis client for Pub/Sub (optional)
	rdb *redis.Client
}

// NewHub creates a new WebSocket Hub. rdb may be nil for a single instance.
func NewHub(rdb *redis.Client) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *model.StatusEvent, 256),
		rdb:        rdb,
	}
}

// Run starts the Hub's main event loop
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return

		case client := <-h.register:
			h.addClient(client)

		case client := <-h.unregister:
			h.removeClient(client)

		case event := <-h.broadcast:
			h.broadcastToLocal(event)
		}
	}
}

// Register queues a client for registration with the hub
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// PublishStatus delivers an event to every interested dashboard
func (h *Hub) PublishStatus(ctx context.Context, event model.StatusEvent) error {
	if h.rdb != nil {
		data, err := json.Marshal(event)
		if err != nil {
			return err
		}
		return h.rdb.Publish(ctx, redisChannel, data).Err()
	}

	select {
	case h.broadcast <- &event:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ConnectedClients returns the number of open connections on this instance
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
	log.Printf("✅ Dashboard connected (total connections: %d)", len(h.clients))
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.drop(client) {
		log.Printf("❌ Dashboard disconnected (total connections: %d)", len(h.clients))
	}
}

// drop must be called with h.mu held
func (h *Hub) drop(client *Client) bool {
	if _, ok := h.clients[client]; !ok {
		return false
	}
	delete(h.clients, client)
	close(client.send)
	return true
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		h.drop(client)
	}
}

// broadcastToLocal sends an event to connected clients following its device
func (h *Hub) broadcastToLocal(event *model.StatusEvent) {
	data, err := json.Marshal(&model.WSEvent{Type: model.WSEventStatus, Payload: event})
	if err != nil {
		log.Printf("Error marshaling status event: %v", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		if !client.Follows(event.DeviceUID) {
			continue
		}
		select {
		case client.send <- data:
		default:
			// Client's send buffer is full, close connection
			h.drop(client)
		}
	}
}

// subscribeRedis delivers events published by any instance to local clients
func (h *Hub) subscribeRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, redisChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	log.Println("📡 Redis Pub/Sub subscriber started")

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var event model.StatusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Error unmarshaling Redis message: %v", err)
				continue
			}
			h.broadcastToLocal(&event)
		}
	}
}
