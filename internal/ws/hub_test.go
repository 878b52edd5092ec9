package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quocanhngo/airguard/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, r.URL.Query()["device"]...)
		hub.Register(client)
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, hub *Hub, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	before := hub.ConnectedClients()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.Eventually(t, func() bool { return hub.ConnectedClients() == before+1 }, time.Second, 5*time.Millisecond)
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) model.StatusEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var envelope struct {
		Type    string            `json:"type"`
		Payload model.StatusEvent `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Equal(t, model.WSEventStatus, envelope.Type)
	return envelope.Payload
}

func TestHub_BroadcastsStatus(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, "")

	require.NoError(t, hub.PublishStatus(context.Background(), model.StatusEvent{DeviceUID: "lab-1", Alert: true, MessageRef: "7"}))

	got := readEvent(t, conn)
	assert.Equal(t, "lab-1", got.DeviceUID)
	assert.True(t, got.Alert)
	assert.Equal(t, "7", got.MessageRef)
}

func TestHub_FiltersByDevice(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, hub, srv, "device=lab-2")

	ctx := context.Background()
	require.NoError(t, hub.PublishStatus(ctx, model.StatusEvent{DeviceUID: "lab-1"}))
	require.NoError(t, hub.PublishStatus(ctx, model.StatusEvent{DeviceUID: "lab-2"}))

	assert.Equal(t, "lab-2", readEvent(t, conn).DeviceUID)
}

func TestClient_SubscriptionMessages(t *testing.T) {
	c := NewClient(nil, nil, "a")
	assert.True(t, c.Follows("a"))
	assert.False(t, c.Follows("b"))

	c.handle(model.WSEvent{Type: eventSubscribe, Payload: map[string]string{"device_uid": "b"}})
	assert.True(t, c.Follows("b"))

	c.handle(model.WSEvent{Type: eventUnsubscribe, Payload: map[string]string{"device_uid": "a"}})
	c.handle(model.WSEvent{Type: eventUnsubscribe, Payload: map[string]string{"device_uid": "b"}})
	assert.True(t, c.Follows("anything"), "no filter means every device")
}
