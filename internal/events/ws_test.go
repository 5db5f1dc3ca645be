package events

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/ws", hub.ServeWS())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

func readJSON(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := ws.ReadMessage()
	require.NoError(t, err)

	var v map[string]any
	require.NoError(t, json.Unmarshal(msg, &v))
	return v
}

func TestServeWSSendsWelcome(t *testing.T) {
	hub := NewHub()
	ws := dialTestHub(t, hub)

	hello := readJSON(t, ws)
	assert.Equal(t, "welcome", hello["type"])
	assert.Equal(t, "websocket", hello["transport"])
	assert.Equal(t, 1, hub.Stats().WSClients)
}

func TestServeWSReceivesBroadcasts(t *testing.T) {
	hub := NewHub()
	ws := dialTestHub(t, hub)
	readJSON(t, ws) // welcome; the hub has registered us once this arrives

	hub.BroadcastJSON(ShelfEvent{
		Type:   "shelf.update",
		UserID: "u1",
		BookID: 3,
		Status: "reading",
		At:     time.Now(),
	})

	ev := readJSON(t, ws)
	assert.Equal(t, "shelf.update", ev["type"])
	assert.Equal(t, "u1", ev["user_id"])
	assert.Equal(t, "reading", ev["status"])
}

func TestServeWSUnregistersOnClose(t *testing.T) {
	hub := NewHub()
	ws := dialTestHub(t, hub)
	readJSON(t, ws)

	require.NoError(t, ws.Close())

	assert.Eventually(t, func() bool {
		return hub.Stats().WSClients == 0
	}, 2*time.Second, 10*time.Millisecond)
}
