package events

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the API sits behind a reverse proxy; tighten when exposed directly
	CheckOrigin: func(*http.Request) bool { return true },
}

// ServeWS returns the endpoint that upgrades a request and subscribes the
// connection to the event stream. Connections are listen-only: the read
// loop exists to notice the peer going away, anything it sends is dropped.
func (h *Hub) ServeWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			return
		}
		defer func() {
			h.Remove(ws)
			log.Printf("[events] client disconnected (%d online)", h.Stats().WSClients)
		}()

		h.Add(ws)
		log.Printf("[events] client connected (%d online)", h.Stats().WSClients)

		hello, _ := json.Marshal(gin.H{"type": "welcome", "transport": "websocket"})
		if err := ws.WriteMessage(websocket.TextMessage, append(hello, '\n')); err != nil {
			return
		}

		for {
			if _, _, err := ws.NextReader(); err != nil {
				return
			}
		}
	}
}
