package live

import (
	"log"
	"net/http"

	"vitrine/middleware"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// ServeUpdates upgrades the connection and streams the caller's cart/order
// updates. Auth happens here because headers are consumed by the upgrade.
func ServeUpdates(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		claims, err := middleware.ValidateJWT(r.Header.Get("Authorization"))
		if err != nil {
			// browsers cannot set headers on ws; allow token as query param
			claims, err = middleware.ValidateJWT("Bearer " + r.URL.Query().Get("token"))
			if err != nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("live upgrade:", err)
			return
		}

		client := &Client{
			Send:   make(chan []byte, 64),
			UserID: claims.UserID,
			conn:   conn,
		}

		if !hub.Register(client) {
			conn.Close()
			return
		}
		go writePump(client)
		go readPump(client, hub)
	}
}

func writePump(c *Client) {
	defer c.conn.Close()
	for msg := range c.Send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			break
		}
	}
}

// readPump only watches for the client going away; this stream is one-way.
func readPump(c *Client, hub *Hub) {
	defer func() {
		hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
