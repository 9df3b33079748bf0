package main

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "wordrelay_id"

func playerCookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// playerID returns the id in the request cookie, or a fresh one and whether
// it still has to be set on the response.
func playerID(r *http.Request) (string, bool) {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value, false
	}
	return uuid.NewString(), true
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	id, isNew := playerID(r)
	if isNew {
		http.SetCookie(w, playerCookie(id))
	}
	return id
}

// WebSocket handler that picks the hub based on :gameid
func serveWSForManager(cfg *Config, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		gameID := ps.ByName("gameid")
		if gameID == "" {
			http.Error(w, "missing game id", http.StatusBadRequest)
			return
		}

		id, isNew := playerID(r)

		// The upgrade writes its own response, so the cookie travels in
		// the handshake headers.
		var header http.Header
		if isNew {
			header = http.Header{}
			header.Add("Set-Cookie", playerCookie(id).String())
		}

		hub := gm.getHub(cfg, gameID)

		conn, err := upgrader.Upgrade(w, r, header)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &Client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: id,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()
			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join":
			select {
			case h.joins <- joinRequest{client: c, msg: msg}:
			case <-h.done:
				return
			}
		case "lock_lobby", "kick", "start_game":
			select {
			case h.hosts <- hostCommand{client: c, msg: msg}:
			case <-h.done:
				return
			}
		case "submit":
			select {
			case h.submits <- submitRequest{client: c, msg: msg}:
			case <-h.done:
				return
			}
		default:
			// ignore unknown types
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
