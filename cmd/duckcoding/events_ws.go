package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/duckcoding/duckcoding/internal/events"
)

// eventsWebSocketHandler upgrades /events connections and streams the
// event hub's feed to them one JSON message per event — the optional
// local event-stream endpoint the UI/tray subscribe to for external
// config changes, update notices, and proxy config updates.
//
// Grounded on the teacher's internal/dashboard.wsHub: same upgrader, same
// per-connection write goroutine. Simplified because internal/events.Hub
// already serializes its own subscriber registration, so no separate
// register/unregister channel set is needed here.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func eventsWebSocketHandler(hub *events.Hub) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Error("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		sub := hub.Subscribe()
		defer sub.Close()

		go drainClient(conn)

		for e := range sub.Events() {
			msg, err := json.Marshal(e)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		}
	})
}

// drainClient reads (and discards) incoming frames so the connection's
// close is detected — the feed is server-to-client only.
func drainClient(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
