package httpapi

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"mindplanner/internal/events"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = (pongWait * 9) / 10
	eventBuffer = 16
)

// handleWebSocket streams the caller's activity events until the client goes
// away. A slow client drops events rather than stalling publishers.
func (a *API) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)

	// Subscribe before the handshake completes so no event slips past.
	queue := make(chan events.Event, eventBuffer)
	unsubscribe := a.dispatcher.Subscribe(func(e events.Event) {
		if e.UserID != user.ID {
			return
		}
		select {
		case queue <- e:
		default:
			log.Printf("[info] websocket queue full for user %d, dropping event", user.ID)
		}
	})
	defer unsubscribe()
	log.Printf("[info] websocket connected user=%d subscribers=%d", user.ID, a.dispatcher.Len())

	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade for user %d: %v", user.ID, err)
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case e := <-queue:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
