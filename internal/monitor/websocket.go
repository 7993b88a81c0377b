package monitor

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Debug interface; the monitor is not exposed beyond the field network.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// poseHub fans published poses out to connected websocket clients. Slow
// clients are disconnected rather than allowed to back-pressure the engine.
type poseHub struct {
	mu      sync.Mutex
	clients map[chan PoseRecord]struct{}
}

func newPoseHub() *poseHub {
	return &poseHub{clients: make(map[chan PoseRecord]struct{})}
}

func (h *poseHub) subscribe() chan PoseRecord {
	ch := make(chan PoseRecord, 64)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *poseHub) unsubscribe(ch chan PoseRecord) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		delete(h.clients, ch)
		close(ch)
	}
	h.mu.Unlock()
}

func (h *poseHub) broadcast(rec PoseRecord) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- rec:
		default:
			// Client is not draining; drop it.
			delete(h.clients, ch)
			close(ch)
		}
	}
}

// handlePoseSocket streams every published pose view to the client as JSON
// frames until the connection closes.
func (ws *WebServer) handlePoseSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("pose socket: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	ch := ws.hub.subscribe()
	defer ws.hub.unsubscribe(ch)

	// Drain client frames so pings and close messages are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				ws.hub.unsubscribe(ch)
				return
			}
		}
	}()

	for rec := range ch {
		if err := conn.WriteJSON(rec); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("pose socket: write error: %v", err)
			}
			return
		}
	}
}
