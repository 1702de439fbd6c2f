package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/deskwatch/deskwatch/internal/monitoring"
)

const (
	eventStreamInterval = time.Second
	eventStreamLimit    = 50
	wsWriteTimeout      = 10 * time.Second
)

// eventStreamFrame is one push to a connected dashboard client
type eventStreamFrame struct {
	Type    string                `json:"type"`
	Running bool                  `json:"running"`
	Events  []monitoring.LogEvent `json:"events"`
}

// EventsWSHandler streams the live event buffer to dashboard clients
// over WebSocket. Each connection gets its own push loop; a slow or
// gone client only takes down its own connection.
type EventsWSHandler struct {
	upgrader  websocket.Upgrader
	generator *monitoring.Generator
}

// NewEventsWSHandler creates a WebSocket event stream handler
func NewEventsWSHandler(generator *monitoring.Generator) *EventsWSHandler {
	return &EventsWSHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // dashboard is served from the same process
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		generator: generator,
	}
}

// SetupRoutes configures WebSocket routes
func (h *EventsWSHandler) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/events", h.HandleWebSocket)
}

// HandleWebSocket upgrades the connection and pushes event snapshots
// until the client disconnects
func (h *EventsWSHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Event stream upgrade failed: %v", err)
		return
	}
	log.Printf("Event stream client connected from %s", r.RemoteAddr)

	closed := make(chan struct{})
	go func() {
		// Drain control frames; any read error means the client is gone.
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	h.pushLoop(conn, closed)

	conn.Close()
	log.Printf("Event stream client %s disconnected", r.RemoteAddr)
}

func (h *EventsWSHandler) pushLoop(conn *websocket.Conn, closed <-chan struct{}) {
	ticker := time.NewTicker(eventStreamInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ticker.C:
			frame := eventStreamFrame{
				Type:    "events",
				Running: h.generator.IsRunning(),
				Events:  h.generator.Events(eventStreamLimit),
			}
			conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(frame); err != nil {
				log.Printf("Event stream write failed: %v", err)
				return
			}
		}
	}
}
